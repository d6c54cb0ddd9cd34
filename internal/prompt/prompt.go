// Package prompt turns column digests and user inputs into completion
// requests for each analysis task.
package prompt

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaprompt-cli/internal/analysis"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

// Task selects the closing instruction and sampling parameters.
type Task string

const (
	TaskQuestions Task = "questions"
	TaskExplain   Task = "explain"
	TaskFollowUps Task = "followups"
	TaskReport    Task = "report"
)

// SystemMessage is sent as the system role on every request.
const SystemMessage = "You're a helpful and analytical data assistant."

const preamble = "You're a data analyst reviewing a new dataset. Here's a summary of the columns:"

type taskSpec struct {
	temperature float64
	maxTokens   int
	closing     func(in Input) string
}

var tasks = map[Task]taskSpec{
	TaskQuestions: {
		temperature: 0.7,
		maxTokens:   600,
		closing: func(Input) string {
			return "Based on this structure, suggest 10 insightful questions a data analyst or business user should explore to better understand this dataset. Think about trends, segments, outliers, and relationships."
		},
	},
	TaskExplain: {
		temperature: 0.3,
		maxTokens:   400,
		closing: func(in Input) string {
			return fmt.Sprintf("Explain what the column %q most likely represents, how its values should be interpreted, and any data quality issues or caveats an analyst should check before using it.", in.Column)
		},
	},
	TaskFollowUps: {
		temperature: 0.6,
		maxTokens:   500,
		closing: func(in Input) string {
			return fmt.Sprintf("An analyst is exploring this question: %q. Suggest 5 follow-up questions that dig deeper into it using the columns above, and note which columns each one would use.", in.Question)
		},
	},
	TaskReport: {
		temperature: 0.3,
		maxTokens:   1200,
		closing: func(Input) string {
			return "Write a concise exploratory data analysis report in Markdown. Describe the dataset, highlight notable distributions, likely relationships, data quality concerns, and recommend next steps for analysis."
		},
	},
}

// Tasks lists the known tasks in a stable order.
func Tasks() []Task {
	return []Task{TaskQuestions, TaskExplain, TaskFollowUps, TaskReport}
}

// ParseTask maps a name to a Task.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tasks[t]; !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown task %q", s)
	}
	return t, nil
}

// Input carries everything a prompt may be parameterized by.
type Input struct {
	Digests      []analysis.ColumnDigest
	Objective    string
	FocusColumns []string
	// Column is required for TaskExplain.
	Column string
	// Question is required for TaskFollowUps.
	Question string
}

// Request is a fully composed completion request. It is consumed once.
type Request struct {
	Task        Task
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Compose builds the user message for task. Optional sentences are omitted
// when their inputs are empty. An unknown task yields no closing line.
func Compose(task Task, in Input) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")
	for _, d := range in.Digests {
		b.WriteString(d.Line())
		b.WriteString("\n")
	}
	if obj := strings.TrimSpace(in.Objective); obj != "" {
		b.WriteString("\nThe user's stated objective is: ")
		b.WriteString(obj)
	}
	if focus := cleanList(in.FocusColumns); len(focus) > 0 {
		b.WriteString("\nFocus especially on these columns: ")
		b.WriteString(strings.Join(focus, ", "))
	}
	if spec, ok := tasks[task]; ok {
		b.WriteString("\n")
		b.WriteString(spec.closing(in))
		b.WriteString("\n")
	}
	return b.String()
}

// Build validates in for task and returns the request to send.
func Build(task Task, in Input) (Request, error) {
	spec, ok := tasks[task]
	if !ok {
		return Request{}, errs.Newf(errs.ErrKindInvalidInput, "unknown task %q", task)
	}
	if len(in.Digests) == 0 {
		return Request{}, errs.New(errs.ErrKindInvalidInput, "no dataset summary available; upload a dataset first")
	}
	known := make(map[string]bool, len(in.Digests))
	for _, d := range in.Digests {
		known[d.Name] = true
	}
	for _, f := range cleanList(in.FocusColumns) {
		if !known[f] {
			return Request{}, errs.Newf(errs.ErrKindInvalidInput, "focus column %q not in dataset", f)
		}
	}
	switch task {
	case TaskExplain:
		if strings.TrimSpace(in.Column) == "" {
			return Request{}, errs.New(errs.ErrKindInvalidInput, "column is required")
		}
		if !known[in.Column] {
			return Request{}, errs.Newf(errs.ErrKindInvalidInput, "column %q not in dataset", in.Column)
		}
	case TaskFollowUps:
		if strings.TrimSpace(in.Question) == "" {
			return Request{}, errs.New(errs.ErrKindInvalidInput, "question is required")
		}
	}
	return Request{
		Task:        task,
		System:      SystemMessage,
		User:        Compose(task, in),
		Temperature: spec.temperature,
		MaxTokens:   spec.maxTokens,
	}, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package prompt

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/edaprompt-cli/internal/analysis"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

func digests(t *testing.T) []analysis.ColumnDigest {
	t.Helper()
	tbl, err := analysis.LoadCSV(strings.NewReader("price,city\n1,a\n2,b\n3,a\n4,c\n5,a\n"), "t.csv", analysis.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return analysis.Summarize(tbl)
}

func TestComposeOptionalSentences(t *testing.T) {
	ds := digests(t)
	cases := []struct {
		name          string
		in            Input
		wantObjective bool
		wantFocus     bool
	}{
		{"neither", Input{Digests: ds}, false, false},
		{"objective only", Input{Digests: ds, Objective: "reduce churn"}, true, false},
		{"focus only", Input{Digests: ds, FocusColumns: []string{"price"}}, false, true},
		{"both", Input{Digests: ds, Objective: "reduce churn", FocusColumns: []string{"price", "city"}}, true, true},
		{"blank values", Input{Digests: ds, Objective: "   ", FocusColumns: []string{" "}}, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := Compose(TaskQuestions, c.in)
			if got := strings.Contains(out, "The user's stated objective is:"); got != c.wantObjective {
				t.Errorf("objective sentence present=%v, want %v\n%s", got, c.wantObjective, out)
			}
			if got := strings.Contains(out, "Focus especially on these columns:"); got != c.wantFocus {
				t.Errorf("focus sentence present=%v, want %v\n%s", got, c.wantFocus, out)
			}
		})
	}
}

func TestComposeOrderAndDeterminism(t *testing.T) {
	in := Input{Digests: digests(t), Objective: "reduce churn", FocusColumns: []string{"price", "city"}}
	out := Compose(TaskQuestions, in)
	if out != Compose(TaskQuestions, in) {
		t.Fatal("compose is not deterministic")
	}
	order := []string{
		"You're a data analyst reviewing a new dataset. Here's a summary of the columns:",
		"- price (numeric): mean=3.00, min=1, max=5, std=1.58",
		"- city (categorical): 3 unique values, e.g. a, b, c",
		"The user's stated objective is: reduce churn",
		"Focus especially on these columns: price, city",
		"Based on this structure, suggest 10 insightful questions",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("missing %q in:\n%s", s, out)
		}
		if i <= last {
			t.Fatalf("%q out of order in:\n%s", s, out)
		}
		last = i
	}
}

func TestBuildTaskParameters(t *testing.T) {
	ds := digests(t)
	cases := []struct {
		task    Task
		in      Input
		temp    float64
		max     int
		closing string
	}{
		{TaskQuestions, Input{Digests: ds}, 0.7, 600, "suggest 10 insightful questions"},
		{TaskExplain, Input{Digests: ds, Column: "price"}, 0.3, 400, `Explain what the column "price"`},
		{TaskFollowUps, Input{Digests: ds, Question: "Which city spends most?"}, 0.6, 500, `exploring this question: "Which city spends most?"`},
		{TaskReport, Input{Digests: ds}, 0.3, 1200, "exploratory data analysis report in Markdown"},
	}
	for _, c := range cases {
		req, err := Build(c.task, c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.task, err)
		}
		if req.Temperature != c.temp || req.MaxTokens != c.max {
			t.Errorf("%s: temp=%v max=%d, want %v/%d", c.task, req.Temperature, req.MaxTokens, c.temp, c.max)
		}
		if req.System != SystemMessage {
			t.Errorf("%s: system = %q", c.task, req.System)
		}
		if !strings.Contains(req.User, c.closing) {
			t.Errorf("%s: closing %q not found in:\n%s", c.task, c.closing, req.User)
		}
	}
}

func TestBuildValidation(t *testing.T) {
	ds := digests(t)
	cases := []struct {
		name string
		task Task
		in   Input
	}{
		{"no digests", TaskQuestions, Input{}},
		{"explain without column", TaskExplain, Input{Digests: ds}},
		{"explain unknown column", TaskExplain, Input{Digests: ds, Column: "nope"}},
		{"followups without question", TaskFollowUps, Input{Digests: ds, Question: "  "}},
		{"unknown focus column", TaskQuestions, Input{Digests: ds, FocusColumns: []string{"nope"}}},
		{"unknown task", Task("haiku"), Input{Digests: ds}},
	}
	for _, c := range cases {
		if _, err := Build(c.task, c.in); !errs.IsInvalidInput(err) {
			t.Errorf("%s: got %v, want invalid input", c.name, err)
		}
	}
}

func TestParseTask(t *testing.T) {
	for _, task := range Tasks() {
		got, err := ParseTask(" " + strings.ToUpper(string(task)))
		if err != nil || got != task {
			t.Errorf("ParseTask(%q) = %q, %v", task, got, err)
		}
	}
	if _, err := ParseTask("nope"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestComposeEndToEndThreeColumns(t *testing.T) {
	const csv = "price,city,comment\n" +
		"1,a,great service\n" +
		"2,b,slow delivery\n" +
		"3,a,ok\n" +
		"4,c,would buy again\n" +
		"5,a,too expensive\n"
	tbl, err := analysis.LoadCSV(strings.NewReader(csv), "reviews.csv", analysis.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := Compose(TaskQuestions, Input{Digests: analysis.Summarize(tbl)})

	digestLines := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "- ") {
			digestLines++
		}
	}
	if digestLines != 3 {
		t.Fatalf("got %d digest lines, want 3:\n%s", digestLines, out)
	}

	want := "You're a data analyst reviewing a new dataset. Here's a summary of the columns:\n" +
		"- price (numeric): mean=3.00, min=1, max=5, std=1.58\n" +
		"- city (categorical): 3 unique values, e.g. a, b, c\n" +
		"- comment (categorical): 5 unique values, e.g. great service, slow delivery, ok\n" +
		"\n" +
		"Based on this structure, suggest 10 insightful questions a data analyst or business user should explore to better understand this dataset. Think about trends, segments, outliers, and relationships.\n"
	if out != want {
		t.Fatalf("composed prompt mismatch\n got: %q\nwant: %q", out, want)
	}
	if strings.Contains(out, "objective") || strings.Contains(out, "Focus especially") {
		t.Fatalf("optional sentences must be absent:\n%s", out)
	}
}

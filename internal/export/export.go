// Package export renders session content as Markdown (and HTML) documents.
// Output depends only on the session state passed in.
package export

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/session"
	"github.com/KaramelBytes/edaprompt-cli/internal/utils"
)

// Kinds of exported documents.
const (
	KindQuestions = "questions"
	KindReport    = "report"
	KindSession   = "session"
)

const timeLayout = "2006-01-02 15:04:05"

func stamp(t time.Time) string {
	return t.UTC().Format(timeLayout) + " UTC"
}

type meta struct {
	b strings.Builder
}

func (m *meta) add(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(&m.b, "- **%s:** %s\n", label, value)
}

func (m *meta) String() string { return m.b.String() }

func entryMeta(sessionName, dataset string, created time.Time, objective string, focus []string, model string) string {
	var m meta
	m.add("Session", sessionName)
	m.add("Dataset", dataset)
	m.add("Generated", stamp(created))
	m.add("Objective", objective)
	m.add("Focus columns", strings.Join(focus, ", "))
	m.add("Model", model)
	return m.String()
}

// Questions renders one question entry with the follow-ups generated for
// questions from that entry.
func Questions(s *session.Session, e session.QuestionEntry) string {
	var b strings.Builder
	b.WriteString("# AI-Generated EDA Questions\n\n")
	b.WriteString(entryMeta(s.Name, e.Dataset, e.CreatedAt, e.Objective, e.Focus, e.Model))
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(e.Questions))
	b.WriteString("\n")
	writeFollowUps(&b, s, func(q string) bool { return session.HasQuestion(e.Questions, q) }, "##")
	return b.String()
}

// Session renders every question entry and report in append order, followed
// by all follow-ups.
func Session(s *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# EDA Session: %s\n\n", s.Name)
	var m meta
	m.add("Created", stamp(s.CreatedAt))
	m.add("Updated", stamp(s.UpdatedAt))
	m.add("Datasets", strings.Join(s.DatasetNames(), ", "))
	b.WriteString(m.String())

	for i, e := range s.Questions {
		fmt.Fprintf(&b, "\n## Questions %d\n\n", i+1)
		b.WriteString(entryMeta("", e.Dataset, e.CreatedAt, e.Objective, e.Focus, e.Model))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(e.Questions))
		b.WriteString("\n")
	}
	writeFollowUps(&b, s, nil, "##")
	for i, r := range s.Reports {
		fmt.Fprintf(&b, "\n## Report %d\n\n", i+1)
		b.WriteString(entryMeta("", r.Dataset, r.CreatedAt, r.Objective, r.Focus, r.Model))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(r.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// Report renders one report entry.
func Report(s *session.Session, r session.ReportEntry) string {
	var b strings.Builder
	b.WriteString("# EDA Report\n\n")
	b.WriteString(entryMeta(s.Name, r.Dataset, r.CreatedAt, r.Objective, r.Focus, r.Model))
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(r.Text))
	b.WriteString("\n")
	return b.String()
}

// writeFollowUps emits a section with the latest follow-up per question,
// questions ordered by their first follow-up. keep filters question keys;
// nil keeps all.
func writeFollowUps(b *strings.Builder, s *session.Session, keep func(string) bool, level string) {
	type item struct {
		q     string
		first time.Time
		text  string
	}
	var items []item
	for q, list := range s.FollowUps {
		if len(list) == 0 || (keep != nil && !keep(q)) {
			continue
		}
		first := list[0].CreatedAt
		for _, f := range list[1:] {
			if f.CreatedAt.Before(first) {
				first = f.CreatedAt
			}
		}
		items = append(items, item{q: q, first: first, text: list[len(list)-1].Text})
	}
	if len(items) == 0 {
		return
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].first.Equal(items[j].first) {
			return items[i].q < items[j].q
		}
		return items[i].first.Before(items[j].first)
	})
	fmt.Fprintf(b, "\n%s Follow-up Questions\n", level)
	for _, it := range items {
		fmt.Fprintf(b, "\n%s# %s\n\n%s\n", level, it.q, strings.TrimSpace(it.text))
	}
}

// FileName builds "<session>_<dataset-stem>_<kind>.md" from sanitized parts.
// The dataset part is omitted when dataset is empty.
func FileName(sessionName, dataset, kind string) string {
	parts := []string{utils.SafeName(sessionName)}
	if dataset != "" {
		base := path.Base(strings.ReplaceAll(dataset, "\\", "/"))
		parts = append(parts, utils.SafeName(strings.TrimSuffix(base, path.Ext(base))))
	}
	parts = append(parts, utils.SafeName(kind))
	return strings.Join(parts, "_") + ".md"
}

// WithExt swaps the extension of a FileName result.
func WithExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

package export

import (
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

func fixture() *session.Session {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &session.Session{
		Name:      "Q1 churn",
		CreatedAt: t0,
		UpdatedAt: t0.Add(time.Hour),
		Datasets: map[string]*session.Dataset{
			"churn.csv": {Filename: "churn.csv", UploadedAt: t0},
		},
		Questions: []session.QuestionEntry{{
			ID:        "q1",
			CreatedAt: t0.Add(time.Minute),
			Dataset:   "churn.csv",
			Questions: "1. What drives churn?\n2. Is tenure skewed?",
			Objective: "reduce churn",
			Focus:     []string{"tenure", "plan"},
			Model:     "gpt-4",
		}},
		FollowUps: map[string][]session.FollowUpEntry{
			"Is tenure skewed?": {
				{CreatedAt: t0.Add(3 * time.Minute), Text: "- old tenure text"},
				{CreatedAt: t0.Add(5 * time.Minute), Text: "- new tenure text"},
			},
			"What drives churn?": {
				{CreatedAt: t0.Add(4 * time.Minute), Text: "- churn follow-up"},
			},
			"Unrelated question": {
				{CreatedAt: t0.Add(2 * time.Minute), Text: "- unrelated"},
			},
		},
		Reports: []session.ReportEntry{{
			CreatedAt: t0.Add(10 * time.Minute),
			Dataset:   "churn.csv",
			Text:      "## Overview\n\nChurn is 20%.",
		}},
	}
}

func TestQuestionsDocument(t *testing.T) {
	s := fixture()
	doc := Questions(s, s.Questions[0])

	if !strings.HasPrefix(doc, "# AI-Generated EDA Questions\n\n") {
		t.Fatalf("missing header:\n%s", doc)
	}
	for _, want := range []string{
		"- **Session:** Q1 churn\n",
		"- **Dataset:** churn.csv\n",
		"- **Generated:** 2024-03-01 09:01:00 UTC\n",
		"- **Objective:** reduce churn\n",
		"- **Focus columns:** tenure, plan\n",
		"1. What drives churn?\n2. Is tenure skewed?\n",
		"## Follow-up Questions\n",
		"- new tenure text",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "old tenure text") {
		t.Error("only the latest follow-up should be rendered")
	}
	if strings.Contains(doc, "Unrelated question") {
		t.Error("follow-ups for other entries should be excluded")
	}
	// ordered by first follow-up time: tenure (3m) before churn (4m)
	i := strings.Index(doc, "### Is tenure skewed?")
	j := strings.Index(doc, "### What drives churn?")
	if i < 0 || j < 0 || i > j {
		t.Fatalf("unexpected follow-up order:\n%s", doc)
	}
	if Questions(s, s.Questions[0]) != doc {
		t.Fatal("render not deterministic")
	}
}

func TestQuestionsWithoutFollowUpsOrOptionalMeta(t *testing.T) {
	s := fixture()
	s.FollowUps = map[string][]session.FollowUpEntry{}
	e := s.Questions[0]
	e.Objective = ""
	e.Focus = nil
	doc := Questions(s, e)
	if strings.Contains(doc, "Follow-up") || strings.Contains(doc, "Objective") || strings.Contains(doc, "Focus") {
		t.Fatalf("unexpected optional sections:\n%s", doc)
	}
}

func TestQuestionsMatchesWrappedItemsExactly(t *testing.T) {
	s := fixture()
	s.Questions[0].Questions = "1. What drives churn\n   among basic users?\n2. Is tenure skewed?"
	s.FollowUps = map[string][]session.FollowUpEntry{
		"What drives churn among basic users?": {
			{CreatedAt: s.CreatedAt.Add(4 * time.Minute), Text: "- compare plans by tenure"},
		},
		"churn": {
			{CreatedAt: s.CreatedAt.Add(5 * time.Minute), Text: "- free text about churn"},
		},
	}
	doc := Questions(s, s.Questions[0])
	for _, want := range []string{
		"## Follow-up Questions\n",
		"### What drives churn among basic users?\n",
		"- compare plans by tenure",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "free text about churn") {
		t.Errorf("a key that is only a substring of the block must not match:\n%s", doc)
	}
}

func TestSessionAndReport(t *testing.T) {
	s := fixture()
	doc := Session(s)
	for _, want := range []string{
		"# EDA Session: Q1 churn\n",
		"## Questions 1\n",
		"### Unrelated question\n",
		"## Report 1\n",
		"Churn is 20%.",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}

	rep := Report(s, s.Reports[0])
	if !strings.HasPrefix(rep, "# EDA Report\n\n") || !strings.Contains(rep, "## Overview") {
		t.Fatalf("unexpected report:\n%s", rep)
	}
}

func TestFileName(t *testing.T) {
	cases := []struct{ sess, ds, kind, want string }{
		{"Q1 churn", "churn.csv", KindQuestions, "Q1-churn_churn_questions.md"},
		{"demo", "data/2024 sales.v2.csv", KindReport, "demo_2024-sales.v2_report.md"},
		{"../evil", "", KindSession, "evil_session.md"},
		{"", "x.csv", KindQuestions, "untitled_x_questions.md"},
	}
	for _, tc := range cases {
		if got := FileName(tc.sess, tc.ds, tc.kind); got != tc.want {
			t.Errorf("FileName(%q,%q,%q)=%q want %q", tc.sess, tc.ds, tc.kind, got, tc.want)
		}
	}
	if WithExt("a_b_report.md", ".html") != "a_b_report.html" {
		t.Fatal("WithExt")
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML("Q1 <churn>", "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>x</script>\n")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>Q1 &lt;churn&gt;</title>", "<h1 id=\"title\">Title</h1>", "<table>", "<td>1</td>"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw html should be omitted")
	}
}

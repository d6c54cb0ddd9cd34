package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const churnCSV = `id,plan,tenure,churned
1,basic,3,true
2,pro,14,false
3,basic,1,true
4,team,30,false
`

// resetFlags puts every flag in the tree back to its default so values from
// one invocation do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCLI runs the root command with args and returns its output.
func execCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCLI(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// isolate points config and sessions at a fresh HOME.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("EDAPROMPT_STORE_BACKEND", "file")
	t.Setenv("EDAPROMPT_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("EDAPROMPT_BASE_URL", "")
	t.Setenv("EDAPROMPT_DEFAULT_PROVIDER", "")
	t.Setenv("EDAPROMPT_DEFAULT_MODEL", "")
	return home
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "churn.csv")
	if err := os.WriteFile(p, []byte(churnCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestCLI_SessionUploadDryRun(t *testing.T) {
	home := isolate(t)
	csvPath := writeCSV(t, home)

	out := mustExec(t, "session", "create", "demo")
	if !strings.Contains(out, "Session created: demo") || !strings.Contains(out, "Selected session: demo") {
		t.Fatalf("unexpected create output:\n%s", out)
	}

	out = mustExec(t, "upload", csvPath, "--preview", "2")
	if !strings.Contains(out, "4 rows x 4 columns") {
		t.Fatalf("unexpected upload output:\n%s", out)
	}
	if !strings.Contains(out, "| id | plan | tenure | churned |") {
		t.Fatalf("preview missing:\n%s", out)
	}

	// No credential is configured; a dry run must not need one.
	out = mustExec(t, "questions", "--dry-run", "--objective", "find churn drivers")
	if !strings.Contains(out, "Request ID (dry-run): sim_") {
		t.Fatalf("dry-run id missing:\n%s", out)
	}
	if !strings.Contains(out, "The user's stated objective is: find churn drivers") {
		t.Fatalf("objective missing from prompt:\n%s", out)
	}

	if _, err := execCLI(t, "questions", "--dry-run", "--budget-limit", "0.0000001"); err == nil {
		t.Fatal("expected budget limit error")
	}

	out = mustExec(t, "session", "show")
	if !strings.Contains(out, "churn.csv") {
		t.Fatalf("show missing dataset:\n%s", out)
	}
}

func TestCLI_UnknownFocusColumn(t *testing.T) {
	home := isolate(t)
	csvPath := writeCSV(t, home)
	mustExec(t, "session", "create", "demo")
	mustExec(t, "upload", csvPath)
	if _, err := execCLI(t, "questions", "--dry-run", "--focus", "revenue"); err == nil {
		t.Fatal("expected error for a focus column not in the dataset")
	}
}

// fakeOpenRouter serves canned chat completions in order.
func fakeOpenRouter(t *testing.T, replies ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		prompts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		n := len(prompts)
		if len(body.Messages) > 0 {
			prompts = append(prompts, body.Messages[len(body.Messages)-1].Content)
		}
		mu.Unlock()
		reply := "nothing scripted"
		if n < len(replies) {
			reply = replies[n]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    fmt.Sprintf("gen-%d", n+1),
			"model": "openai/gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func TestCLI_QuestionsFollowUpsExport(t *testing.T) {
	home := isolate(t)
	csvPath := writeCSV(t, home)
	srv, prompts := fakeOpenRouter(t,
		"1. Which plan churns most?\n2. How does tenure relate to churn?",
		"- Is early churn concentrated in the basic plan?",
		"## Overview\n\nFour customers, two churned.",
	)
	t.Setenv("EDAPROMPT_BASE_URL", srv.URL)
	t.Setenv("EDAPROMPT_API_KEY", "sk-test")

	mustExec(t, "session", "create", "demo")
	mustExec(t, "upload", csvPath)

	out := mustExec(t, "questions", "--focus", "tenure")
	if !strings.Contains(out, "Which plan churns most?") {
		t.Fatalf("questions output:\n%s", out)
	}

	out = mustExec(t, "followups", "--pick", "2")
	if !strings.Contains(out, "Question: How does tenure relate to churn?") {
		t.Fatalf("followups output:\n%s", out)
	}
	if len(*prompts) != 2 || !strings.Contains((*prompts)[1], `"How does tenure relate to churn?"`) {
		t.Fatalf("follow-up prompt did not carry the picked question: %q", *prompts)
	}

	mustExec(t, "report", "--json")

	dir := filepath.Join(home, "exports")
	mustExec(t, "export", "questions", "--out-dir", dir)
	b, err := os.ReadFile(filepath.Join(dir, "demo_churn_questions.md"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	md := string(b)
	for _, want := range []string{
		"# AI-Generated EDA Questions",
		"- **Dataset:** churn.csv",
		"- **Focus columns:** tenure",
		"## Follow-up Questions",
		"### How does tenure relate to churn?",
		"Is early churn concentrated in the basic plan?",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("export missing %q:\n%s", want, md)
		}
	}

	mustExec(t, "export", "report", "--html", "--out-dir", dir)
	if _, err := os.Stat(filepath.Join(dir, "demo_churn_report.html")); err != nil {
		t.Fatalf("html report not written: %v", err)
	}
}

func TestCLI_CompletionFailureKeepsSession(t *testing.T) {
	home := isolate(t)
	csvPath := writeCSV(t, home)
	srv, _ := fakeOpenRouter(t, "unused")
	t.Setenv("EDAPROMPT_BASE_URL", srv.URL)
	t.Setenv("EDAPROMPT_API_KEY", "sk-wrong")

	mustExec(t, "session", "create", "demo")
	mustExec(t, "upload", csvPath)
	if _, err := execCLI(t, "questions"); err == nil {
		t.Fatal("expected auth failure")
	}
	if _, err := execCLI(t, "export", "questions", "--stdout"); err == nil {
		t.Fatal("failed generation must not leave questions behind")
	}
}

func TestCLI_SessionSelectDeleteAndConfig(t *testing.T) {
	isolate(t)
	mustExec(t, "session", "create", "alpha")
	mustExec(t, "session", "create", "beta", "--no-select")

	out := mustExec(t, "session", "list")
	var selected string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "*") {
			selected = strings.Fields(line)[1]
		}
	}
	if selected != "alpha" || !strings.Contains(out, "beta") {
		t.Fatalf("list output:\n%s", out)
	}
	if _, err := execCLI(t, "session", "create", "alpha"); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if _, err := execCLI(t, "session", "select", "gamma"); err == nil {
		t.Fatal("expected not found for unknown session")
	}
	mustExec(t, "session", "select", "beta")
	mustExec(t, "session", "delete", "beta", "--yes")
	out = mustExec(t, "session", "list")
	if strings.Contains(out, "beta") {
		t.Fatalf("deleted session still listed:\n%s", out)
	}

	mustExec(t, "config", "set", "default_provider", "Google")
	out = mustExec(t, "config", "show")
	if !strings.Contains(out, "default_provider: gemini") {
		t.Fatalf("config show:\n%s", out)
	}
	if _, err := execCLI(t, "config", "set", "no_such_key", "x"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

func TestEnforceBudget(t *testing.T) {
	if err := enforceBudget(0.02, 0.01); err == nil {
		t.Fatal("expected budget error")
	}
	if err := enforceBudget(0.005, 0.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enforceBudget(5, 0); err != nil {
		t.Fatalf("zero limit disables the check: %v", err)
	}
}

func TestEstimateRequestPricesKnownModel(t *testing.T) {
	req := prompt.Request{System: prompt.SystemMessage, User: strings.Repeat("word ", 400), MaxTokens: 600}
	e := estimateRequest("openai/gpt-4o-mini", req)
	if e.Total != e.Tokens["system"]+e.Tokens["user"] || e.Total == 0 {
		t.Fatalf("token breakdown = %+v", e)
	}
	if !e.Priced || e.CostUSD <= 0 {
		t.Fatalf("expected a priced estimate, got %+v", e)
	}
	if u := estimateRequest("no/such-model", req); u.Priced {
		t.Fatalf("unknown model should not be priced: %+v", u)
	}
}

func TestHint(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"auth", &ai.CompletionError{Kind: ai.FailureAuth, Err: errors.New("401")}, "api_key"},
		{"rate limit", &ai.CompletionError{Kind: ai.FailureRateLimit, Err: &ai.RateLimitError{RetryAfter: 7 * time.Second}}, "~7s"},
		{"unreachable", &ai.CompletionError{Kind: ai.FailureUnreachable, Err: &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}}, "127.0.0.1:11434"},
		{"wrapped", errs.Wrap(errs.ErrKindCompletionService, "completion failed", &ai.CompletionError{Kind: ai.FailureModelNotFound, Err: errors.New("404")}), "models show"},
		{"credential", errs.New(errs.ErrKindMissingCredential, "no key"), "OPENROUTER_API_KEY"},
		{"duplicate", errs.New(errs.ErrKindDuplicateName, "exists"), "session select"},
		{"parse", errs.New(errs.ErrKindParseFailure, "row 3"), "comma-delimited"},
		{"storage", errs.Wrap(errs.ErrKindStorage, "postgres", errors.New("refused")), "store_dsn"},
		{"completion fallback", errs.Wrap(errs.ErrKindCompletionService, "completion failed", &ai.CompletionError{Kind: ai.FailureUnknown, Err: errors.New("eof")}), "--debug"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hint(tc.err); !strings.Contains(got, tc.want) {
				t.Fatalf("hint = %q, want it to mention %q", got, tc.want)
			}
		})
	}
	if got := hint(errors.New("plain")); got != "" {
		t.Fatalf("plain error hint = %q", got)
	}
}

func TestProviderName(t *testing.T) {
	defer func() { flagProv = "" }()
	cases := map[string]string{"": ai.ProviderOpenRouter, "local": ai.ProviderOllama, "Google": ai.ProviderGemini, "openai": ai.ProviderOpenAI}
	for in, want := range cases {
		flagProv = in
		if got := providerName(nil); got != want {
			t.Errorf("providerName(%q) = %q, want %q", in, got, want)
		}
	}
	flagProv = ""
	if got := providerName(&cfgpkg.Global{DefaultProvider: "ollama"}); got != ai.ProviderOllama {
		t.Errorf("config provider not used: %q", got)
	}
}

func TestResolveAPIKeyPromptsOnce(t *testing.T) {
	orig := keyPrompt
	defer func() { keyPrompt = orig }()
	calls := 0
	keyPrompt = func(string) (string, error) {
		calls++
		return "sk-typed", nil
	}
	c := &cfgpkg.Global{}
	for i := 0; i < 2; i++ {
		k, err := resolveAPIKey(c, ai.ProviderOpenRouter)
		if err != nil || k != "sk-typed" {
			t.Fatalf("resolveAPIKey = %q, %v", k, err)
		}
	}
	if calls != 1 {
		t.Fatalf("prompted %d times", calls)
	}
	if k, err := resolveAPIKey(c, ai.ProviderOllama); err != nil || k != "" {
		t.Fatalf("ollama needs no key: %q, %v", k, err)
	}
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://eda:s3cret@db:5432/eda": "postgres://eda:****@db:5432/eda",
		"eda:s3cret@tcp(db:3306)/eda":       "eda:****@tcp(db:3306)/eda",
		"/var/lib/sessions":                 "/var/lib/sessions",
	}
	for in, want := range cases {
		if got := maskDSN(in); got != want {
			t.Errorf("maskDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

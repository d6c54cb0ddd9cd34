package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("EDAPROMPT_API_KEY", "")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultProvider != "openrouter" || c.RetryMaxAttempts != 1 || c.StoreBackend != "file" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.TimeoutSec != 180 || c.LogLevel != "warn" {
		t.Fatalf("unexpected defaults: timeout=%d level=%s", c.TimeoutSec, c.LogLevel)
	}
	if filepath.Base(c.SessionsDir) != "sessions" {
		t.Fatalf("sessions dir = %s", c.SessionsDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EDAPROMPT_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("GEMINI_API_KEY", "gm-test")
	t.Setenv("EDAPROMPT_STORE_BACKEND", "memory")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIKey != "sk-or-test" || c.GeminiAPIKey != "gm-test" {
		t.Fatalf("keys not read from env: %q %q", c.APIKey, c.GeminiAPIKey)
	}
	if c.StoreBackend != "memory" {
		t.Fatalf("store backend = %s", c.StoreBackend)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("EDAPROMPT_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Set(c, "default_provider", "Google"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Set(c, "current_session", "churn"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.DefaultProvider != "gemini" || again.CurrentSession != "churn" {
		t.Fatalf("reloaded = %+v", again)
	}
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	bad := map[string]string{
		"default_provider":   "acme",
		"store_backend":      "redis",
		"retry_max_attempts": "0",
		"max_rows":           "-1",
		"minio_use_ssl":      "maybe",
		"log_level":          "loud",
		"no_such_key":        "x",
	}
	for k, v := range bad {
		if err := Set(c, k, v); err == nil {
			t.Errorf("Set(%s, %s) should fail", k, v)
		}
	}
	if err := Set(c, "retry_max_attempts", "3"); err != nil || c.RetryMaxAttempts != 3 {
		t.Fatalf("retry_max_attempts not set: %v", err)
	}
	if len(Keys()) == 0 {
		t.Fatal("no keys")
	}
}

func TestUpdateKeepsEnvOutOfFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "sk-env-only")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Update(path, func(g *Global) error {
		g.CurrentSession = "churn"
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "sk-env-only") {
		t.Fatalf("env credential leaked into config file:\n%s", b)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.CurrentSession != "churn" || c.APIKey != "sk-env-only" {
		t.Fatalf("loaded = %+v", c)
	}
}

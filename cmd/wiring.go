package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/filestore"
	"github.com/KaramelBytes/edaprompt-cli/internal/filestore/minio"
	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

// providerName resolves --provider, then default_provider.
func providerName(c *cfgpkg.Global) string {
	p := strings.ToLower(strings.TrimSpace(flagProv))
	if p == "" && c != nil {
		p = strings.ToLower(c.DefaultProvider)
	}
	switch p {
	case "", "openrouter":
		return ai.ProviderOpenRouter
	case "local":
		return ai.ProviderOllama
	case "google":
		return ai.ProviderGemini
	}
	return p
}

// selectModel prefers --model, then default_model, then the provider default.
func selectModel(c *cfgpkg.Global, provider string) string {
	if flagModel != "" {
		return flagModel
	}
	if c != nil && c.DefaultModel != "" {
		return c.DefaultModel
	}
	if m, ok := ai.DefaultModel(provider); ok {
		return m
	}
	return "openai/gpt-4o-mini"
}

// keyPrompt reads a credential from the terminal without echo. Swapped in tests.
var keyPrompt = func(provider string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errs.Newf(errs.ErrKindMissingCredential, "no API key for %s and no terminal to ask for one", provider)
	}
	fmt.Fprintf(os.Stderr, "Enter %s API key (input hidden): ", provider)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindMissingCredential, "read API key", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// resolveAPIKey returns the configured key for provider or asks once.
func resolveAPIKey(c *cfgpkg.Global, provider string) (string, error) {
	if !ai.RequiresAPIKey(provider) {
		return "", nil
	}
	key := ""
	if c != nil {
		key = c.APIKey
		if provider == ai.ProviderGemini {
			key = c.GeminiAPIKey
		}
	}
	if key != "" {
		return key, nil
	}
	key, err := keyPrompt(provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errs.Newf(errs.ErrKindMissingCredential, "no API key entered for %s", provider)
	}
	// Keep it for the rest of the process only.
	if c != nil {
		if provider == ai.ProviderGemini {
			c.GeminiAPIKey = key
		} else {
			c.APIKey = key
		}
	}
	return key, nil
}

func runtimeConfig(c *cfgpkg.Global, provider, apiKey string) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    1,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		APIKey:      apiKey,
	}
	if c == nil {
		return rc
	}
	if c.HTTPTimeoutSec > 0 {
		rc.HTTPTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	if c.RetryMaxAttempts > 0 {
		rc.RetryMax = c.RetryMaxAttempts
	}
	if c.RetryBaseDelayMs > 0 {
		rc.BaseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
	}
	if c.RetryMaxDelayMs > 0 {
		rc.MaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	}
	rc.BaseURL = c.BaseURL
	if provider == ai.ProviderOllama {
		rc.Host = c.OllamaHost
		if rc.Host == "" {
			rc.Host = ai.DefaultOllamaHost
		}
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	}
	return rc
}

// buildRuntime resolves provider, credential and model.
func buildRuntime(ctx context.Context, c *cfgpkg.Global) (ai.Runtime, string, string, error) {
	provider := providerName(c)
	key, err := resolveAPIKey(c, provider)
	if err != nil {
		return nil, provider, "", err
	}
	rt, err := ai.NewRuntime(ctx, provider, runtimeConfig(c, provider, key))
	if err != nil {
		return nil, provider, "", err
	}
	return rt, provider, selectModel(c, provider), nil
}

// buildStore opens the configured session backend.
func buildStore(ctx context.Context, c *cfgpkg.Global) (session.Store, error) {
	if c == nil {
		c = &cfgpkg.Global{}
	}
	return session.Open(ctx, c.StoreBackend, c.SessionsDir, c.StoreDSN)
}

// buildFiles returns nil when no object storage endpoint is configured.
func buildFiles(c *cfgpkg.Global) (filestore.Store, error) {
	if c == nil || c.MinioEndpoint == "" {
		return nil, nil
	}
	fc := filestore.DefaultConfig(c.MinioEndpoint, c.MinioAccessKey, c.MinioSecretKey)
	fc.UseSSL = c.MinioUseSSL
	fc.Region = c.MinioRegion
	d, err := minio.New(fc)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// newApp assembles the App; the runtime is only built when withRuntime is set
// so local commands never ask for a key.
func newApp(ctx context.Context, withRuntime bool) (*app.App, func(), error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	a := app.New(store, nil, "")
	a.Log = log
	files, err := buildFiles(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if files != nil {
		a.Files = files
	}
	cleanup := func() {
		if files != nil {
			_ = files.Close()
		}
		_ = store.Close()
	}
	if withRuntime {
		if err := attachRuntime(ctx, a); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return a, cleanup, nil
}

// readLine is used by confirmations.
func readLine(r io.Reader) string {
	s, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(s)
}

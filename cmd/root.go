package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
	"github.com/KaramelBytes/edaprompt-cli/internal/logger"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagSession string
	flagModel   string
	flagProv    string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int
	flagTimeoutSec       int

	// Loaded configuration
	cfg *cfgpkg.Global
	log = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "edaprompt",
	Short: "edaprompt: AI-assisted exploratory data analysis for CSV datasets",
	Long: `edaprompt summarizes the columns of a CSV dataset and asks an LLM for
exploratory questions, column explanations, follow-ups and a narrative report.
Results accumulate in named sessions and can be exported as Markdown or HTML.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.edaprompt/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVarP(&flagSession, "session", "s", "", "session name (default: the selected session)")
	pf.StringVar(&flagModel, "model", "", "model name (default from config or provider)")
	pf.StringVar(&flagProv, "provider", "", "completion provider: openrouter|openai|gemini|ollama")
	pf.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	pf.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config; default 1)")
	pf.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	pf.IntVar(&flagTimeoutSec, "timeout-sec", 0, "timeout for one command in seconds (default 180)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		warnf(os.Stderr, "failed to load config: %v", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("timeout-sec") && flagTimeoutSec > 0 {
		cfg.TimeoutSec = flagTimeoutSec
	}

	lc := logger.DefaultConfig()
	if cfg.LogLevel != "" {
		lc.Level = cfg.LogLevel
	}
	if cfg.LogFormat != "" {
		lc.Format = cfg.LogFormat
	}
	if debug {
		lc.Level = "debug"
	}
	log = logger.New(lc)

	if cfg.ModelsCatalogPath != "" {
		m, err := ai.LoadCatalogFromJSON(cfg.ModelsCatalogPath)
		if err != nil {
			log.Warnf("models catalog %s not loaded: %v", cfg.ModelsCatalogPath, err)
		} else {
			ai.MergeCatalog(m)
		}
	}
}

// commandContext bounds one CLI action by timeout_sec.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	secs := 180
	if cfg != nil && cfg.TimeoutSec > 0 {
		secs = cfg.TimeoutSec
	}
	return context.WithTimeout(log.WithContext(parent), time.Duration(secs)*time.Second)
}

// currentSession resolves --session, then the selected session.
func currentSession() (string, error) {
	if flagSession != "" {
		return flagSession, nil
	}
	if cfg != nil && cfg.CurrentSession != "" {
		return cfg.CurrentSession, nil
	}
	return "", fmt.Errorf("no session selected; run 'edaprompt session create <name>' or pass --session")
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set edaprompt configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		rows := [][2]string{
			{"api_key", mask(cfg.APIKey)},
			{"gemini_api_key", mask(cfg.GeminiAPIKey)},
			{"default_provider", cfg.DefaultProvider},
			{"default_model", cfg.DefaultModel},
			{"base_url", cfg.BaseURL},
			{"http_timeout_sec", fmt.Sprint(cfg.HTTPTimeoutSec)},
			{"retry_max_attempts", fmt.Sprint(cfg.RetryMaxAttempts)},
			{"retry_base_delay_ms", fmt.Sprint(cfg.RetryBaseDelayMs)},
			{"retry_max_delay_ms", fmt.Sprint(cfg.RetryMaxDelayMs)},
			{"timeout_sec", fmt.Sprint(cfg.TimeoutSec)},
			{"ollama_host", cfg.OllamaHost},
			{"store_backend", cfg.StoreBackend},
			{"store_dsn", maskDSN(cfg.StoreDSN)},
			{"sessions_dir", cfg.SessionsDir},
			{"current_session", cfg.CurrentSession},
			{"max_rows", fmt.Sprint(cfg.MaxRows)},
			{"log_level", cfg.LogLevel},
			{"log_format", cfg.LogFormat},
			{"minio_endpoint", cfg.MinioEndpoint},
			{"minio_access_key", mask(cfg.MinioAccessKey)},
			{"export_bucket", cfg.ExportBucket},
			{"export_dir", cfg.ExportDir},
			{"serve_addr", cfg.ServeAddr},
			{"models_catalog_path", cfg.ModelsCatalogPath},
		}
		for _, r := range rows {
			if r[1] == "" {
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", r[0], r[1])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		err := cfgpkg.Update(cfgFile, func(g *cfgpkg.Global) error {
			return cfgpkg.Set(g, key, val)
		})
		if err != nil {
			if strings.HasPrefix(err.Error(), "unknown key") {
				return fmt.Errorf("%w (known keys: %s)", err, strings.Join(cfgpkg.Keys(), ", "))
			}
			return err
		}
		if cfg != nil {
			_ = cfgpkg.Set(cfg, key, val)
		}
		okf(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// maskDSN hides the password in URL-style and MySQL-style DSNs.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	creds := dsn[:at]
	start := strings.Index(creds, "://") + 3
	if start < 3 {
		start = 0
	}
	colon := strings.Index(creds[start:], ":")
	if colon < 0 {
		return dsn
	}
	return creds[:start+colon+1] + "****" + dsn[at:]
}

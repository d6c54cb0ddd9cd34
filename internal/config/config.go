package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey          string `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	DefaultModel    string `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// BaseURL overrides the OpenAI-compatible endpoint root.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// HTTP/Retry configuration. One attempt unless raised.
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	// TimeoutSec bounds one whole CLI action.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Session storage
	StoreBackend   string `mapstructure:"store_backend" yaml:"store_backend"` // memory|file|postgres|mysql
	StoreDSN       string `mapstructure:"store_dsn" yaml:"store_dsn"`
	SessionsDir    string `mapstructure:"sessions_dir" yaml:"sessions_dir"`
	CurrentSession string `mapstructure:"current_session" yaml:"current_session"`

	// Dataset loading
	MaxRows int `mapstructure:"max_rows" yaml:"max_rows"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Object storage (S3-compatible) for datasets and exports
	MinioEndpoint  string `mapstructure:"minio_endpoint" yaml:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key" yaml:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key" yaml:"minio_secret_key"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl" yaml:"minio_use_ssl"`
	MinioRegion    string `mapstructure:"minio_region" yaml:"minio_region"`
	ExportBucket   string `mapstructure:"export_bucket" yaml:"export_bucket"`

	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`
	ServeAddr string `mapstructure:"serve_addr" yaml:"serve_addr"`
	// ModelsCatalogPath points at a JSON catalog merged at startup.
	ModelsCatalogPath string `mapstructure:"models_catalog_path" yaml:"models_catalog_path"`
}

// Dir returns the per-user config directory, ~/.edaprompt.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaprompt"), nil
}

// Path returns cfgFile or the default ~/.edaprompt/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaprompt/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// Credentials live in this file.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Update applies fn to the defaults merged with the config file, leaving
// environment overrides out so they are never written back.
func Update(cfgFile string, fn func(*Global) error) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	c, err := load(path, false)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return Save(c, path)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	return load(cfgFile, true)
}

func load(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	if withEnv {
		v.SetEnvPrefix("EDAPROMPT")
		v.AutomaticEnv()
		// Provider-native variable names are honored too.
		_ = v.BindEnv("api_key", "EDAPROMPT_API_KEY", "OPENROUTER_API_KEY")
		_ = v.BindEnv("gemini_api_key", "EDAPROMPT_GEMINI_API_KEY", "GEMINI_API_KEY")
	}

	v.SetDefault("api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("default_model", "")
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("base_url", "")
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("timeout_sec", 180)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("store_backend", "file")
	v.SetDefault("store_dsn", "")
	v.SetDefault("sessions_dir", "")
	v.SetDefault("current_session", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_use_ssl", true)
	v.SetDefault("minio_region", "")
	v.SetDefault("export_bucket", "")
	v.SetDefault("export_dir", ".")
	v.SetDefault("serve_addr", "127.0.0.1:8080")
	v.SetDefault("models_catalog_path", "")

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.SessionsDir == "" {
		c.SessionsDir = filepath.Join(dir, "sessions")
	}
	return &c, nil
}

var providers = map[string]string{
	"openrouter": "openrouter",
	"openai":     "openai",
	"gemini":     "gemini",
	"google":     "gemini",
	"ollama":     "ollama",
	"local":      "ollama",
}

var backends = map[string]bool{"memory": true, "file": true, "postgres": true, "mysql": true}

// Keys lists the names accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(c *Global, val string) error{
	"api_key":         func(c *Global, v string) error { c.APIKey = v; return nil },
	"gemini_api_key":  func(c *Global, v string) error { c.GeminiAPIKey = v; return nil },
	"default_model":   func(c *Global, v string) error { c.DefaultModel = v; return nil },
	"base_url":        func(c *Global, v string) error { c.BaseURL = v; return nil },
	"ollama_host":     func(c *Global, v string) error { c.OllamaHost = v; return nil },
	"store_dsn":       func(c *Global, v string) error { c.StoreDSN = v; return nil },
	"sessions_dir":    func(c *Global, v string) error { c.SessionsDir = v; return nil },
	"current_session": func(c *Global, v string) error { c.CurrentSession = v; return nil },
	"log_format":      func(c *Global, v string) error { c.LogFormat = v; return nil },
	"minio_endpoint":  func(c *Global, v string) error { c.MinioEndpoint = v; return nil },
	"minio_region":    func(c *Global, v string) error { c.MinioRegion = v; return nil },
	"export_bucket":   func(c *Global, v string) error { c.ExportBucket = v; return nil },
	"export_dir":      func(c *Global, v string) error { c.ExportDir = v; return nil },
	"serve_addr":      func(c *Global, v string) error { c.ServeAddr = v; return nil },
	"models_catalog_path": func(c *Global, v string) error {
		c.ModelsCatalogPath = v
		return nil
	},
	"default_provider": func(c *Global, v string) error {
		p, ok := providers[strings.ToLower(v)]
		if !ok {
			return fmt.Errorf("invalid default_provider: %s (use openrouter, openai, gemini or ollama)", v)
		}
		c.DefaultProvider = p
		return nil
	},
	"store_backend": func(c *Global, v string) error {
		v = strings.ToLower(v)
		if !backends[v] {
			return fmt.Errorf("invalid store_backend: %s (use memory, file, postgres or mysql)", v)
		}
		c.StoreBackend = v
		return nil
	},
	"log_level": func(c *Global, v string) error {
		switch v {
		case "debug", "info", "warn", "error", "disabled":
			c.LogLevel = v
			return nil
		}
		return fmt.Errorf("invalid log_level: %s", v)
	},
	"minio_use_ssl": func(c *Global, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid bool for minio_use_ssl: %v", v)
		}
		c.MinioUseSSL = b
		return nil
	},
	"http_timeout_sec":    intSetter(func(c *Global) *int { return &c.HTTPTimeoutSec }, 1),
	"retry_max_attempts":  intSetter(func(c *Global) *int { return &c.RetryMaxAttempts }, 1),
	"retry_base_delay_ms": intSetter(func(c *Global) *int { return &c.RetryBaseDelayMs }, 0),
	"retry_max_delay_ms":  intSetter(func(c *Global) *int { return &c.RetryMaxDelayMs }, 0),
	"timeout_sec":         intSetter(func(c *Global) *int { return &c.TimeoutSec }, 1),
	"ollama_timeout_sec":  intSetter(func(c *Global) *int { return &c.OllamaTimeoutSec }, 1),
	"max_rows":            intSetter(func(c *Global) *int { return &c.MaxRows }, 0),
}

func intSetter(field func(*Global) *int, min int) func(*Global, string) error {
	return func(c *Global, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil || i < min {
			return fmt.Errorf("invalid int %q (minimum %d)", v, min)
		}
		*field(c) = i
		return nil
	}
}

// Set assigns one key from its string form, validating enumerations.
func Set(c *Global, key, val string) error {
	f, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := f(c, val); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codex-audit/internal/analysis"
	"codex-audit/internal/render"
)

// EnvPrefix namespaces environment overrides, e.g. CODEX_AUDIT_WORKERS.
const EnvPrefix = "CODEX_AUDIT"

const (
	keyCodexHome      = "codex_home"
	keyExportDir      = "export_dir"
	keyLogLevel       = "log_level"
	keyMarkdownStyle  = "markdown_style"
	keyWrap           = "wrap"
	keyWorkers        = "workers"
	keyRiskWeight     = "risk_weight"
	keyDedupe         = "dedupe_messages"
	keyDedupeWindow   = "dedupe_window"
	keyResponseTokens = "include_response_item_tokens"
)

type AppConfig struct {
	CodexHome                 string        `mapstructure:"codex_home"`
	ExportDir                 string        `mapstructure:"export_dir"`
	LogLevel                  string        `mapstructure:"log_level"`
	MarkdownStyle             string        `mapstructure:"markdown_style"`
	Wrap                      int           `mapstructure:"wrap"`
	Workers                   int           `mapstructure:"workers"`
	RiskWeight                int           `mapstructure:"risk_weight"`
	DedupeMessages            bool          `mapstructure:"dedupe_messages"`
	DedupeWindow              time.Duration `mapstructure:"dedupe_window"`
	IncludeResponseItemTokens bool          `mapstructure:"include_response_item_tokens"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// RegisterFlags adds the shared flags to fs and binds them to v. Flag names
// use dashes; config and env keys use underscores.
func RegisterFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("codex-home", "", "path to CODEX_HOME (default $CODEX_HOME or ~/.codex)")
	fs.String("export-dir", "", "override export output directory")
	fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.String("markdown-style", render.DefaultMarkdownStyle, "glamour style for transcripts")
	fs.Int("wrap", 100, "transcript word wrap width")
	fs.Int("workers", 1, "sessions analyzed in parallel")
	fs.Int("risk-weight", analysis.DefaultRiskWeight, "risk points per finding")
	fs.Bool("dedupe-messages", false, "drop messages repeated across event encodings")
	fs.Duration("dedupe-window", 0, "time window for duplicate messages")
	fs.Bool("include-response-item-tokens", false, "count token_count payloads under response_item")

	for _, key := range []string{
		keyCodexHome, keyExportDir, keyLogLevel, keyMarkdownStyle, keyWrap,
		keyWorkers, keyRiskWeight, keyDedupe, keyDedupeWindow, keyResponseTokens,
	} {
		if err := v.BindPFlag(key, fs.Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and env overrides applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyCodexHome, "")
	v.SetDefault(keyExportDir, "")
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyMarkdownStyle, render.DefaultMarkdownStyle)
	v.SetDefault(keyWrap, 100)
	v.SetDefault(keyWorkers, 1)
	v.SetDefault(keyRiskWeight, analysis.DefaultRiskWeight)
	v.SetDefault(keyDedupe, false)
	v.SetDefault(keyDedupeWindow, time.Duration(0))
	v.SetDefault(keyResponseTokens, false)
	return v
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are not an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the optional config file and resolves the final configuration.
// Precedence is flags, then environment, then the file, then defaults.
func Load(v *viper.Viper, configFile string) (AppConfig, error) {
	var cfg AppConfig

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "codex-audit"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	var err error
	cfg.CodexHome, err = DetectCodexHome(cfg.CodexHome)
	if err != nil {
		return cfg, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}

// AnalysisOptions maps the configuration onto analyzer options.
func (c AppConfig) AnalysisOptions(logger *log.Logger) analysis.Options {
	opts := analysis.DefaultOptions()
	opts.Logger = logger
	opts.Workers = c.Workers
	opts.DedupeMessages = c.DedupeMessages
	opts.DedupeWindow = c.DedupeWindow
	opts.IncludeResponseItemTokens = c.IncludeResponseItemTokens
	if c.RiskWeight > 0 {
		opts.RiskWeight = c.RiskWeight
	}
	return opts
}

func DetectCodexHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("CODEX_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

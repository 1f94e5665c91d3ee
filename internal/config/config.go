// Package config loads rawget settings from defaults, an optional config
// file, a .env file, RAWGET_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0x6d61/rawget/internal/transport"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RAWGET"

// Config holds the resolved settings for one invocation.
type Config struct {
	Host         string        `mapstructure:"host"`
	Path         string        `mapstructure:"path"`
	Port         int           `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RPS          float64       `mapstructure:"rps"`
	LegacyParse  bool          `mapstructure:"legacy_parse"`
	Format       string        `mapstructure:"format"`
	LogLevel     string        `mapstructure:"log_level"`
	HistoryStore string        `mapstructure:"history_store"`
	HistoryPath  string        `mapstructure:"history_path"`
}

// Options controls where Load looks for settings.
type Options struct {
	// EnvFile is the dotenv file to load. Empty means ".env"; a missing
	// file is not an error.
	EnvFile string

	// ConfigFile is an explicit config file (yaml, json or toml). Empty
	// means none.
	ConfigFile string

	// Flags, when set, override every other source for the flags the user
	// changed.
	Flags *pflag.FlagSet
}

// flagKeys maps command flag names to config keys.
var flagKeys = map[string]string{
	"host":          "host",
	"port":          "port",
	"timeout":       "timeout",
	"rps":           "rps",
	"legacy-parse":  "legacy_parse",
	"format":        "format",
	"log-level":     "log_level",
	"history-store": "history_store",
	"history-path":  "history_path",
}

// Defaults returns the configuration used when no source overrides it.
func Defaults() Config {
	return Config{
		Host:         transport.DefaultHost,
		Path:         transport.DefaultPath,
		Port:         transport.DefaultPort,
		Format:       "text",
		LogLevel:     "warn",
		HistoryStore: "none",
		HistoryPath:  "./rawget-history.db",
	}
}

// Load resolves the configuration. Precedence, highest first: changed
// flags, environment, config file, defaults.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := viper.New()

	d := Defaults()
	v.SetDefault("host", d.Host)
	v.SetDefault("path", d.Path)
	v.SetDefault("port", d.Port)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("rps", d.RPS)
	v.SetDefault("legacy_parse", d.LegacyParse)
	v.SetDefault("format", d.Format)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("history_store", d.HistoryStore)
	v.SetDefault("history_path", d.HistoryPath)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d (must be 1-65535)", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: invalid timeout %s (must not be negative)", c.Timeout)
	}
	if c.RPS < 0 {
		return fmt.Errorf("config: invalid rps %v (must not be negative)", c.RPS)
	}
	return nil
}

// ParseMode returns the header parse mode selected by LegacyParse.
func (c *Config) ParseMode() transport.ParseMode {
	if c.LegacyParse {
		return transport.ModeLegacyCR
	}
	return transport.ModeCRLF
}

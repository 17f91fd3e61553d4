// Package config loads scribe configuration from defaults, an optional .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment overrides (SCRIBE_TOKEN_URL, ...).
const EnvPrefix = "SCRIBE"

// DefaultAPIKeyEnv is the server-held default credential read by the token
// intermediary.
const DefaultAPIKeyEnv = "ELEVENLABS_API_KEY"

// Config holds the configuration shared by the client and the intermediary.
type Config struct {
	// Client
	DataDir    string `mapstructure:"data_dir" validate:"required"`
	DBPath     string `mapstructure:"db_path" validate:"required"`
	SocketPath string `mapstructure:"socket_path" validate:"required"`
	TokenURL   string `mapstructure:"token_url" validate:"required,url"`
	ModelID    string `mapstructure:"model_id" validate:"required"`
	ExportDir  string `mapstructure:"export_dir" validate:"required"`

	// Intermediary
	ListenAddr    string `mapstructure:"listen_addr" validate:"required"`
	UpstreamURL   string `mapstructure:"upstream_url" validate:"required,url"`
	DefaultAPIKey string `mapstructure:"api_key"`

	// Logging
	LogLevel  string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=console json"`
	LogFile   string `mapstructure:"log_file"`
}

// DefaultDataDir returns the per-user directory for the settings database,
// the log file and exports.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "Scribe")
}

// Load reads envFile (if present) into the process environment, then
// resolves every setting from defaults and environment overrides.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("socket_path", "")
	v.SetDefault("token_url", "http://localhost:8787/token")
	v.SetDefault("model_id", "scribe_v2_realtime")
	v.SetDefault("export_dir", "")
	v.SetDefault("listen_addr", ":8787")
	v.SetDefault("upstream_url", "https://api.elevenlabs.io")
	v.SetDefault("api_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")

	if err := v.BindEnv("api_key", DefaultAPIKeyEnv); err != nil {
		return nil, fmt.Errorf("bind %s: %w", DefaultAPIKeyEnv, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived fills paths that default relative to DataDir.
func (c *Config) applyDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "scribe.sqlite")
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "scribe.sock")
	}
	if c.ExportDir == "" {
		c.ExportDir = c.DataDir
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

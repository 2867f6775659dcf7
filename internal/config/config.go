// Package config resolves the file/environment/default layer of
// glance's configuration precedence chain (CLI flag > persisted
// state-store setting > environment variable > built-in default).
// CLI flags and state-store rows are merged on top of what this
// package returns by cmd/glance.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the file/env/default layer of glance's configuration.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	LLM        LLMConfig        `mapstructure:"llm"`
	UI         UIConfig         `mapstructure:"ui"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Debug      bool             `mapstructure:"debug"`
}

// ConnectionConfig holds the default database connection parameters
// used when no --connection profile and no positional connection
// string are given.
type ConnectionConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	PasswordCommand string `mapstructure:"password_command"`
	SSLMode         string `mapstructure:"sslmode"`
	PoolMaxConns    int    `mapstructure:"pool_max_conns"`
	PoolMinConns    int    `mapstructure:"pool_min_conns"`
}

// LLMConfig holds the default LLM provider/model used when no
// persisted LlmSettings row overrides it.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// UIConfig holds front-end display preferences.
type UIConfig struct {
	Theme           string        `mapstructure:"theme"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	DateFormat      string        `mapstructure:"date_format"`
	OutputFormat    string        `mapstructure:"output_format"`
}

// LoggingConfig sizes the rotating log file and the /debug ring
// buffer. RingBufferSize is the one glance-specific knob the teacher's
// monitoring daemon never needed: a headless assertion script that
// runs many statements in one session wants more WARN/ERROR history
// available to `/debug` than the default interactive session does.
type LoggingConfig struct {
	MaxSizeMB      int  `mapstructure:"max_size_mb"`
	MaxBackups     int  `mapstructure:"max_backups"`
	MaxAgeDays     int  `mapstructure:"max_age_days"`
	Compress       bool `mapstructure:"compress"`
	RingBufferSize int  `mapstructure:"ring_buffer_size"`
}

// Load reads ~/.config/glance/config.{yaml,toml} plus ./config.yaml,
// layered under GLANCE_*-prefixed environment variables and built-in
// defaults. An explicit configPath (the CLI's --config flag) bypasses
// the search path entirely and reads that file instead.
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/glance")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GLANCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// GLANCE_DB_POOL_SIZE is the name spec.md gives this knob; bind it
	// alongside the GLANCE_CONNECTION_POOL_MAX_CONNS name AutomaticEnv
	// already derives from the prefix/key-replacer so either works.
	// The value is validated but not passed to the Database Gateway,
	// whose Postgres pool size is fixed in internal/dbgateway.
	viper.BindEnv("connection.pool_max_conns", "GLANCE_DB_POOL_SIZE", "GLANCE_CONNECTION_POOL_MAX_CONNS")

	applyDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Host:         viper.GetString("connection.host"),
			Port:         viper.GetInt("connection.port"),
			Database:     viper.GetString("connection.database"),
			User:         viper.GetString("connection.user"),
			PasswordCommand: viper.GetString("connection.password_command"),
			SSLMode:      viper.GetString("connection.sslmode"),
			PoolMaxConns: viper.GetInt("connection.pool_max_conns"),
			PoolMinConns: viper.GetInt("connection.pool_min_conns"),
		},
		LLM: LLMConfig{
			Provider: viper.GetString("llm.provider"),
			Model:    viper.GetString("llm.model"),
		},
		UI: UIConfig{
			Theme:           viper.GetString("ui.theme"),
			RefreshInterval: viper.GetDuration("ui.refresh_interval"),
			DateFormat:      viper.GetString("ui.date_format"),
			OutputFormat:    viper.GetString("ui.output_format"),
		},
		Logging: LoggingConfig{
			MaxSizeMB:      viper.GetInt("logging.max_size_mb"),
			MaxBackups:     viper.GetInt("logging.max_backups"),
			MaxAgeDays:     viper.GetInt("logging.max_age_days"),
			Compress:       viper.GetBool("logging.compress"),
			RingBufferSize: viper.GetInt("logging.ring_buffer_size"),
		},
		Debug: viper.GetBool("debug"),
	}
}

// Validate checks value ranges and enumerations, returning a
// descriptive error for the first violation found.
func Validate(cfg *Config) error {
	if cfg.Connection.Port < 1 || cfg.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be between 1 and 65535, got %d", cfg.Connection.Port)
	}

	validSSLModes := []string{"disable", "prefer", "require"}
	if !oneOf(cfg.Connection.SSLMode, validSSLModes) {
		return fmt.Errorf("connection.sslmode must be one of %v, got %q", validSSLModes, cfg.Connection.SSLMode)
	}

	if cfg.Connection.PoolMaxConns < 1 {
		return fmt.Errorf("connection.pool_max_conns must be >= 1, got %d", cfg.Connection.PoolMaxConns)
	}
	if cfg.Connection.PoolMinConns < 0 {
		return fmt.Errorf("connection.pool_min_conns must be >= 0, got %d", cfg.Connection.PoolMinConns)
	}
	if cfg.Connection.PoolMaxConns < cfg.Connection.PoolMinConns {
		return fmt.Errorf("connection.pool_max_conns (%d) must be >= pool_min_conns (%d)",
			cfg.Connection.PoolMaxConns, cfg.Connection.PoolMinConns)
	}

	validThemes := []string{"dark", "light"}
	if !oneOf(cfg.UI.Theme, validThemes) {
		return fmt.Errorf("ui.theme must be one of %v, got %q", validThemes, cfg.UI.Theme)
	}

	validOutputs := []string{"text", "json"}
	if !oneOf(cfg.UI.OutputFormat, validOutputs) {
		return fmt.Errorf("ui.output_format must be one of %v, got %q", validOutputs, cfg.UI.OutputFormat)
	}

	if cfg.UI.RefreshInterval < 100*time.Millisecond || cfg.UI.RefreshInterval > 60*time.Second {
		return fmt.Errorf("ui.refresh_interval must be between 100ms and 60s, got %v", cfg.UI.RefreshInterval)
	}

	if cfg.Logging.RingBufferSize < 1 {
		return fmt.Errorf("logging.ring_buffer_size must be >= 1, got %d", cfg.Logging.RingBufferSize)
	}
	if cfg.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be >= 1, got %d", cfg.Logging.MaxSizeMB)
	}

	return nil
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// libpqFallback returns the PG-prefixed environment variable's value
// if set, otherwise fallback. PGHOST/PGPORT/PGDATABASE/PGUSER follow
// the same psql convention PGPASSWORD already does in
// internal/secretinput.ResolvePassword, sitting below the config file
// and GLANCE_* environment variables in precedence but above the
// hardcoded built-in defaults.
func libpqFallback(envVar, fallback string) string {
	if v, ok := os.LookupEnv(envVar); ok && v != "" {
		return v
	}
	return fallback
}

func applyDefaults() {
	viper.SetDefault("connection.host", libpqFallback("PGHOST", "localhost"))

	port := 5432
	if v, ok := os.LookupEnv("PGPORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	viper.SetDefault("connection.port", port)

	viper.SetDefault("connection.database", libpqFallback("PGDATABASE", "postgres"))

	if user := libpqFallback("PGUSER", os.Getenv("USER")); user != "" {
		viper.SetDefault("connection.user", user)
	} else {
		viper.SetDefault("connection.user", "postgres")
	}

	viper.SetDefault("connection.sslmode", "prefer")
	viper.SetDefault("connection.pool_max_conns", 10)
	viper.SetDefault("connection.pool_min_conns", 2)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-5")

	viper.SetDefault("ui.theme", "dark")
	viper.SetDefault("ui.refresh_interval", "1s")
	viper.SetDefault("ui.date_format", "2006-01-02 15:04:05")
	viper.SetDefault("ui.output_format", "text")

	viper.SetDefault("logging.max_size_mb", 10)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age_days", 7)
	viper.SetDefault("logging.compress", true)
	viper.SetDefault("logging.ring_buffer_size", 100)

	viper.SetDefault("debug", false)
}

// Package config provides configuration management for the migration tool.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gomigrate/internal/domain"
)

// Default configuration values.
const (
	defaultStorePath   = "gomigrate.db"
	defaultConcurrency = 8
	defaultLogLevel    = "info"
	defaultLogEncoding = "console"
)

// SourceConfig holds the source registrar's API settings.
type SourceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// DestConfig holds the destination provider's API settings.
type DestConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIToken  string `mapstructure:"api_token"`
	AccountID string `mapstructure:"account_id"`
}

// MigrationConfig holds the pipeline options.
type MigrationConfig struct {
	StorePath   string `mapstructure:"store_path"`
	Concurrency int    `mapstructure:"concurrency"`
	MigrateDNS  bool   `mapstructure:"migrate_dns"`
	Proxied     bool   `mapstructure:"proxied"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Config is the unified tool configuration.
type Config struct {
	Source     SourceConfig              `mapstructure:"source"`
	Dest       DestConfig                `mapstructure:"dest"`
	Migration  MigrationConfig           `mapstructure:"migration"`
	Logging    LoggingConfig             `mapstructure:"logging"`
	Registrant *domain.RegistrantContact `mapstructure:"registrant"`
}

// Load reads configuration from the given file (optional), the standard
// search paths, and GOMIGRATE_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gomigrate")
	}

	v.SetEnvPrefix("GOMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; env vars and flags cover it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("migration.store_path", defaultStorePath)
	v.SetDefault("migration.concurrency", defaultConcurrency)
	v.SetDefault("migration.migrate_dns", true)
	v.SetDefault("migration.proxied", false)
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.encoding", defaultLogEncoding)
}

// Validate checks that the credential fields required to talk to both
// providers are present.
func (c *Config) Validate() error {
	if c.Source.APIKey == "" || c.Source.APISecret == "" {
		return errors.New("source api_key and api_secret are required")
	}
	if c.Dest.APIToken == "" {
		return errors.New("dest api_token is required")
	}
	if c.Dest.AccountID == "" {
		return errors.New("dest account_id is required")
	}
	return nil
}

// HasRegistrant reports whether transfer-capable registrant contact
// data is configured.
func (c *Config) HasRegistrant() bool {
	return c.Registrant != nil && c.Registrant.Email != ""
}

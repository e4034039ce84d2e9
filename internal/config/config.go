// Package config provides configuration management.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"interpreting-pricing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Pricing contains engine settings
	Pricing PricingConfig `mapstructure:"pricing"`

	// Postgres contains rate store settings
	Postgres PostgresConfig `mapstructure:"postgres"`

	// HTTP contains API server settings
	HTTP HTTPConfig `mapstructure:"http"`

	// Metrics toggles the prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Logging contains logging configuration
	Logging logging.Config `mapstructure:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// PeakHour is the hour of day after which after-hours rates apply
	PeakHour int `mapstructure:"peak_hour"`

	// Timezone is the IANA zone appointments are scheduled in
	Timezone string `mapstructure:"timezone"`

	// TaxJurisdiction is the ISO country code where GST applies
	TaxJurisdiction string `mapstructure:"tax_jurisdiction"`

	// SeedsFile is the HCL file with per-category seed prices
	SeedsFile string `mapstructure:"seeds_file"`
}

// PostgresConfig contains rate store settings
type PostgresConfig struct {
	// DSN is the connection string; empty disables persistence
	DSN string `mapstructure:"dsn"`

	// MigrateOnStart applies goose migrations when the server starts
	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// HTTPConfig contains API settings
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Pricing: PricingConfig{
			PeakHour:        22,
			Timezone:        "Australia/Sydney",
			TaxJurisdiction: "AU",
			SeedsFile:       "seeds.hcl",
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Enabled: true},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from path (optional) and INTERP_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("INTERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("pricing.peak_hour", d.Pricing.PeakHour)
	v.SetDefault("pricing.timezone", d.Pricing.Timezone)
	v.SetDefault("pricing.tax_jurisdiction", d.Pricing.TaxJurisdiction)
	v.SetDefault("pricing.seeds_file", d.Pricing.SeedsFile)
	v.SetDefault("postgres.dsn", d.Postgres.DSN)
	v.SetDefault("postgres.migrate_on_start", d.Postgres.MigrateOnStart)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.development", d.Logging.Development)
}

// Validate checks values the engine cannot work around
func (c *Config) Validate() error {
	if c.Pricing.PeakHour < 0 || c.Pricing.PeakHour > 23 {
		return fmt.Errorf("pricing.peak_hour must be within 0..23, got %d", c.Pricing.PeakHour)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Pricing.TaxJurisdiction) == "" {
		return fmt.Errorf("pricing.tax_jurisdiction is required")
	}
	return nil
}

// Location resolves the scheduling time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Pricing.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pricing.timezone %q: %w", c.Pricing.Timezone, err)
	}
	return loc, nil
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}

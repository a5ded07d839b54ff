// Package config handles configuration loading for smevalue.
// It supports YAML config files with environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Valuation ValuationConfig `mapstructure:"valuation" yaml:"valuation" json:"valuation"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"     json:"store"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"       json:"api"`
	Batch     BatchConfig     `mapstructure:"batch"     yaml:"batch"     json:"batch"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"   json:"logging"`

	file string // config file the values were read from, if any
}

// File returns the path of the config file that was loaded, or "" when
// only defaults and environment variables were used.
func (c *Config) File() string {
	return c.file
}

// ValuationConfig holds the engine's tunable constants and an optional
// sector catalog override.
type ValuationConfig struct {
	CatalogFile string `mapstructure:"catalog_file" yaml:"catalog_file" json:"catalog_file"` // empty = builtin table

	SmallRevenueBelow float64 `mapstructure:"small_revenue_below" yaml:"small_revenue_below" json:"small_revenue_below"`
	LargeRevenueAbove float64 `mapstructure:"large_revenue_above" yaml:"large_revenue_above" json:"large_revenue_above"`
	GrowthTolerance   float64 `mapstructure:"growth_tolerance"    yaml:"growth_tolerance"    json:"growth_tolerance"`
	MarginTolerance   float64 `mapstructure:"margin_tolerance"    yaml:"margin_tolerance"    json:"margin_tolerance"`

	MissingDataPenalty float64 `mapstructure:"missing_data_penalty" yaml:"missing_data_penalty" json:"missing_data_penalty"`

	BaseSpread         float64 `mapstructure:"base_spread"          yaml:"base_spread"          json:"base_spread"`
	DispersionWeight   float64 `mapstructure:"dispersion_weight"    yaml:"dispersion_weight"    json:"dispersion_weight"`
	SingleMethodSpread float64 `mapstructure:"single_method_spread" yaml:"single_method_spread" json:"single_method_spread"`
	MinSpread          float64 `mapstructure:"min_spread"           yaml:"min_spread"           json:"min_spread"`
	MaxSpread          float64 `mapstructure:"max_spread"           yaml:"max_spread"           json:"max_spread"`

	MaxDispersion            float64 `mapstructure:"max_dispersion"             yaml:"max_dispersion"             json:"max_dispersion"`
	SingleMethodFactor       float64 `mapstructure:"single_method_factor"       yaml:"single_method_factor"       json:"single_method_factor"`
	FallbackConfidenceFactor float64 `mapstructure:"fallback_confidence_factor" yaml:"fallback_confidence_factor" json:"fallback_confidence_factor"`

	NarrativeMargin float64 `mapstructure:"narrative_margin" yaml:"narrative_margin" json:"narrative_margin"`
}

// StoreConfig holds report persistence settings.
type StoreConfig struct {
	Enabled  bool   `mapstructure:"enabled"   yaml:"enabled"   json:"enabled"`
	Path     string `mapstructure:"path"      yaml:"path"      json:"path"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory" json:"in_memory"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host"                json:"host"`
	Port              int      `mapstructure:"port"                yaml:"port"                json:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins"        json:"cors_origins"`
	RateLimitPerSec   float64  `mapstructure:"rate_limit_per_sec"  yaml:"rate_limit_per_sec"  json:"rate_limit_per_sec"` // 0 disables
	RateLimitBurst    int      `mapstructure:"rate_limit_burst"    yaml:"rate_limit_burst"    json:"rate_limit_burst"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" json:"request_timeout_sec"`
	AuthToken         string   `mapstructure:"auth_token"          yaml:"auth_token"          json:"-"` // bearer token for write routes; empty = open
}

// BatchConfig holds batch runner settings.
type BatchConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// envPrefix is prepended to every environment override.
const envPrefix = "SMEVALUE"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.smevalue/config.yaml (home directory)
//  3. /etc/smevalue/config.yaml (system)
//
// Environment variables override config file values.
// Format: SMEVALUE_<SECTION>_<KEY>, e.g., SMEVALUE_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".smevalue"))
	v.AddConfigPath("/etc/smevalue")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "error reading config file")
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(err, "error reading config file %s", path)
	}

	return decode(v)
}

// Default returns the built-in defaults with environment overrides applied,
// ignoring any config file.
func Default() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "error unmarshaling config")
	}

	overrideFromEnv(&cfg)
	cfg.file = v.ConfigFileUsed()
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Valuation.CatalogFile = expandHome(cfg.Valuation.CatalogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Valuation defaults (mirror valuation.DefaultParams)
	v.SetDefault("valuation.catalog_file", "")
	v.SetDefault("valuation.small_revenue_below", 1_000_000)
	v.SetDefault("valuation.large_revenue_above", 10_000_000)
	v.SetDefault("valuation.growth_tolerance", 5.0)
	v.SetDefault("valuation.margin_tolerance", 5.0)
	v.SetDefault("valuation.missing_data_penalty", 0.5)
	v.SetDefault("valuation.base_spread", 0.15)
	v.SetDefault("valuation.dispersion_weight", 0.5)
	v.SetDefault("valuation.single_method_spread", 0.05)
	v.SetDefault("valuation.min_spread", 0.10)
	v.SetDefault("valuation.max_spread", 0.40)
	v.SetDefault("valuation.max_dispersion", 0.4)
	v.SetDefault("valuation.single_method_factor", 0.8)
	v.SetDefault("valuation.fallback_confidence_factor", 0.6)
	v.SetDefault("valuation.narrative_margin", 3.0)

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "~/.smevalue/data")
	v.SetDefault("store.in_memory", false)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limit_per_sec", 5.0)
	v.SetDefault("api.rate_limit_burst", 10)
	v.SetDefault("api.request_timeout_sec", 30)
	v.SetDefault("api.auth_token", "")

	// Batch defaults
	v.SetDefault("batch.workers", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects values the rest of the application cannot work with.
// Cross-field checks on the valuation constants live in valuation.Params.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 0 and 65535")
	}
	if c.API.RateLimitPerSec < 0 {
		errs = append(errs, "api.rate_limit_per_sec must be >= 0")
	}
	if c.API.RateLimitPerSec > 0 && c.API.RateLimitBurst < 1 {
		errs = append(errs, "api.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}
	if c.API.RequestTimeoutSec < 0 {
		errs = append(errs, "api.request_timeout_sec must be >= 0")
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, "batch.workers must be >= 1")
	}
	if c.Store.Enabled && !c.Store.InMemory && c.Store.Path == "" {
		errs = append(errs, "store.path is required unless store.in_memory is set")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(envAuthToken); key != "" {
		cfg.API.AuthToken = key
	}
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file if
// present), loads them into structured Go types and validates that
// required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the process fails fast on bad/missing config.
//   - Provide defaults for optional config blocks (maintenance, observability).
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the prefix WALTZ_. After the prefix is removed
	keys are lowercased and a double underscore marks nesting:

	  WALTZ_DATABASE__HOST            -> database.host      -> Config.Database.Host
	  WALTZ_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level

	Single underscores are kept, so WALTZ_DATABASE__SSL_MODE maps to
	database.ssl_mode.
*/

// EnvPrefix is the prefix every recognised variable carries.
const EnvPrefix = "WALTZ_"

// Config is the root configuration object for the application.
//
// Maintenance and Observability are pointers because they are optional.
// If not provided, defaults are injected by LoadConfig.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Maintenance   *MaintenanceConfig   `koanf:"maintenance"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// ConnMaxLifetime and ConnMaxIdleTime are seconds.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// DSN builds the postgres URL for this config. The password is URL
// escaped and IPv6 hosts are bracketed.
func (d DatabaseConfig) DSN() string {
	hostPort := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User,
		url.QueryEscape(d.Password),
		hostPort,
		d.Name,
		d.SSLMode,
	)
}

// RedisConfig contains Redis connection details for the maintenance
// job queue. Address is "host:port"; empty disables the worker.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// MaintenanceConfig controls the scheduled data repair jobs.
type MaintenanceConfig struct {
	// Enabled toggles registration of the periodic cleanup task.
	Enabled bool `koanf:"enabled"`

	// CleanupCron is a cron spec (or "@every 1h" style) for orphan cleanup.
	CleanupCron string `koanf:"cleanup_cron" validate:"required"`

	// TaskTimeout bounds a single cleanup run.
	TaskTimeout time.Duration `koanf:"task_timeout" validate:"min=1s"`
}

// DefaultMaintenanceConfig runs orphan cleanup nightly.
func DefaultMaintenanceConfig() *MaintenanceConfig {
	return &MaintenanceConfig{
		Enabled:     true,
		CleanupCron: "0 2 * * *",
		TaskTimeout: 5 * time.Minute,
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config structs, validates it, applies defaults, and returns the resulting config.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if mainConfig.Maintenance == nil {
		mainConfig.Maintenance = DefaultMaintenanceConfig()
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary block so
	// logs and traces line up.
	mainConfig.Observability.ServiceName = "waltz-data"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct tag rules and the observability rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("invalid observability config: %w", err)
		}
	}

	return nil
}

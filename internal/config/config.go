// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds the service settings. Values come from the defaults, then an
// optional YAML file, then the environment.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Loans     LoanConfig      `yaml:"loans"`
	Session   SessionConfig   `yaml:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

type DatabaseConfig struct {
	// Driver is one of memory, postgres or mysql.
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type LoanConfig struct {
	FeePerDay       string `yaml:"fee_per_day"`
	DefaultLoanDays int    `yaml:"default_loan_days"`
	Timezone        string `yaml:"timezone"`
}

type SessionConfig struct {
	Secret             string        `yaml:"secret"`
	TTL                time.Duration `yaml:"ttl"`
	LoginRatePerMinute int           `yaml:"login_rate_per_minute"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

const devSessionSecret = "dev_secret_change_me"

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "memory"},
		HTTP:     HTTPConfig{Port: "8080"},
		Loans: LoanConfig{
			FeePerDay:       "2.00",
			DefaultLoanDays: 20,
			Timezone:        "UTC",
		},
		Session: SessionConfig{
			Secret:             devSessionSecret,
			TTL:                24 * time.Hour,
			LoginRatePerMinute: 5,
		},
		Telemetry: TelemetryConfig{ServiceName: "libraloan"},
		LogLevel:  "info",
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.Loans.FeePerDay = getEnv("FEE_PER_DAY", c.Loans.FeePerDay)
	c.Loans.Timezone = getEnv("TIMEZONE", c.Loans.Timezone)
	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.Loans.DefaultLoanDays, err = getEnvInt("DEFAULT_LOAN_DAYS", c.Loans.DefaultLoanDays); err != nil {
		return err
	}
	if c.Session.LoginRatePerMinute, err = getEnvInt("LOGIN_RATE_PER_MINUTE", c.Session.LoginRatePerMinute); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("SESSION_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		c.Session.TTL = ttl
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "memory":
	case "postgres", "mysql":
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("database url is required for driver %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if fee, err := decimal.NewFromString(c.Loans.FeePerDay); err != nil || fee.IsNegative() {
		errs = append(errs, fmt.Errorf("invalid fee per day %q", c.Loans.FeePerDay))
	}
	if c.Loans.DefaultLoanDays < 0 {
		errs = append(errs, fmt.Errorf("default loan days cannot be negative"))
	}
	if _, err := time.LoadLocation(c.Loans.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Loans.Timezone, err))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be positive"))
	}
	if c.Session.LoginRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("login rate per minute must be positive"))
	}

	return errors.Join(errs...)
}

// FeePerDay returns the parsed late fee. Call after Validate.
func (c Config) FeePerDay() decimal.Decimal {
	fee, _ := decimal.NewFromString(c.Loans.FeePerDay)
	return fee
}

// Location returns the timezone that decides what "today" is.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Loans.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InsecureSecret reports whether the development session secret is in use.
func (c Config) InsecureSecret() bool {
	return c.Session.Secret == devSessionSecret
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

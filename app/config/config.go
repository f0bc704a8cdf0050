// Package config loads the service configuration from dotenv files, the
// environment and command line flags.
//
// Everything ends up in a single Config value built once at startup and
// handed to the constructors that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mytheresa/product-api/app/logging"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns a key/value connection string understood by both pgx and lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL returns the same connection as a postgres:// url, the form the
// migrator connects with.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// NotifierConfig configures the webhook. An empty WebhookURL disables
// notifications.
type NotifierConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Workers    int           `mapstructure:"workers"`
}

type LoggerConfig struct {
	Mode       string `mapstructure:"mode"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

func (l LoggerConfig) Logging() logging.Config {
	return logging.Config{Mode: l.Mode, FileEnable: l.FileEnable, Filename: l.Filename}
}

const defaultAddr = ":8080"

var defaults = map[string]any{
	"http.addr":             defaultAddr,
	"http.port":             "",
	"http.read_timeout":     "10s",
	"http.write_timeout":    "10s",
	"http.shutdown_timeout": "10s",
	"database.host":         "localhost",
	"database.port":         "5432",
	"database.user":         "postgres",
	"database.password":     "",
	"database.name":         "products",
	"database.sslmode":      "disable",
	"notifier.webhook_url":  "",
	"notifier.timeout":      "3s",
	"notifier.workers":      16,
	"logger.mode":           logging.ModeDevelopment,
	"logger.file_enable":    false,
	"logger.filename":       "product-api.log",
}

var envBindings = map[string][]string{
	"http.addr":             {"HTTP_ADDR"},
	"http.port":             {"HTTP_PORT"},
	"http.read_timeout":     {"HTTP_READ_TIMEOUT"},
	"http.write_timeout":    {"HTTP_WRITE_TIMEOUT"},
	"http.shutdown_timeout": {"HTTP_SHUTDOWN_TIMEOUT"},
	"database.host":         {"POSTGRES_HOST"},
	"database.port":         {"POSTGRES_PORT"},
	"database.user":         {"POSTGRES_USER"},
	"database.password":     {"POSTGRES_PASSWORD"},
	"database.name":         {"POSTGRES_DB"},
	"database.sslmode":      {"POSTGRES_SSLMODE"},
	"notifier.webhook_url":  {"SLACK_WEBHOOK", "WEBHOOK_URL"},
	"notifier.timeout":      {"NOTIFIER_TIMEOUT"},
	"notifier.workers":      {"NOTIFIER_WORKERS"},
	"logger.mode":           {"LOG_MODE"},
	"logger.file_enable":    {"LOG_FILE_ENABLE"},
	"logger.filename":       {"LOG_FILENAME"},
}

// NewViper returns a viper instance with defaults and environment bindings
// registered. Flags may be bound to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// LoadDotEnv loads the given dotenv files (".env" when none are given)
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// HTTP_PORT is accepted as a shorthand while the address is left at its default.
	if port := strings.TrimSpace(v.GetString("http.port")); port != "" && cfg.HTTP.Addr == defaultAddr {
		cfg.HTTP.Addr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if c.Notifier.Timeout <= 0 {
		errs = append(errs, errors.New("notifier.timeout must be positive"))
	}
	if c.Notifier.Workers <= 0 {
		errs = append(errs, errors.New("notifier.workers must be positive"))
	}
	if c.Notifier.WebhookURL != "" {
		u, err := url.Parse(c.Notifier.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("notifier.webhook_url %q is not an absolute http(s) url", c.Notifier.WebhookURL))
		}
	}
	switch c.Logger.Mode {
	case logging.ModeDevelopment, logging.ModeProduction:
	default:
		errs = append(errs, fmt.Errorf("logger.mode %q is not one of %s, %s", c.Logger.Mode, logging.ModeDevelopment, logging.ModeProduction))
	}
	if c.Logger.FileEnable && strings.TrimSpace(c.Logger.Filename) == "" {
		errs = append(errs, errors.New("logger.filename is required when logger.file_enable is set"))
	}

	return errors.Join(errs...)
}

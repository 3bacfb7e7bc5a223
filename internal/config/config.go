// Package config handles application configuration loading and management
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Stylesheets StylesheetsConfig `mapstructure:"stylesheets"`
	Session     SessionConfig     `mapstructure:"session"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Host           string `mapstructure:"host"`
	SigningSecret  string `mapstructure:"signing_secret"`
	ReadTimeout    int    `mapstructure:"read_timeout"`     // seconds
	WriteTimeout   int    `mapstructure:"write_timeout"`    // seconds
	IdleTimeout    int    `mapstructure:"idle_timeout"`     // seconds
	RateLimitRPS   int    `mapstructure:"rate_limit_rps"`   // requests per second
	RateLimitBurst int    `mapstructure:"rate_limit_burst"` // burst size
	EnableDocs     bool   `mapstructure:"enable_docs"`      // enable /docs endpoint
}

// DatabaseConfig holds database-related configuration.
// DSN takes precedence over the individual connection fields.
type DatabaseConfig struct {
	DSN            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// URL returns the PostgreSQL connection string
func (d DatabaseConfig) URL() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// NATSConfig holds NATS-related configuration
type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// StorageConfig holds the location of record attachments on disk
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// StylesheetsConfig names the XSLT stylesheets used to render the license annex
type StylesheetsConfig struct {
	Dir          string        `mapstructure:"dir"`
	Brief        string        `mapstructure:"brief"`
	LicenseAnnex string        `mapstructure:"license_annex"`
	CacheSize    int           `mapstructure:"cache_size"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// SessionConfig holds user session settings
type SessionConfig struct {
	CookieName      string        `mapstructure:"cookie_name"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Secure          bool          `mapstructure:"secure"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel maps the configured level name onto a slog.Level, defaulting to info
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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

// Load reads the configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.annex")

	// Environment variable overrides
	v.SetEnvPrefix("ANNEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"database.url":     "DATABASE_URL",
		"nats.url":         "NATS_URL",
		"storage.data_dir": "DATA_DIR",
		"stylesheets.dir":  "STYLESHEET_DIR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env variable: %w", err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.rate_limit_rps", 100)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("server.enable_docs", true)
	v.SetDefault("server.signing_secret", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate_on_start", false)
	v.SetDefault("nats.stream", "ANNEX")
	v.SetDefault("storage.data_dir", "./data/metadata_data")
	v.SetDefault("stylesheets.dir", "./xsl")
	v.SetDefault("stylesheets.brief", "metadata-brief.xsl")
	v.SetDefault("stylesheets.license_annex", "metadata-license-annex.xsl")
	v.SetDefault("stylesheets.cache_size", 32)
	v.SetDefault("stylesheets.cache_ttl", time.Hour)
	v.SetDefault("session.cookie_name", "annex_session")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", time.Minute)
	v.SetDefault("session.secure", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that required fields are present and sane
func (c *Config) Validate() error {
	if c.Server.SigningSecret == "" {
		return fmt.Errorf("server.signing_secret is required for session cookie signing")
	}
	if c.Server.SigningSecret == "change-me-in-production-use-random-string" {
		return fmt.Errorf(
			"server.signing_secret must be changed from default value in production",
		)
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.Stylesheets.Brief == "" || c.Stylesheets.LicenseAnnex == "" {
		return fmt.Errorf("stylesheets.brief and stylesheets.license_annex are required")
	}
	if c.Stylesheets.CacheSize <= 0 {
		return fmt.Errorf("stylesheets.cache_size must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

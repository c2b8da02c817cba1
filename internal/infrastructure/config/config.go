package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Storefront Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Identity  IdentityConfig  `yaml:"identity"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains store-level information.
type SiteConfig struct {
	Name string `yaml:"name"`
	// URL is the externally visible base URL, used to build password-reset
	// and email-confirmation links.
	URL string `yaml:"url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
}

// ServerTimeoutConfig contains HTTP server timeouts (seconds).
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// IdentityConfig contains identity provider settings.
type IdentityConfig struct {
	// JWTSecret signs access tokens. Always set via STOREFRONT_JWT_SECRET
	// in production.
	JWTSecret string `yaml:"jwt_secret"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime in minutes.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`

	// CodeTTL is the one-time code (password reset, email confirmation)
	// lifetime in minutes.
	CodeTTL int `yaml:"code_ttl"`

	// CookiePrefix prefixes the session cookie names. Everything outside the
	// provider treats the resulting names as opaque.
	CookiePrefix string `yaml:"cookie_prefix"`

	// CookieSecure sets the Secure attribute on session cookies.
	CookieSecure bool `yaml:"cookie_secure"`
}

// WebSocketConfig contains session-event WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: STOREFRONT_SECTION_KEY
// For example: STOREFRONT_DATABASE_PATH, STOREFRONT_SERVER_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name: "Storefront",
			URL:  "http://localhost:8080",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/storefront.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Identity: IdentityConfig{
			AccessTokenTTL:  15,
			RefreshTokenTTL: 10080,
			CodeTTL:         60,
			CookiePrefix:    "sf",
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: STOREFRONT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Site
	if v := os.Getenv("STOREFRONT_SITE_URL"); v != "" {
		cfg.Site.URL = v
	}

	// Server
	if v := os.Getenv("STOREFRONT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STOREFRONT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Database
	if v := os.Getenv("STOREFRONT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Identity - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("STOREFRONT_JWT_SECRET"); v != "" {
		cfg.Identity.JWTSecret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.URL == "" {
		errs = append(errs, "site.url is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// JWT secret is REQUIRED. An empty or weak secret would let anyone forge
	// session tokens and reach the admin surface.
	const minJWTSecretLength = 32
	if c.Identity.JWTSecret == "" {
		errs = append(errs, "identity.jwt_secret is required (set STOREFRONT_JWT_SECRET environment variable)")
	} else if len(c.Identity.JWTSecret) < minJWTSecretLength {
		errs = append(errs, "identity.jwt_secret must be at least 32 characters for adequate security")
	}

	if c.Identity.AccessTokenTTL <= 0 {
		errs = append(errs, "identity.access_token_ttl must be positive")
	}
	if c.Identity.RefreshTokenTTL <= 0 {
		errs = append(errs, "identity.refresh_token_ttl must be positive")
	}
	if c.Identity.CookiePrefix == "" {
		errs = append(errs, "identity.cookie_prefix is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// Package config loads process configuration from the environment and the
// service topology from config/services.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the environment-driven configuration shared by every binary.
// Not every field is used by every service.
type Config struct {
	ServiceType  string `env:"SERVICE_TYPE"`
	Port         int    `env:"PORT"`
	ServicesFile string `env:"SERVICES_CONFIG,default=config/services.yaml"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	DBDriver string `env:"DB_DRIVER,default=sqlite"`
	DBDSN    string `env:"DB_DSN"`

	// JWTSecret signs session tokens. Only the auth service reads it.
	JWTSecret string        `env:"JWT_SECRET_KEY"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=24h"`

	// SecretKey signs the gateway's flash cookie.
	SecretKey string `env:"SECRET_KEY"`

	HTTPTimeout     time.Duration `env:"HTTP_CLIENT_TIMEOUT,default=10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST,default=10"`

	// Per-service URL overrides; empty means use services.yaml.
	StorageURL  string `env:"DB_SERVICE_URL"`
	PostsURL    string `env:"POST_SERVICE_URL"`
	AuthURL     string `env:"AUTH_SERVICE_URL"`
	RenderURL   string `env:"TEMPLATE_SERVICE_URL"`
	CommentsURL string `env:"COMMENT_SERVICE_URL"`

	Services *ServicesConfig
}

// Load reads an optional .env file, decodes the environment and loads the
// service topology.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	cfg.ServiceType = strings.ToLower(strings.TrimSpace(cfg.ServiceType))
	cfg.Services = LoadServicesConfigOrDefault(cfg.ServicesFile)
	return &cfg, nil
}

// ServiceURL resolves how to reach name, preferring the env override.
func (c *Config) ServiceURL(name string) (string, error) {
	override := map[string]string{
		ServiceStorage:  c.StorageURL,
		ServicePosts:    c.PostsURL,
		ServiceAuth:     c.AuthURL,
		ServiceRender:   c.RenderURL,
		ServiceComments: c.CommentsURL,
	}[name]
	if override != "" {
		return strings.TrimRight(override, "/"), nil
	}
	return c.Services.URL(name)
}

// ListenPort returns PORT when set, else the configured port for name.
func (c *Config) ListenPort(name string) (int, error) {
	if c.Port != 0 {
		return c.Port, nil
	}
	s := c.Services.GetSettings(name)
	if s == nil {
		return 0, fmt.Errorf("service %s is not configured", name)
	}
	return s.Port, nil
}

// DatabaseDSN returns DB_DSN or a per-service sqlite file.
func (c *Config) DatabaseDSN(service string) string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("file:%s.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", service)
}

// Validate checks the settings a given service needs.
func (c *Config) Validate(service string) error {
	switch service {
	case ServiceAuth:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET_KEY is required for the auth service")
		}
	case ServiceGateway:
		if c.SecretKey == "" {
			return errors.New("SECRET_KEY is required for the gateway")
		}
	}
	return nil
}

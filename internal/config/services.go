package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Service names as used in config/services.yaml and SERVICE_TYPE.
const (
	ServiceGateway  = "gateway"
	ServiceStorage  = "storage"
	ServicePosts    = "posts"
	ServiceAuth     = "auth"
	ServiceRender   = "render"
	ServiceComments = "comments"
)

// ServiceSettings describes where one service listens and how peers reach it.
type ServiceSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Port        int    `yaml:"port"`
	URL         string `yaml:"url,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// ServicesConfig is the parsed form of config/services.yaml.
type ServicesConfig struct {
	Services map[string]*ServiceSettings `yaml:"services"`
}

// LoadServicesConfig loads the services configuration from config/services.yaml
func LoadServicesConfig() (*ServicesConfig, error) {
	return LoadServicesConfigFromPath(filepath.Join("config", "services.yaml"))
}

// LoadServicesConfigFromPath loads the services configuration from a specific path
func LoadServicesConfigFromPath(path string) (*ServicesConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read services config: %w", err)
	}

	var cfg ServicesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse services config: %w", err)
	}

	for id, settings := range cfg.Services {
		if settings == nil || settings.Port == 0 {
			return nil, fmt.Errorf("service %s: port is required", id)
		}
	}

	return &cfg, nil
}

// LoadServicesConfigOrDefault loads services config or returns default if file not found
func LoadServicesConfigOrDefault(path string) *ServicesConfig {
	if path == "" {
		path = filepath.Join("config", "services.yaml")
	}
	cfg, err := LoadServicesConfigFromPath(path)
	if err != nil {
		return DefaultServicesConfig()
	}
	return cfg
}

// DefaultServicesConfig returns the default local topology.
func DefaultServicesConfig() *ServicesConfig {
	return &ServicesConfig{
		Services: map[string]*ServiceSettings{
			ServiceGateway: {
				Enabled:     true,
				Port:        5000,
				Description: "Server-rendered blog front end",
			},
			ServiceStorage: {
				Enabled:     true,
				Port:        5001,
				Description: "Post persistence",
			},
			ServicePosts: {
				Enabled:     true,
				Port:        5002,
				Description: "Authenticated post operations",
			},
			ServiceAuth: {
				Enabled:     true,
				Port:        5003,
				Description: "Accounts and session tokens",
			},
			ServiceRender: {
				Enabled:     true,
				Port:        5004,
				Description: "HTML template rendering",
			},
			ServiceComments: {
				Enabled:     true,
				Port:        5005,
				Description: "Comment persistence and ownership checks",
			},
		},
	}
}

// IsEnabled reports whether a service is configured and enabled.
func (c *ServicesConfig) IsEnabled(name string) bool {
	s := c.GetSettings(name)
	return s != nil && s.Enabled
}

// GetSettings returns the settings for name, or nil.
func (c *ServicesConfig) GetSettings(name string) *ServiceSettings {
	if c == nil || c.Services == nil {
		return nil
	}
	return c.Services[name]
}

// URL returns the base URL peers use to reach name. An explicit url wins;
// otherwise http://localhost:<port> is assumed.
func (c *ServicesConfig) URL(name string) (string, error) {
	s := c.GetSettings(name)
	if s == nil {
		return "", fmt.Errorf("service %s is not configured", name)
	}
	if s.URL != "" {
		return strings.TrimRight(s.URL, "/"), nil
	}
	return fmt.Sprintf("http://localhost:%d", s.Port), nil
}

// EnabledServices lists enabled service names in sorted order.
func (c *ServicesConfig) EnabledServices() []string {
	var names []string
	if c == nil {
		return names
	}
	for name, s := range c.Services {
		if s != nil && s.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

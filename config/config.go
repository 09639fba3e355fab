// Package config loads and validates the service configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/feedbridge/errors"
)

// envPrefix namespaces the environment overrides
const envPrefix = "FEEDBRIDGE"

// Config is the complete service configuration
type Config struct {
	NATS    NATSConfig    `yaml:"nats"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Hub     HubConfig     `yaml:"hub"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Workers WorkerConfig  `yaml:"workers"`
	Log     LogConfig     `yaml:"log"`
}

// NATSConfig describes the NATS connection
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	Timeout       time.Duration `yaml:"timeout"`
}

// HTTPConfig describes the gateway listener
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig describes the Prometheus exposition endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// HubConfig describes the PubSubHubbub subscriber side
type HubConfig struct {
	DefaultURL   string        `yaml:"default_url"`
	Username     string        `yaml:"username,omitempty"`
	Password     string        `yaml:"password,omitempty"`
	CallbackBase string        `yaml:"callback_base"`
	LeaseSeconds int           `yaml:"lease_seconds"`
	Timeout      time.Duration `yaml:"timeout"`
}

// FetchConfig bounds outbound page and feed fetches
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// WorkerConfig sizes the subscription worker pool
type WorkerConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration defaults. A service started with no
// config file at all runs against a local NATS server.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: 10,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			MaxBodyBytes:    5 * 1024 * 1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Hub: HubConfig{
			CallbackBase: "http://localhost:8080",
			LeaseSeconds: 86400,
			Timeout:      5 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:           10 * time.Second,
			MaxBodyBytes:      5 * 1024 * 1024,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Workers: WorkerConfig{
			Count:     4,
			QueueSize: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, layered over the defaults,
// then applies environment overrides and validates the result. An empty
// path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse "+path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := getenv("NATS_USERNAME"); v != "" {
		cfg.NATS.Username = v
	}
	if v := getenv("NATS_PASSWORD"); v != "" {
		cfg.NATS.Password = v
	}
	if v := getenv("NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}
	if v := getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := getenv("HUB_DEFAULT_URL"); v != "" {
		cfg.Hub.DefaultURL = v
	}
	if v := getenv("HUB_USERNAME"); v != "" {
		cfg.Hub.Username = v
	}
	if v := getenv("HUB_PASSWORD"); v != "" {
		cfg.Hub.Password = v
	}
	if v := getenv("HUB_CALLBACK_BASE"); v != "" {
		cfg.Hub.CallbackBase = v
	}
	if v := getenv("HUB_LEASE_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Hub.LeaseSeconds = secs
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func getenv(key string) string {
	return os.Getenv(envPrefix + "_" + key)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return invalid("nats.url is required")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr is required")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return invalid("http.max_body_bytes must be positive")
	}
	if c.Hub.CallbackBase == "" {
		return invalid("hub.callback_base is required")
	}
	if !strings.HasPrefix(c.Hub.CallbackBase, "http://") &&
		!strings.HasPrefix(c.Hub.CallbackBase, "https://") {
		return invalid("hub.callback_base must be an absolute http(s) URL")
	}
	if c.Hub.LeaseSeconds <= 0 {
		return invalid("hub.lease_seconds must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return invalid("fetch.timeout must be positive")
	}
	if c.Fetch.RequestsPerSecond <= 0 {
		return invalid("fetch.requests_per_second must be positive")
	}
	if c.Workers.Count <= 0 {
		return invalid("workers.count must be positive")
	}
	if c.Workers.QueueSize <= 0 {
		return invalid("workers.queue_size must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format))
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return invalid("metrics.port must be a valid port when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return invalid("metrics.path is required when metrics are enabled")
		}
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", msg)
}

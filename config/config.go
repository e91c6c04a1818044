// Package config handles configuration loading for deskmesh. It supports a
// YAML config file, environment variable overrides and built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the orchestration core.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Routing RoutingConfig `mapstructure:"routing"`
	Session SessionConfig `mapstructure:"session"`
	Quality QualityConfig `mapstructure:"quality"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig selects and configures the LLM provider.
type ModelConfig struct {
	// Provider is one of anthropic, openai or mock.
	Provider  string `mapstructure:"provider"`
	Name      string `mapstructure:"name"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// RoutingConfig tunes the classifier and dispatch behavior.
type RoutingConfig struct {
	// ConfidenceThreshold is the minimum classification confidence for
	// dispatch; below it the turn escalates.
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	HistoryWindow       int           `mapstructure:"history_window"`
	SpecialistTimeout   time.Duration `mapstructure:"specialist_timeout"`
	Retries             int           `mapstructure:"retries"`
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	// Backend is sqlite or memory.
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

// QualityConfig tunes the telemetry pipeline and circuit breaker.
type QualityConfig struct {
	QueueSize        int           `mapstructure:"queue_size"`
	Window           time.Duration `mapstructure:"window"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// SearchConfig tunes the search tool rate limiter.
type SearchConfig struct {
	// Rate is permitted requests per second.
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration with the following precedence (highest first):
// environment variables (DESKMESH_*), the config file at path (optional, may
// be empty), built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	} else {
		v.SetConfigName("deskmesh")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/deskmesh")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DESKMESH")
	v.AutomaticEnv()
	v.BindEnv("model.api_key", "DESKMESH_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Model.APIKey = os.ExpandEnv(cfg.Model.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Routing.ConfidenceThreshold < 0 || c.Routing.ConfidenceThreshold > 1 {
		return fmt.Errorf("routing.confidence_threshold must be in [0,1], got %v", c.Routing.ConfidenceThreshold)
	}
	if c.Routing.Retries < 0 {
		return fmt.Errorf("routing.retries must be >= 0, got %d", c.Routing.Retries)
	}
	switch c.Session.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("session.backend must be sqlite or memory, got %q", c.Session.Backend)
	}
	switch c.Model.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("model.provider must be anthropic, openai or mock, got %q", c.Model.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("model.provider", "mock")
	v.SetDefault("model.name", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.max_tokens", 1024)

	v.SetDefault("routing.confidence_threshold", 0.65)
	v.SetDefault("routing.history_window", 10)
	v.SetDefault("routing.specialist_timeout", "10s")
	v.SetDefault("routing.retries", 1)

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.path", "deskmesh.db")
	v.SetDefault("session.retention", "2160h") // 90 days
	v.SetDefault("session.prune_schedule", "0 3 * * *")

	v.SetDefault("quality.queue_size", 256)
	v.SetDefault("quality.window", "1h")
	v.SetDefault("quality.breaker_threshold", 3)
	v.SetDefault("quality.breaker_cooldown", "30s")

	v.SetDefault("search.rate", 1.0)
	v.SetDefault("search.burst", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Model:   ModelConfig{Provider: "mock", MaxTokens: 1024},
		Routing: RoutingConfig{ConfidenceThreshold: 0.65, HistoryWindow: 10, SpecialistTimeout: 10 * time.Second, Retries: 1},
		Session: SessionConfig{Backend: "sqlite", Path: "deskmesh.db", Retention: 90 * 24 * time.Hour, PruneSchedule: "0 3 * * *"},
		Quality: QualityConfig{QueueSize: 256, Window: time.Hour, BreakerThreshold: 3, BreakerCooldown: 30 * time.Second},
		Search:  SearchConfig{Rate: 1.0, Burst: 5},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

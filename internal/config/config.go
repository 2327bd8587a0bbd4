// Package config loads server settings from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Backoff BackoffConfig `yaml:"backoff"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig holds persistence collaborator settings. An empty Addr selects
// the in-memory store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// BackoffConfig holds the client reconnection policy.
type BackoffConfig struct {
	Base        time.Duration `yaml:"base"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to slog, defaulting to Info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Redis: RedisConfig{
			Prefix: "retriever:",
		},
		Backoff: BackoffConfig{
			Base:        500 * time.Millisecond,
			MaxAttempts: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads settings from an optional YAML file, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides settings from RETRIEVER_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RETRIEVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RETRIEVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RETRIEVER_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RETRIEVER_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RETRIEVER_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("RETRIEVER_REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}
	if v := os.Getenv("RETRIEVER_REDIS_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Redis.TTL = ttl
		}
	}
	if v := os.Getenv("RETRIEVER_BACKOFF_BASE"); v != "" {
		if base, err := time.ParseDuration(v); err == nil {
			cfg.Backoff.Base = base
		}
	}
	if v := os.Getenv("RETRIEVER_BACKOFF_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backoff.MaxAttempts = n
		}
	}
	if v := os.Getenv("RETRIEVER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL            string `yaml:"cacheTTL"`
		ServedTTL           string `yaml:"servedTTL"`
		DefaultTimeLimit    int    `yaml:"defaultTimeLimit"`
		DefaultDynamicCount int    `yaml:"defaultDynamicCount"`
		MaxAttemptRetries   int    `yaml:"maxAttemptRetries"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Quiz.CacheTTL = "10m"
	cfg.Quiz.ServedTTL = "2h"
	cfg.Quiz.DefaultTimeLimit = 15
	cfg.Quiz.DefaultDynamicCount = 15
	cfg.Quiz.MaxAttemptRetries = 3
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Quiz.DefaultTimeLimit < 0 {
		return fmt.Errorf("quiz.defaultTimeLimit must not be negative, got %d", c.Quiz.DefaultTimeLimit)
	}
	if c.Quiz.DefaultDynamicCount < 0 {
		return fmt.Errorf("quiz.defaultDynamicCount must not be negative, got %d", c.Quiz.DefaultDynamicCount)
	}
	if c.Quiz.MaxAttemptRetries < 0 {
		return fmt.Errorf("quiz.maxAttemptRetries must not be negative, got %d", c.Quiz.MaxAttemptRetries)
	}
	for name, raw := range map[string]string{
		"redis.ttl":      c.Redis.TTL,
		"quiz.cacheTTL":  c.Quiz.CacheTTL,
		"quiz.servedTTL": c.Quiz.ServedTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

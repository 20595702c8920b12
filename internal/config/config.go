// Package config loads salience configuration from a JSON document with
// documented defaults and environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all salience configuration.
type Config struct {
	Server        ServerConfig        `json:"server"`
	MemoryService MemoryServiceConfig `json:"memoryService"`
	Hooks         HooksConfig         `json:"hooks"`
	Scoring       ScoringConfig       `json:"scoring"`
	Database      DatabaseConfig      `json:"database"`
	LogLevel      string              `json:"logLevel"`
}

type ServerConfig struct {
	Bind string `json:"bind"`
	Port int    `json:"port"`
}

// MemoryServiceConfig addresses the remote memory store.
type MemoryServiceConfig struct {
	Endpoint              string `json:"endpoint"`
	APIKey                string `json:"apiKey"`
	MaxMemoriesPerSession int    `json:"maxMemoriesPerSession"`
	InsecureTLS           bool   `json:"insecureTLS"`
}

type HooksConfig struct {
	TopicChange TopicChangeConfig `json:"topicChange"`
}

// TopicChangeConfig tunes the dynamic update pipeline.
type TopicChangeConfig struct {
	Enabled              bool    `json:"enabled"`
	Timeout              int     `json:"timeout"` // ms
	Priority             string  `json:"priority"`
	MinSignificanceScore float64 `json:"minSignificanceScore"`
	MaxMemoriesPerUpdate int     `json:"maxMemoriesPerUpdate"`
	CooldownMS           int     `json:"cooldownMs"`
	DebounceMS           int     `json:"debounceMs"`
	MaxUpdatesPerSession int     `json:"maxUpdatesPerSession"`
}

// ScoringConfig carries scorer tunables. WeightOverrides merge into the
// active weight profile per factor.
type ScoringConfig struct {
	DecayRate        float64            `json:"decayRate"`
	GitContextWeight float64            `json:"gitContextWeight"`
	WeightOverrides  map[string]float64 `json:"weightOverrides,omitempty"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// envOverrides are applied after file loading; deployment secrets usually
// arrive this way rather than in the JSON document.
type envOverrides struct {
	Endpoint    string `envconfig:"SALIENCE_ENDPOINT"`
	APIKey      string `envconfig:"SALIENCE_API_KEY"`
	InsecureTLS bool   `envconfig:"SALIENCE_INSECURE_TLS"`
	LogLevel    string `envconfig:"SALIENCE_LOG_LEVEL"`
	Bind        string `envconfig:"SALIENCE_BIND"`
	Port        int    `envconfig:"SALIENCE_PORT"`
	DBPath      string `envconfig:"SALIENCE_DB"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38888,
		},
		MemoryService: MemoryServiceConfig{
			MaxMemoriesPerSession: 8,
		},
		Hooks: HooksConfig{
			TopicChange: TopicChangeConfig{
				Enabled:              true,
				Timeout:              10000,
				Priority:             "low",
				MinSignificanceScore: 0.3,
				MaxMemoriesPerUpdate: 3,
				CooldownMS:           30000,
				DebounceMS:           5000,
				MaxUpdatesPerSession: 10,
			},
		},
		Scoring: ScoringConfig{
			DecayRate:        0.05,
			GitContextWeight: 1.2,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via track.DefaultDBPath()
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the config file location, honoring SALIENCE_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv("SALIENCE_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".salience", "config.json"), nil
}

// Load reads the config file at path, falling back to defaults when the file
// is absent or invalid. The returned error is advisory: a usable Config
// always comes back, and callers warn once rather than abort.
func Load(path string) (Config, error) {
	cfg := Default()

	var loadErr error
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		loadErr = fmt.Errorf("config %s not found, using defaults", path)
	case err != nil:
		loadErr = fmt.Errorf("read config %s: %w (using defaults)", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			cfg = Default()
			loadErr = fmt.Errorf("parse config %s: %w (using defaults)", path, err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err == nil {
		if env.Endpoint != "" {
			cfg.MemoryService.Endpoint = env.Endpoint
		}
		if env.APIKey != "" {
			cfg.MemoryService.APIKey = env.APIKey
		}
		if env.InsecureTLS {
			cfg.MemoryService.InsecureTLS = true
		}
		if env.LogLevel != "" {
			cfg.LogLevel = env.LogLevel
		}
		if env.Bind != "" {
			cfg.Server.Bind = env.Bind
		}
		if env.Port != 0 {
			cfg.Server.Port = env.Port
		}
		if env.DBPath != "" {
			cfg.Database.Path = env.DBPath
		}
	}

	return cfg, loadErr
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

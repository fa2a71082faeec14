package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/engine"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL     = "http://127.0.0.1:8085"
	DefaultTimeout     = 30 * time.Second
	DefaultHistoryFile = ".execjudge_history"
)

// LocalConfig tunes the in-process judge used with -local.
type LocalConfig struct {
	Engine        engine.Config `yaml:",inline"`
	Limits        model.Limits  `yaml:",inline"`
	MemorySampler string        `yaml:"memorySampler"`
	PoolSize      int           `yaml:"poolSize"`
}

// Config holds CLI configuration.
type Config struct {
	BaseURL     string        `yaml:"baseURL"`
	Timeout     time.Duration `yaml:"timeout"`
	HistoryFile string        `yaml:"historyFile"`
	PrettyJSON  *bool         `yaml:"prettyJSON"`
	Local       LocalConfig   `yaml:"local"`
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file failed: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	if cfg.Local.PoolSize <= 0 {
		cfg.Local.PoolSize = 1
	}
}

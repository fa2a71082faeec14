// Package ratelimit guards the execution endpoint against request floods.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request under key is admitted.
// A rejected request yields a TooManyRequests error.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Config selects and tunes a limiter backend.
type Config struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"` // redis or local
	Window  time.Duration `yaml:"window"`
	Max     int           `yaml:"ipMax"` // requests per window (redis)
	RPS     float64       `yaml:"rps"`   // sustained rate (local)
	Burst   int           `yaml:"burst"` // bucket size (local)
	Timeout time.Duration `yaml:"timeout"`
}

const (
	BackendRedis = "redis"
	BackendLocal = "local"
)

package main

import (
	"fmt"
	"os"
	"time"

	commonmw "execjudge/internal/common/http/middleware"
	"execjudge/internal/common/ratelimit"
	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/engine"
	"execjudge/internal/judge/sandbox/limits"
	"execjudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultAcquireTimeout  = 2 * time.Second
	defaultMetricsPath     = "/metrics"
	defaultHostInterval    = 15 * time.Second
	defaultRateWindow      = time.Minute
	defaultRateIPMax       = 60
	defaultRateTimeout     = 200 * time.Millisecond
	defaultMaxCodeBytes    = 64 << 10
	defaultMaxTestCases    = 100
	defaultMaxTimeLimitMs  = 10000
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	TrustedProxies []string      `yaml:"trustedProxies"` // empty trusts no proxy
}

// JudgeConfig holds sandbox and request bound settings.
type JudgeConfig struct {
	Engine        engine.Config `yaml:",inline"`
	Limits        model.Limits  `yaml:",inline"`
	MemorySampler string        `yaml:"memorySampler"` // heap or rss
}

// WorkerConfig holds judge slot pool settings.
type WorkerConfig struct {
	PoolSize       int           `yaml:"poolSize"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Path         string        `yaml:"path"`
	HostInterval time.Duration `yaml:"hostInterval"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logger    logger.Config         `yaml:"logger"`
	Judge     JudgeConfig           `yaml:"judge"`
	Worker    WorkerConfig          `yaml:"worker"`
	RateLimit ratelimit.Config      `yaml:"rateLimit"`
	Redis     ratelimit.RedisConfig `yaml:"redis"`
	Metrics   MetricsConfig         `yaml:"metrics"`
	CORS      commonmw.CORSConfig   `yaml:"cors"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Judge.Engine.MaxOutputLines <= 0 {
		cfg.Judge.Engine.MaxOutputLines = engine.DefaultMaxOutputLines
	}
	if cfg.Judge.Engine.MaxCallStackSize <= 0 {
		cfg.Judge.Engine.MaxCallStackSize = engine.DefaultMaxCallStackSize
	}
	// a negative bound in the file disables it
	cfg.Judge.Limits.MaxCodeBytes = bound(cfg.Judge.Limits.MaxCodeBytes, defaultMaxCodeBytes)
	cfg.Judge.Limits.MaxTestCases = bound(cfg.Judge.Limits.MaxTestCases, defaultMaxTestCases)
	cfg.Judge.Limits.MaxTimeLimitMs = bound(cfg.Judge.Limits.MaxTimeLimitMs, defaultMaxTimeLimitMs)
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 1
	}
	if cfg.Worker.AcquireTimeout == 0 {
		cfg.Worker.AcquireTimeout = defaultAcquireTimeout
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.HostInterval == 0 {
		cfg.Metrics.HostInterval = defaultHostInterval
	}
	applyRateLimitDefaults(&cfg.RateLimit, cfg.Worker.PoolSize)
	applyRedisDefaults(&cfg.Redis)
}

func bound[T int | int64](value, def T) T {
	switch {
	case value == 0:
		return def
	case value < 0:
		return 0
	default:
		return value
	}
}

func applyRateLimitDefaults(cfg *ratelimit.Config, poolSize int) {
	if cfg.Backend == "" {
		cfg.Backend = ratelimit.BackendLocal
	}
	if cfg.Window == 0 {
		cfg.Window = defaultRateWindow
	}
	if cfg.Max == 0 {
		cfg.Max = defaultRateIPMax
	}
	if cfg.RPS == 0 {
		cfg.RPS = float64(cfg.Max) / cfg.Window.Seconds()
	}
	if cfg.Burst == 0 {
		cfg.Burst = poolSize * 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRateTimeout
	}
}

func applyRedisDefaults(cfg *ratelimit.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := ratelimit.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.RateLimit.Backend {
	case ratelimit.BackendLocal:
	case ratelimit.BackendRedis:
		if cfg.RateLimit.Enabled && cfg.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
	if cfg.Metrics.HostInterval <= 0 {
		return fmt.Errorf("metrics hostInterval must be positive, got %s", cfg.Metrics.HostInterval)
	}
	if _, err := limits.NewSampler(cfg.Judge.MemorySampler); err != nil {
		return err
	}
	return nil
}

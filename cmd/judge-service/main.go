package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	commonmw "execjudge/internal/common/http/middleware"
	"execjudge/internal/common/ratelimit"
	"execjudge/internal/judge/controller"
	"execjudge/internal/judge/metrics"
	"execjudge/internal/judge/sandbox/engine"
	"execjudge/internal/judge/sandbox/limits"
	"execjudge/internal/judge/service"
	pkgerrors "execjudge/pkg/errors"
	"execjudge/pkg/utils/logger"
	"execjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	sampler, err := limits.NewSampler(appCfg.Judge.MemorySampler)
	if err != nil {
		logger.Error(rootCtx, "init memory sampler failed", zap.Error(err))
		return
	}

	var recorder metrics.Recorder
	judgeSvc, err := service.NewService(service.Config{
		Engine:         engine.New(appCfg.Judge.Engine),
		Enforcer:       limits.NewEnforcer(sampler),
		Metrics:        recorder,
		PoolSize:       appCfg.Worker.PoolSize,
		AcquireTimeout: appCfg.Worker.AcquireTimeout,
	})
	if err != nil {
		logger.Error(rootCtx, "init judge service failed", zap.Error(err))
		return
	}

	limiter, closeLimiter, err := buildLimiter(rootCtx, appCfg)
	if err != nil {
		logger.Error(rootCtx, "init rate limiter failed", zap.Error(err))
		return
	}
	defer closeLimiter()

	if appCfg.Metrics.Enabled {
		metrics.Host().Collect(rootCtx, appCfg.Metrics.HostInterval)
	}

	judgeController := controller.NewJudgeController(judgeSvc, appCfg.Judge.Limits)
	httpServer, err := buildHTTPServer(appCfg, judgeController, limiter)
	if err != nil {
		logger.Error(rootCtx, "init http server failed", zap.Error(err))
		return
	}
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(rootCtx, "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(rootCtx, "judge http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.Int("pool_size", appCfg.Worker.PoolSize),
			zap.String("engine", engine.Version()),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(rootCtx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(rootCtx, "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(rootCtx, "http server shutdown failed", zap.Error(err))
	}
}

// buildLimiter returns nil when rate limiting is disabled. A redis backend
// that cannot be reached falls back to the in-process limiter.
func buildLimiter(ctx context.Context, cfg *AppConfig) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, noop, nil
	}

	if rl.Backend == ratelimit.BackendRedis {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			limiter := ratelimit.NewFixedWindowLimiter(client, "execjudge:ratelimit:", rl.Max, rl.Window, rl.Timeout)
			return metrics.CountRejections(limiter), func() { _ = client.Close() }, nil
		}
		logger.Warn(ctx, "redis rate limiter unavailable, using local limiter", zap.Error(err))
	}

	local := ratelimit.NewTokenBucketLimiter(rl.RPS, rl.Burst, 0)
	local.StartSweeper(ctx, rl.Window)
	return metrics.CountRejections(local), noop, nil
}

func buildHTTPServer(cfg *AppConfig, judgeController *controller.JudgeController, limiter ratelimit.Limiter) (*http.Server, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	router.Use(commonmw.CORSMiddleware(cfg.CORS))

	judgeController.Register(router, commonmw.RateLimitMiddleware(limiter, "execution"))
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, pkgerrors.Newf(pkgerrors.NotFound, "route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}

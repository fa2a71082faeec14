package service

import (
	"context"
	"fmt"
	"time"

	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/engine"
	"execjudge/internal/judge/sandbox/limits"
	"execjudge/internal/judge/sandbox/observer"
	"execjudge/internal/judge/sandbox/resolver"
	"execjudge/internal/judge/sandbox/result"
	appErr "execjudge/pkg/errors"
	"execjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultAcquireTimeout = 2 * time.Second

// Executor prepares and runs submitted programs.
type Executor interface {
	Prepare(source string) (*engine.Program, error)
	Run(ctx context.Context, req engine.Request) (result.Outcome, error)
}

// Service judges submissions.
type Service struct {
	engine         Executor
	enforcer       *limits.Enforcer
	metrics        observer.MetricsRecorder
	version        string
	acquireTimeout time.Duration
	sem            chan struct{}
}

// Config holds service dependencies and settings.
type Config struct {
	Engine         Executor
	Enforcer       *limits.Enforcer
	Metrics        observer.MetricsRecorder
	Version        string
	PoolSize       int
	AcquireTimeout time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Enforcer == nil {
		return nil, fmt.Errorf("limit enforcer is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observer.Nop{}
	}
	if cfg.Version == "" {
		cfg.Version = engine.Version()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	return &Service{
		engine:         cfg.Engine,
		enforcer:       cfg.Enforcer,
		metrics:        cfg.Metrics,
		version:        cfg.Version,
		acquireTimeout: acquireTimeout,
		sem:            make(chan struct{}, poolSize),
	}, nil
}

// Judge runs every test case of sub in order and aggregates the outcome.
// Per-test failures are part of the result; an error is returned only when
// the submission cannot be admitted.
func (s *Service) Judge(ctx context.Context, sub model.Submission) (result.JudgeResult, error) {
	if sub.TimeLimitMs <= 0 || sub.MemoryLimitKB <= 0 {
		return result.JudgeResult{}, appErr.New(appErr.InvalidLimit).
			WithDetail("time_limit_ms", sub.TimeLimitMs).
			WithDetail("memory_limit_kb", sub.MemoryLimitKB)
	}

	waitStart := time.Now()
	if err := s.acquireSlot(ctx); err != nil {
		s.metrics.ObserveQueueWait(ctx, time.Since(waitStart).Seconds(), false)
		logger.Warn(ctx, "judge slot unavailable", zap.Error(err))
		return result.JudgeResult{}, err
	}
	defer func() {
		s.releaseSlot()
		s.metrics.ObserveInFlight(s.InFlight())
	}()
	s.metrics.ObserveQueueWait(ctx, time.Since(waitStart).Seconds(), true)
	s.metrics.ObserveInFlight(s.InFlight())

	// a started judgement always runs to completion
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	res := s.judge(ctx, sub)
	elapsed := time.Since(start)
	s.metrics.ObserveJudge(ctx, string(sub.Action), string(res.Status), elapsed.Seconds())

	logger.Info(ctx, "judge finished",
		zap.String("action", string(sub.Action)),
		zap.String("status", string(res.Status)),
		zap.Int("passed", res.PassedTestCases),
		zap.Int("total", res.TotalTestCases),
		zap.Int("executed", len(res.Output)),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Service) judge(ctx context.Context, sub model.Submission) result.JudgeResult {
	res := result.JudgeResult{
		Output:         make([]result.TestResult, 0, len(sub.TestCases)),
		Version:        s.version,
		Status:         result.VerdictAccepted,
		TotalTestCases: len(sub.TestCases),
	}

	prog, setupErr := s.engine.Prepare(sub.Code)
	var entry resolver.Entry
	if setupErr == nil {
		entry, setupErr = resolver.Resolve(prog.Syntax(), sub.Func)
	}
	if setupErr != nil {
		logger.Info(ctx, "submission rejected before execution",
			zap.Int("code", int(appErr.GetCode(setupErr))),
			zap.String("reason", setupErr.Error()),
		)
	}

	for i, tc := range sub.TestCases {
		var tr result.TestResult
		if setupErr != nil {
			tr = failedTest(sub, tc, setupErr)
		} else {
			tr = s.runTest(ctx, sub, prog, entry, tc)
		}
		s.metrics.ObserveTest(ctx, string(tr.Status), tr.Runtime, tr.MemoryUsed)
		record(&res, tr)

		logger.Debug(ctx, "test case judged",
			zap.Int("index", i),
			zap.String("status", string(tr.Status)),
			zap.Int64("runtime_ms", tr.Runtime),
			zap.Int64("memory_kb", tr.MemoryUsed),
		)
		if sub.Action == model.ActionSubmit && !tr.Status.Passed() {
			break
		}
	}
	return res
}

func (s *Service) runTest(ctx context.Context, sub model.Submission, prog *engine.Program, entry resolver.Entry, tc model.TestCase) result.TestResult {
	scope := s.enforcer.Begin()
	out, err := s.engine.Run(ctx, engine.Request{
		Program:   prog,
		Entry:     entry,
		Input:     tc.Input,
		TimeLimit: sub.TimeLimit(),
	})
	m := scope.End()
	if err != nil {
		if appErr.Is(err, appErr.JudgeSystemError) {
			logger.Error(ctx, "sandbox failure", zap.Error(err), zap.String("stack", appErr.GetError(err).Stack))
		}
		return failedTest(sub, tc, err)
	}

	status := limits.Check(m, sub.TimeLimitMs, sub.MemoryLimitKB)
	if status.Passed() && out.Value != tc.Output {
		status = result.VerdictWrongAnswer
	}
	return result.TestResult{
		Output:     tc.Output,
		Status:     status,
		Stdout:     out.Stdout,
		YourOutput: out.Value,
		Runtime:    m.ElapsedMs,
		MemoryUsed: m.MemoryKB,
	}
}

// failedTest records a test whose execution did not complete.
func failedTest(sub model.Submission, tc model.TestCase, err error) result.TestResult {
	msg := err.Error()
	return result.TestResult{
		Error:      &msg,
		Output:     tc.Output,
		Status:     verdictFor(err),
		Stderr:     engine.Stack(err),
		Stdout:     []string{},
		Runtime:    sub.TimeLimitMs,
		MemoryUsed: 0,
	}
}

func verdictFor(err error) result.Verdict {
	switch appErr.GetCode(err) {
	case appErr.CompilationError:
		return result.VerdictCompilationError
	case appErr.TimeLimitExceeded, appErr.OutputLimitExceeded:
		return result.VerdictTimeLimitExceeded
	case appErr.MemoryLimitExceeded:
		return result.VerdictMemoryLimitExceeded
	default:
		return result.VerdictRuntimeError
	}
}

// record folds one test result into the aggregate. The first non-passing
// status becomes the overall status and is never replaced.
func record(res *result.JudgeResult, tr result.TestResult) {
	res.Output = append(res.Output, tr)
	res.Runtime += tr.Runtime
	res.Memory += tr.MemoryUsed
	if tr.Status.Passed() {
		res.PassedTestCases++
		return
	}
	if res.Status == result.VerdictAccepted {
		res.Status = tr.Status
	}
}

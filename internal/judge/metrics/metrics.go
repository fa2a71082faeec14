// Package metrics exposes Prometheus instrumentation for the judge service.
package metrics

import (
	"context"

	"execjudge/internal/common/ratelimit"
	pkgerrors "execjudge/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JudgementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execjudge_judgements_total",
			Help: "Total number of judged submissions",
		},
		[]string{"action", "status"},
	)

	JudgeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "execjudge_judge_duration_seconds",
			Help:    "Wall time spent judging one submission",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"action"},
	)

	TestCasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execjudge_test_cases_total",
			Help: "Total number of executed test cases",
		},
		[]string{"status"},
	)

	TestCaseRuntime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "execjudge_test_case_runtime_ms",
			Help:    "Measured runtime per test case in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	TestCaseMemory = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "execjudge_test_case_memory_kb",
			Help:    "Measured memory delta per test case in KB",
			Buckets: []float64{0, 64, 256, 1024, 4096, 16384, 65536, 262144},
		},
	)

	QueueWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "execjudge_queue_wait_seconds",
			Help:    "Time spent waiting for a judge slot",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"admitted"},
	)

	ActiveJudgements = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "execjudge_active_judgements",
			Help: "Number of submissions currently being judged",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "execjudge_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiter",
		},
	)
)

// Recorder feeds judge observations into the package collectors.
type Recorder struct{}

func (Recorder) ObserveTest(_ context.Context, verdict string, timeMs int64, memoryKB int64) {
	TestCasesTotal.WithLabelValues(verdict).Inc()
	TestCaseRuntime.Observe(float64(timeMs))
	TestCaseMemory.Observe(float64(memoryKB))
}

func (Recorder) ObserveJudge(_ context.Context, action string, verdict string, seconds float64) {
	JudgementsTotal.WithLabelValues(action, verdict).Inc()
	JudgeDuration.WithLabelValues(action).Observe(seconds)
}

func (Recorder) ObserveQueueWait(_ context.Context, seconds float64, admitted bool) {
	label := "true"
	if !admitted {
		label = "false"
	}
	QueueWait.WithLabelValues(label).Observe(seconds)
}

func (Recorder) ObserveInFlight(n int) {
	ActiveJudgements.Set(float64(n))
}

// CountRejections wraps a limiter so rejected requests are counted.
func CountRejections(limiter ratelimit.Limiter) ratelimit.Limiter {
	if limiter == nil {
		return nil
	}
	return countingLimiter{next: limiter}
}

type countingLimiter struct {
	next ratelimit.Limiter
}

func (l countingLimiter) Allow(ctx context.Context, key string) error {
	err := l.next.Allow(ctx, key)
	if pkgerrors.Is(err, pkgerrors.TooManyRequests) {
		RateLimitHits.Inc()
	}
	return err
}

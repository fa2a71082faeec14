// Package observer defines metrics hooks for sandbox execution.
package observer

import "context"

// MetricsRecorder records judge metrics.
type MetricsRecorder interface {
	ObserveTest(ctx context.Context, verdict string, timeMs int64, memoryKB int64)
	ObserveJudge(ctx context.Context, action string, verdict string, seconds float64)
	ObserveQueueWait(ctx context.Context, seconds float64, admitted bool)
	ObserveInFlight(n int)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveTest(context.Context, string, int64, int64) {}
func (Nop) ObserveJudge(context.Context, string, string, float64) {}
func (Nop) ObserveQueueWait(context.Context, float64, bool) {}
func (Nop) ObserveInFlight(int) {}

// Package limits measures elapsed time and memory around one execution and
// classifies the measurement against configured ceilings.
//
// Memory readings come from process-wide samplers, so concurrent judging
// calls add noise. The numbers are heuristics, not accounting.
package limits

import (
	"math"
	"time"

	"execjudge/internal/judge/sandbox/result"
)

// Enforcer opens measurement scopes.
type Enforcer struct {
	sampler Sampler
	now     func() time.Time
}

// NewEnforcer creates an Enforcer backed by sampler. A nil sampler reports
// zero memory usage.
func NewEnforcer(sampler Sampler) *Enforcer {
	if sampler == nil {
		sampler = zeroSampler{}
	}
	return &Enforcer{sampler: sampler, now: time.Now}
}

// Scope is one open measurement.
type Scope struct {
	e      *Enforcer
	start  time.Time
	before uint64
}

// Begin samples the clock and memory.
func (e *Enforcer) Begin() *Scope {
	before, _ := e.sampler.Sample()
	return &Scope{e: e, start: e.now(), before: before}
}

// End samples again and returns elapsed milliseconds and memory delta in
// kilobytes, both rounded to nearest and the delta floored at zero.
func (s *Scope) End() result.Measurement {
	elapsed := s.e.now().Sub(s.start)
	after, err := s.e.sampler.Sample()
	if err != nil {
		after = s.before
	}
	return result.Measurement{
		ElapsedMs: roundMillis(elapsed),
		MemoryKB:  deltaKB(s.before, after),
	}
}

func roundMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}

func deltaKB(before, after uint64) int64 {
	if after <= before {
		return 0
	}
	return int64(math.Round(float64(after-before) / 1024))
}

// Check classifies a successful run. Time is checked before memory; a run
// within both ceilings yields Accepted and is then subject to output comparison.
func Check(m result.Measurement, timeLimitMs, memoryLimitKB int64) result.Verdict {
	switch {
	case m.ElapsedMs > timeLimitMs:
		return result.VerdictTimeLimitExceeded
	case m.MemoryKB > memoryLimitKB:
		return result.VerdictMemoryLimitExceeded
	}
	return result.VerdictAccepted
}

// Package model holds the judge's input types.
package model

import (
	"math"
	"time"
)

// Action selects how many test cases are evaluated.
type Action string

const (
	// ActionRun evaluates every test case.
	ActionRun Action = "run"
	// ActionSubmit stops at the first test case that does not pass.
	ActionSubmit Action = "submit"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionRun || a == ActionSubmit
}

// TestCase is one input literal and its expected output.
type TestCase struct {
	Input  string
	Output string
}

// Submission is an immutable judging request.
type Submission struct {
	Code          string
	Func          string
	Action        Action
	TimeLimitMs   int64
	MemoryLimitKB int64
	TestCases     []TestCase
}

// maxTimeLimitMs is the largest limit a time.Duration can hold.
const maxTimeLimitMs = int64(math.MaxInt64 / int64(time.Millisecond))

// TimeLimit returns the wall clock limit as a duration.
func (s Submission) TimeLimit() time.Duration {
	if s.TimeLimitMs > maxTimeLimitMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s.TimeLimitMs) * time.Millisecond
}

// Package result defines execution outcomes and the judge result shape.
package result

// Verdict represents the classification of one test or of a whole submission.
type Verdict string

const (
	VerdictAccepted            Verdict = "Accepted"
	VerdictWrongAnswer         Verdict = "Wrong Answer"
	VerdictTimeLimitExceeded   Verdict = "Time Limit Exceeded"
	VerdictMemoryLimitExceeded Verdict = "Memory Limit Exceeded"
	VerdictCompilationError    Verdict = "Compilation Error"
	VerdictRuntimeError        Verdict = "Runtime Error"
)

// Passed reports whether v counts as a passing classification.
func (v Verdict) Passed() bool {
	return v == VerdictAccepted
}

// Outcome captures raw data from one sandboxed execution.
type Outcome struct {
	// Value is the canonical string form of the returned value.
	// HasValue is false when the entry point returned undefined.
	Value    string
	HasValue bool
	Stdout   []string
}

// Measurement is the resource usage observed around one execution.
type Measurement struct {
	ElapsedMs int64
	MemoryKB  int64
}

// TestResult is the per-test record returned to callers.
type TestResult struct {
	Error      *string  `json:"error"`
	Output     string   `json:"output"`
	Status     Verdict  `json:"status"`
	Stderr     string   `json:"stderr"`
	Stdout     []string `json:"stdout"`
	YourOutput string   `json:"yourOutput"`
	Runtime    int64    `json:"runtime"`
	MemoryUsed int64    `json:"memoryUsed"`
}

// JudgeResult is the aggregate outcome of one judging call.
type JudgeResult struct {
	Output          []TestResult `json:"output"`
	PassedTestCases int          `json:"passedTestCases"`
	Version         string       `json:"version"`
	Runtime         int64        `json:"runtime"`
	Memory          int64        `json:"memory"`
	Status          Verdict      `json:"status"`
	TotalTestCases  int          `json:"totalTestCases"`
}

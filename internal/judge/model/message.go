package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	pkgerrors "execjudge/pkg/errors"
)

// ExecutionRequest is the JSON payload accepted by the HTTP API and the CLI.
type ExecutionRequest struct {
	Code        string            `json:"code"`
	TestCases   []TestCasePayload `json:"testCases"`
	Action      string            `json:"action"`
	Func        string            `json:"func"`
	TimeLimit   int64             `json:"timeLimit"`
	MemoryLimit float64           `json:"memoryLimit"` // megabytes
}

// TestCasePayload carries raw JSON so callers may send strings or plain values.
type TestCasePayload struct {
	Input  json.RawMessage `json:"input"`
	Output json.RawMessage `json:"output"`
}

// Limits bounds the size of accepted requests. Zero disables a bound.
type Limits struct {
	MaxCodeBytes   int   `yaml:"maxCodeBytes"`
	MaxTestCases   int   `yaml:"maxTestCases"`
	MaxTimeLimitMs int64 `yaml:"maxTimeLimit"` // per test case, milliseconds
}

// ToSubmission validates the request and converts it into a Submission.
// memoryLimit is converted from megabytes to kilobytes.
func (r ExecutionRequest) ToSubmission(limits Limits) (Submission, error) {
	var missing []string
	if r.Code == "" {
		missing = append(missing, "code")
	}
	if r.TestCases == nil {
		missing = append(missing, "testCases")
	}
	if r.Action == "" {
		missing = append(missing, "action")
	}
	if r.Func == "" {
		missing = append(missing, "func")
	}
	if r.TimeLimit == 0 {
		missing = append(missing, "timeLimit")
	}
	if r.MemoryLimit == 0 {
		missing = append(missing, "memoryLimit")
	}
	if len(missing) > 0 {
		return Submission{}, pkgerrors.MissingFields(missing...)
	}

	action := Action(strings.ToLower(strings.TrimSpace(r.Action)))
	if !action.Valid() {
		return Submission{}, pkgerrors.New(pkgerrors.UnsupportedAction).WithDetail("action", r.Action)
	}
	if r.TimeLimit < 0 {
		return Submission{}, pkgerrors.Newf(pkgerrors.InvalidLimit, "timeLimit must be positive")
	}
	ceiling := maxTimeLimitMs
	if limits.MaxTimeLimitMs > 0 && limits.MaxTimeLimitMs < ceiling {
		ceiling = limits.MaxTimeLimitMs
	}
	if r.TimeLimit > ceiling {
		return Submission{}, pkgerrors.Newf(pkgerrors.InvalidLimit, "timeLimit must not exceed %d ms", ceiling).
			WithDetail("max_ms", ceiling)
	}
	if r.MemoryLimit < 0 || math.IsNaN(r.MemoryLimit) || math.IsInf(r.MemoryLimit, 0) {
		return Submission{}, pkgerrors.Newf(pkgerrors.InvalidLimit, "memoryLimit must be positive")
	}
	if limits.MaxCodeBytes > 0 && len(r.Code) > limits.MaxCodeBytes {
		return Submission{}, pkgerrors.New(pkgerrors.CodeTooLarge).WithDetail("max_bytes", limits.MaxCodeBytes)
	}
	if limits.MaxTestCases > 0 && len(r.TestCases) > limits.MaxTestCases {
		return Submission{}, pkgerrors.New(pkgerrors.TooManyTestCases).WithDetail("max", limits.MaxTestCases)
	}

	cases := make([]TestCase, len(r.TestCases))
	for i, tc := range r.TestCases {
		input, err := inputText(tc.Input)
		if err != nil {
			return Submission{}, pkgerrors.Wrap(err, pkgerrors.InvalidTestCaseData).WithDetail("index", i)
		}
		output, err := outputText(tc.Output)
		if err != nil {
			return Submission{}, pkgerrors.Wrap(err, pkgerrors.InvalidTestCaseData).WithDetail("index", i)
		}
		cases[i] = TestCase{Input: input, Output: output}
	}

	return Submission{
		Code:          r.Code,
		Func:          r.Func,
		Action:        action,
		TimeLimitMs:   r.TimeLimit,
		MemoryLimitKB: int64(math.Round(r.MemoryLimit * 1024)),
		TestCases:     cases,
	}, nil
}

// inputText renders an input as argument list text. A JSON array lists the
// arguments themselves; strings are taken verbatim.
func inputText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			compact, err := compactJSON(item)
			if err != nil {
				return "", err
			}
			parts[i] = compact
		}
		return strings.Join(parts, ","), nil
	}
	return compactJSON(raw)
}

// outputText renders an expected output. Strings are taken verbatim, other
// values use compact JSON.
func outputText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return compactJSON(raw)
}

func compactJSON(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

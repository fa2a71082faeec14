package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	pkgerrors "execjudge/pkg/errors"
)

func decodeRequest(t *testing.T, body string) ExecutionRequest {
	t.Helper()
	var req ExecutionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode request failed: %v", err)
	}
	return req
}

func TestToSubmission(t *testing.T) {
	req := decodeRequest(t, `{
		"code": "function add_two(a, b) { return a + b }",
		"func": "add_two",
		"action": "Submit",
		"timeLimit": 1000,
		"memoryLimit": 1.5,
		"testCases": [
			{"input": "2,3", "output": "5"},
			{"input": [[1, 2], {"k": "v"}], "output": [1, 2]},
			{"input": 7, "output": 7},
			{"output": null}
		]
	}`)
	sub, err := req.ToSubmission(Limits{})
	if err != nil {
		t.Fatalf("ToSubmission failed: %v", err)
	}
	if sub.Action != ActionSubmit {
		t.Fatalf("unexpected action %q", sub.Action)
	}
	if sub.MemoryLimitKB != 1536 {
		t.Fatalf("memory limit = %d, want 1536", sub.MemoryLimitKB)
	}
	want := []TestCase{
		{Input: "2,3", Output: "5"},
		{Input: `[1,2],{"k":"v"}`, Output: "[1,2]"},
		{Input: "7", Output: "7"},
		{Input: "", Output: "null"},
	}
	for i, tc := range want {
		if sub.TestCases[i] != tc {
			t.Fatalf("test case %d = %+v, want %+v", i, sub.TestCases[i], tc)
		}
	}
}

func TestToSubmissionMissingFields(t *testing.T) {
	req := decodeRequest(t, `{"code": "x", "timeLimit": 0}`)
	_, err := req.ToSubmission(Limits{})
	if !pkgerrors.Is(err, pkgerrors.RequiredFieldEmpty) {
		t.Fatalf("expected RequiredFieldEmpty, got %v", err)
	}
	if err.Error() != "Missing required fields in request body." {
		t.Fatalf("unexpected message: %v", err)
	}
	fields := pkgerrors.GetError(err).Details["fields"].([]string)
	if len(fields) != 5 {
		t.Fatalf("unexpected missing fields: %v", fields)
	}
}

func TestToSubmissionEmptyTestCasesAllowed(t *testing.T) {
	req := decodeRequest(t, `{"code": "x", "testCases": [], "action": "run", "func": "f", "timeLimit": 1, "memoryLimit": 1}`)
	sub, err := req.ToSubmission(Limits{})
	if err != nil {
		t.Fatalf("ToSubmission failed: %v", err)
	}
	if len(sub.TestCases) != 0 {
		t.Fatalf("expected no test cases")
	}
}

func TestToSubmissionRejects(t *testing.T) {
	base := ExecutionRequest{
		Code:        "function f() {}",
		TestCases:   []TestCasePayload{{Input: json.RawMessage(`"1"`), Output: json.RawMessage(`"1"`)}},
		Action:      "run",
		Func:        "f",
		TimeLimit:   100,
		MemoryLimit: 64,
	}
	tests := []struct {
		name   string
		mutate func(r *ExecutionRequest)
		limits Limits
		code   pkgerrors.ErrorCode
	}{
		{name: "unknown action", mutate: func(r *ExecutionRequest) { r.Action = "debug" }, code: pkgerrors.UnsupportedAction},
		{name: "negative time", mutate: func(r *ExecutionRequest) { r.TimeLimit = -5 }, code: pkgerrors.InvalidLimit},
		{name: "negative memory", mutate: func(r *ExecutionRequest) { r.MemoryLimit = -1 }, code: pkgerrors.InvalidLimit},
		{
			name:   "time limit above cap",
			mutate: func(r *ExecutionRequest) { r.TimeLimit = 86400000 },
			limits: Limits{MaxTimeLimitMs: 10000},
			code:   pkgerrors.InvalidLimit,
		},
		{
			name:   "time limit overflows duration",
			mutate: func(r *ExecutionRequest) { r.TimeLimit = math.MaxInt64 },
			code:   pkgerrors.InvalidLimit,
		},
		{name: "code too large", mutate: func(r *ExecutionRequest) {}, limits: Limits{MaxCodeBytes: 4}, code: pkgerrors.CodeTooLarge},
		{
			name: "too many test cases",
			mutate: func(r *ExecutionRequest) {
				r.TestCases = append(r.TestCases, r.TestCases[0])
			},
			limits: Limits{MaxTestCases: 1},
			code:   pkgerrors.TooManyTestCases,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.TestCases = append([]TestCasePayload(nil), base.TestCases...)
			tt.mutate(&req)
			_, err := req.ToSubmission(tt.limits)
			if pkgerrors.GetCode(err) != tt.code {
				t.Fatalf("expected %v, got %v", tt.code, err)
			}
			if pkgerrors.GetCode(err).HTTPStatus() != 400 {
				t.Fatalf("expected 400 status for %v", tt.code)
			}
		})
	}
}

func TestToSubmissionTimeLimitAtCap(t *testing.T) {
	req := ExecutionRequest{
		Code:        "function f() {}",
		TestCases:   []TestCasePayload{},
		Action:      "submit",
		Func:        "f",
		TimeLimit:   10000,
		MemoryLimit: 64,
	}
	sub, err := req.ToSubmission(Limits{MaxTimeLimitMs: 10000})
	if err != nil {
		t.Fatalf("limit equal to the cap should pass: %v", err)
	}
	if sub.TimeLimit() != 10*time.Second {
		t.Fatalf("unexpected time limit: %v", sub.TimeLimit())
	}
}

func TestSubmissionTimeLimitDoesNotOverflow(t *testing.T) {
	sub := Submission{TimeLimitMs: math.MaxInt64}
	if sub.TimeLimit() <= 0 {
		t.Fatalf("time limit overflowed: %v", sub.TimeLimit())
	}
}

package command

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
	return path
}

func TestBuildRequestFromParams(t *testing.T) {
	codePath := writeFile(t, "sum.js", "function sum(a, b) { return a + b }")
	cmd := Registry()["run"]
	params := Params{}
	params.Set("file", codePath)
	params.Set("fn", "sum")
	params.Set("cases", `[{"input":"1, 2","output":"3"},{"input":[4,5],"output":9}]`)
	params.Set("tl", "500")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Action != "run" || req.Func != "sum" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Code != "function sum(a, b) { return a + b }" {
		t.Fatalf("code not read from file: %q", req.Code)
	}
	if len(req.TestCases) != 2 || string(req.TestCases[1].Output) != "9" {
		t.Fatalf("unexpected cases: %+v", req.TestCases)
	}
	if req.TimeLimit != 500 || req.MemoryLimit != DefaultMemoryLimitMB {
		t.Fatalf("unexpected limits: %d %v", req.TimeLimit, req.MemoryLimit)
	}
}

func TestBuildRequestOverridesRequestFile(t *testing.T) {
	reqPath := writeFile(t, "req.json", `{"code":"const f = x => x","func":"f","action":"run","testCases":[{"input":"1","output":"1"}],"timeLimit":100,"memoryLimit":64}`)
	params := Params{}
	params.Set("request", reqPath)
	params.Set("memory_limit", "128")

	req, err := BuildRequest(Registry()["submit"], params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Action != "submit" {
		t.Fatalf("command action should win, got %s", req.Action)
	}
	if req.Func != "f" || req.TimeLimit != 100 || req.MemoryLimit != 128 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.TestCases) != 1 {
		t.Fatalf("cases from file lost: %+v", req.TestCases)
	}
}

func TestBuildRequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{name: "no code", params: map[string]string{"func": "f"}},
		{name: "bad cases", params: map[string]string{"code": "1", "cases": "[{"}},
		{name: "bad time limit", params: map[string]string{"code": "1", "time_limit": "soon"}},
		{name: "missing code file", params: map[string]string{"code_file": "/nonexistent/x.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := Params{}
			for k, v := range tt.params {
				params.Set(k, v)
			}
			if _, err := BuildRequest(Registry()["run"], params); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildRequestEmptyCases(t *testing.T) {
	params := Params{}
	params.Set("code", "function f() {}")
	params.Set("func", "f")
	req, err := BuildRequest(Registry()["run"], params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.TestCases == nil || len(req.TestCases) != 0 {
		t.Fatalf("expected an empty, non-nil case list: %#v", req.TestCases)
	}
}

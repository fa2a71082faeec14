package command

import (
	"encoding/json"
	"fmt"

	"execjudge/internal/judge/model"
)

const (
	DefaultTimeLimitMs   = 2000
	DefaultMemoryLimitMB = 256
)

var executionFields = []Field{
	{Name: "func", Aliases: []string{"fn", "entry"}, Prompt: "function name", Type: FieldString, Required: true},
	{Name: "code", Aliases: []string{"source"}, Prompt: "code", Type: FieldString},
	{Name: "code_file", Aliases: []string{"file"}, Prompt: "code file", Type: FieldFile},
	{Name: "cases", Aliases: []string{"tests"}, Prompt: "test cases json", Type: FieldJSON},
	{Name: "cases_file", Prompt: "test cases file", Type: FieldFile},
	{Name: "request_file", Aliases: []string{"request"}, Prompt: "request file", Type: FieldFile},
	{Name: "time_limit", Aliases: []string{"tl"}, Prompt: "time limit (ms)", Type: FieldInt64},
	{Name: "memory_limit", Aliases: []string{"ml"}, Prompt: "memory limit (MB)", Type: FieldFloat},
}

// Registry returns the REPL commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{Name: "run", Action: string(model.ActionRun), Fields: executionFields},
		{Name: "submit", Action: string(model.ActionSubmit), Fields: executionFields},
	}
	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Name] = cmd
	}
	return result
}

// LoadRequest reads an execution request JSON file.
func LoadRequest(path string) (model.ExecutionRequest, error) {
	var req model.ExecutionRequest
	data, err := ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return req, fmt.Errorf("parse request file failed: %w", err)
	}
	return req, nil
}

// BuildRequest creates the execution request for cmd. Values from
// request_file are overridden by explicit params.
func BuildRequest(cmd Command, params Params) (model.ExecutionRequest, error) {
	params.Canonicalize(cmd.Fields)

	var req model.ExecutionRequest
	if path := params.Get("request_file"); path != "" {
		loaded, err := LoadRequest(path)
		if err != nil {
			return req, err
		}
		req = loaded
	}
	req.Action = cmd.Action

	code := params.Get("code")
	if code == "" && params.Get("code_file") != "" {
		data, err := ReadFile(params.Get("code_file"))
		if err != nil {
			return req, err
		}
		code = data
	}
	if code != "" {
		req.Code = code
	}
	if req.Code == "" {
		return req, fmt.Errorf("code or code_file is required")
	}
	if fn := params.Get("func"); fn != "" {
		req.Func = fn
	}

	cases, err := parseCases(params)
	if err != nil {
		return req, err
	}
	if cases != nil {
		req.TestCases = cases
	}
	if req.TestCases == nil {
		req.TestCases = []model.TestCasePayload{}
	}

	if raw := params.Get("time_limit"); raw != "" {
		req.TimeLimit, err = ParseInt64(raw)
		if err != nil {
			return req, fmt.Errorf("invalid time_limit: %w", err)
		}
	}
	if req.TimeLimit == 0 {
		req.TimeLimit = DefaultTimeLimitMs
	}
	if raw := params.Get("memory_limit"); raw != "" {
		req.MemoryLimit, err = ParseFloat(raw)
		if err != nil {
			return req, fmt.Errorf("invalid memory_limit: %w", err)
		}
	}
	if req.MemoryLimit == 0 {
		req.MemoryLimit = DefaultMemoryLimitMB
	}
	return req, nil
}

func parseCases(params Params) ([]model.TestCasePayload, error) {
	raw := params.Get("cases")
	if raw == "" && params.Get("cases_file") != "" {
		data, err := ReadFile(params.Get("cases_file"))
		if err != nil {
			return nil, err
		}
		raw = data
	}
	if raw == "" {
		return nil, nil
	}
	payload, err := ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid cases: %w", err)
	}
	var cases []model.TestCasePayload
	if err := json.Unmarshal(payload, &cases); err != nil {
		return nil, fmt.Errorf("invalid cases: %w", err)
	}
	return cases, nil
}

package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"execjudge/internal/cli/command"
	httpclient "execjudge/internal/cli/http"
	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/result"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

// Executor sends one execution request.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) (httpclient.ResponseInfo, error)
}

// Session holds REPL state.
type Session struct {
	executor    Executor
	client      *httpclient.Client
	commands    map[string]command.Command
	historyFile string
	prettyJSON  bool
	out         io.Writer
	prompt      func(label string) (string, error)
}

// New creates a session. client is nil when judging locally.
func New(executor Executor, client *httpclient.Client, commands map[string]command.Command, historyFile string, prettyJSON bool, out io.Writer) *Session {
	return &Session{
		executor:    executor,
		client:      client,
		commands:    commands,
		historyFile: historyFile,
		prettyJSON:  prettyJSON,
		out:         out,
		prompt: func(string) (string, error) {
			return "", fmt.Errorf("no interactive input")
		},
	}
}

// Run reads commands until exit, EOF or an interrupt on an empty line.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "execjudge> ",
		HistoryFile:     s.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.out = rl.Stdout()
	s.prompt = func(label string) (string, error) {
		rl.SetPrompt(label + ": ")
		defer rl.SetPrompt("execjudge> ")
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		if quit := s.HandleLine(ctx, line); quit {
			return nil
		}
	}
}

// HandleLine executes one input line and reports whether the session should end.
func (s *Session) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true
	case "help":
		s.printHelp()
		return false
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return false
	}
	if line == "show config" {
		s.handleShow()
		return false
	}
	if err := s.handleCommand(ctx, line); err != nil {
		s.printLine("error: %v", err)
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout|pretty")
		return
	}
	if parts[0] == "pretty" {
		s.prettyJSON = len(parts) < 2 || parts[1] != "off"
		s.printLine("pretty output %t", s.prettyJSON)
		return
	}
	if s.client == nil {
		s.printLine("judging locally, no server to configure")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8085")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow() {
	if s.client == nil {
		s.printLine("mode: local")
	} else {
		s.printLine("mode: remote %s", s.client.BaseURL())
	}
	s.printLine("historyFile: %s", s.historyFile)
	s.printLine("prettyJSON: %t", s.prettyJSON)
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", tokens[0])
	}
	params := command.Params{}
	for _, token := range tokens[1:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)

	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.executor.Execute(ctx, req)
	if err != nil {
		return err
	}
	s.Render(resp)
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	if params.Get("request_file") != "" {
		return nil
	}
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		value, err := s.prompt(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

// Render prints a response the way the REPL does.
func (s *Session) Render(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if resp.StatusCode == http.StatusOK {
		var res result.JudgeResult
		if err := json.Unmarshal(resp.Body, &res); err == nil && res.Status != "" {
			s.printLine("%s: %d/%d passed, %d ms, %d KB", res.Status, res.PassedTestCases, res.TotalTestCases, res.Runtime, res.Memory)
		}
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("usage: run|submit key=value ...")
	s.printLine("keys: func code code_file cases cases_file request_file time_limit memory_limit")
	s.printLine("system: help | exit | set base|timeout|pretty | show config")
	s.printLine("examples:")
	s.printLine("  run code_file=./sum.js func=sum cases='[{\"input\":\"1, 2\",\"output\":\"3\"}]'")
	s.printLine("  submit request_file=./two_sum.json")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

// Package engine runs submitted JavaScript inside a fresh goja runtime per test.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"execjudge/internal/judge/sandbox/resolver"
	"execjudge/internal/judge/sandbox/result"
	pkgerrors "execjudge/pkg/errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
)

const sourceName = "submission.js"

var (
	errTimeLimit   = errors.New("script execution timed out")
	errOutputLimit = errors.New("console output limit reached")
)

// Program is a parsed and compiled submission. It is immutable and may be run
// by many runtimes concurrently.
type Program struct {
	compiled *goja.Program
	syntax   *ast.Program
}

// Syntax returns the parsed program.
func (p *Program) Syntax() *ast.Program {
	return p.syntax
}

// Request describes one sandboxed execution.
type Request struct {
	Program   *Program
	Entry     resolver.Entry
	Input     string
	TimeLimit time.Duration
}

// Engine executes programs. It holds no per-run state.
type Engine struct {
	cfg Config
}

// New creates an engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Prepare parses and compiles source once per submission.
func (e *Engine) Prepare(source string) (*Program, error) {
	syntax, err := goja.Parse(sourceName, source)
	if err != nil {
		return nil, syntaxError(err)
	}
	compiled, err := goja.CompileAST(syntax, false)
	if err != nil {
		return nil, syntaxError(err)
	}
	return &Program{compiled: compiled, syntax: syntax}, nil
}

func syntaxError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "SyntaxError") {
		msg = "SyntaxError: " + msg
	}
	return pkgerrors.Wrapf(err, pkgerrors.CompilationError, "%s", msg)
}

// Run executes req in a newly constructed runtime. The runtime only exposes
// ECMAScript built-ins plus console.log, setTimeout and clearTimeout, and is
// discarded afterwards.
func (e *Engine) Run(ctx context.Context, req Request) (out result.Outcome, err error) {
	if req.Program == nil {
		return out, pkgerrors.New(pkgerrors.JudgeSystemError).WithMessage("program is not prepared")
	}
	exprs, err := parseArgs(req.Input)
	if err != nil {
		return out, err
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(e.cfg.MaxCallStackSize)
	text, err := newRealmText(vm)
	if err != nil {
		return out, err
	}
	con := newConsole(vm, text, e.cfg.MaxOutputLines)
	timers := newTimerQueue(vm)
	if err := install(vm, con, timers); err != nil {
		return out, err
	}

	deadline := time.AfterFunc(req.TimeLimit, func() { vm.Interrupt(errTimeLimit) })
	defer deadline.Stop()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Newf(pkgerrors.JudgeSystemError, "sandbox panic: %v", r).
				WithDetail("stack", string(debug.Stack()))
		}
	}()

	if _, err := vm.RunProgram(req.Program.compiled); err != nil {
		return out, classify(err, req.TimeLimit)
	}
	fn, err := lookupEntry(vm, req.Entry)
	if err != nil {
		return out, classify(err, req.TimeLimit)
	}
	ret, err := fn(goja.Undefined(), buildArgs(vm, exprs)...)
	if err != nil {
		return out, classify(err, req.TimeLimit)
	}
	if err := timers.drain(); err != nil {
		return out, classify(err, req.TimeLimit)
	}
	ret, err = settle(ret)
	if err != nil {
		return out, classify(err, req.TimeLimit)
	}
	value, has, err := canonical(text, ret)
	if err != nil {
		return out, classify(err, req.TimeLimit)
	}
	return result.Outcome{Value: value, HasValue: has, Stdout: con.output()}, nil
}

func install(vm *goja.Runtime, con *console, timers *timerQueue) error {
	consoleObj := vm.NewObject()
	if err := consoleObj.Set("log", con.log); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.JudgeSystemError)
	}
	globals := map[string]interface{}{
		"console":      consoleObj,
		"setTimeout":   timers.setTimeout,
		"clearTimeout": timers.clearTimeout,
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.JudgeSystemError)
		}
	}
	return nil
}

// lookupEntry returns the first candidate bound to a function after the
// program has run.
func lookupEntry(vm *goja.Runtime, entry resolver.Entry) (goja.Callable, error) {
	for _, name := range entry.Candidates {
		v, err := vm.RunString(name)
		if err != nil {
			var interrupted *goja.InterruptedError
			if errors.As(err, &interrupted) {
				return nil, err
			}
			continue
		}
		if fn, ok := goja.AssertFunction(v); ok {
			return fn, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.NoFunctionFound).WithDetail("func", entry.Requested)
}

// classify maps a runtime failure onto a judge error code.
func classify(err error, limit time.Duration) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		cause, _ := interrupted.Value().(error)
		switch {
		case errors.Is(cause, errOutputLimit):
			return pkgerrors.New(pkgerrors.OutputLimitExceeded)
		case errors.Is(cause, errTimeLimit):
			return pkgerrors.Newf(pkgerrors.TimeLimitExceeded,
				"Script execution timed out after %dms", limit.Milliseconds())
		default:
			return pkgerrors.Wrapf(err, pkgerrors.JudgeSystemError, "execution cancelled: %v", cause)
		}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		msg, stack := describe(ex.Value())
		if _, isObj := ex.Value().(*goja.Object); isObj && stack == "" {
			stack = ex.String()
		}
		return runtimeError(err, msg, stack)
	}
	if reason, ok := isRejection(err); ok {
		msg, stack := describe(reason)
		return runtimeError(err, msg, stack)
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return syntaxError(err)
	}
	if _, ok := err.(*pkgerrors.Error); ok {
		return err
	}
	return runtimeError(err, err.Error(), "")
}

func runtimeError(err error, msg, stack string) error {
	return pkgerrors.Wrapf(err, pkgerrors.RuntimeError, "%s", msg).WithDetail("stack", stack)
}

// describe extracts message and stack from a thrown value. Non-error values
// are stringified and carry no stack.
func describe(v goja.Value) (string, string) {
	if v == nil {
		return "", ""
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String(), ""
	}
	var msg, stack string
	if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
		msg = m.String()
	}
	if s := obj.Get("stack"); s != nil && !goja.IsUndefined(s) {
		stack = s.String()
	}
	if msg == "" {
		msg = obj.String()
	}
	return msg, stack
}

// Stack returns the JavaScript stack attached to a run error, if any.
func Stack(err error) string {
	e := pkgerrors.GetError(err)
	if e == nil {
		return ""
	}
	if s, ok := e.Details["stack"].(string); ok {
		return s
	}
	return ""
}

var (
	versionOnce sync.Once
	version     string
)

// Version reports the interpreter module version and the Go runtime.
func Version() string {
	versionOnce.Do(func() {
		version = "goja/unknown " + runtime.Version()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, dep := range info.Deps {
			if dep.Path == "github.com/dop251/goja" {
				version = fmt.Sprintf("goja/%s %s", dep.Version, runtime.Version())
				return
			}
		}
	})
	return version
}

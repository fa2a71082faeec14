package engine

import (
	"errors"
	"strings"

	"github.com/dop251/goja"
)

// console captures console.log output of one run.
type console struct {
	vm       *goja.Runtime
	text     realmText
	max      int
	lines    []string
	exceeded bool
}

func newConsole(vm *goja.Runtime, text realmText, max int) *console {
	return &console{vm: vm, text: text, max: max}
}

func (c *console) log(call goja.FunctionCall) goja.Value {
	if c.exceeded {
		return goja.Undefined()
	}
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		parts = append(parts, c.format(arg))
	}
	if len(c.lines) >= c.max {
		c.exceeded = true
		c.vm.Interrupt(errOutputLimit)
		return goja.Undefined()
	}
	c.lines = append(c.lines, strings.Join(parts, " "))
	return goja.Undefined()
}

// format renders objects (null included) as JSON and everything else with String().
func (c *console) format(arg goja.Value) string {
	if goja.IsNull(arg) {
		return "null"
	}
	var (
		out string
		err error
	)
	obj, ok := arg.(*goja.Object)
	switch {
	case !ok:
		out, err = c.text.primitive(arg)
	case isFunction(obj):
		return obj.String()
	default:
		out, err = c.text.json(obj)
	}
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			panic(ex.Value())
		}
		// interrupted; the runtime stops at the next instruction
		return ""
	}
	return out
}

func isFunction(obj *goja.Object) bool {
	_, ok := goja.AssertFunction(obj)
	return ok
}

func (c *console) output() []string {
	if c.lines == nil {
		return []string{}
	}
	return c.lines
}

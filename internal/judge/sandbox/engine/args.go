package engine

import (
	"math"
	"strconv"
	"strings"

	pkgerrors "execjudge/pkg/errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// parseArgs parses a test case input such as `2, "a", [1, {"k": null}]` as an
// argument list. Only literal values are accepted; the input is never run.
func parseArgs(input string) ([]ast.Expression, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	program, err := goja.Parse("input", "["+input+"\n]")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.CompilationError, "SyntaxError: invalid test case input: %v", err)
	}
	if len(program.Body) != 1 {
		return nil, nonLiteralInput()
	}
	stmt, ok := program.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, nonLiteralInput()
	}
	list, ok := stmt.Expression.(*ast.ArrayLiteral)
	if !ok {
		return nil, nonLiteralInput()
	}
	for _, expr := range list.Value {
		if expr != nil && !isLiteral(expr) {
			return nil, nonLiteralInput()
		}
	}
	return list.Value, nil
}

func nonLiteralInput() error {
	return pkgerrors.New(pkgerrors.InvalidTestCaseData).
		WithMessage("test case input must be a list of literal values")
}

func isLiteral(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		_, ok := numberValue(e)
		return ok
	case *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
		return true
	case *ast.Identifier:
		switch e.Name.String() {
		case "undefined", "NaN", "Infinity":
			return true
		}
		return false
	case *ast.UnaryExpression:
		if e.Operator != token.MINUS && e.Operator != token.PLUS {
			return false
		}
		_, ok := signedNumber(e.Operand)
		return ok
	case *ast.ArrayLiteral:
		for _, item := range e.Value {
			if item != nil && !isLiteral(item) {
				return false
			}
		}
		return true
	case *ast.ObjectLiteral:
		for _, prop := range e.Value {
			keyed, ok := prop.(*ast.PropertyKeyed)
			if !ok || keyed.Computed || keyed.Kind != ast.PropertyKindValue {
				return false
			}
			if _, ok := propertyKey(keyed.Key); !ok {
				return false
			}
			if !isLiteral(keyed.Value) {
				return false
			}
		}
		return true
	}
	return false
}

func numberValue(lit *ast.NumberLiteral) (float64, bool) {
	switch v := lit.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func signedNumber(expr ast.Expression) (float64, bool) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return numberValue(e)
	case *ast.Identifier:
		switch e.Name.String() {
		case "Infinity":
			return math.Inf(1), true
		case "NaN":
			return math.NaN(), true
		}
	}
	return 0, false
}

func propertyKey(expr ast.Expression) (string, bool) {
	switch k := expr.(type) {
	case *ast.StringLiteral:
		return k.Value.String(), true
	case *ast.Identifier:
		return k.Name.String(), true
	case *ast.NumberLiteral:
		n, ok := numberValue(k)
		if !ok {
			return "", false
		}
		return formatNumberKey(n), true
	}
	return "", false
}

func formatNumberKey(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// buildArgs materialises parsed literals as values owned by vm.
func buildArgs(vm *goja.Runtime, exprs []ast.Expression) []goja.Value {
	args := make([]goja.Value, len(exprs))
	for i, expr := range exprs {
		args[i] = buildValue(vm, expr)
	}
	return args
}

func buildValue(vm *goja.Runtime, expr ast.Expression) goja.Value {
	switch e := expr.(type) {
	case nil:
		return goja.Undefined()
	case *ast.NumberLiteral:
		n, _ := numberValue(e)
		return vm.ToValue(n)
	case *ast.StringLiteral:
		return vm.ToValue(e.Value.String())
	case *ast.BooleanLiteral:
		return vm.ToValue(e.Value)
	case *ast.NullLiteral:
		return goja.Null()
	case *ast.Identifier:
		if e.Name.String() == "undefined" {
			return goja.Undefined()
		}
		n, _ := signedNumber(e)
		return vm.ToValue(n)
	case *ast.UnaryExpression:
		n, _ := signedNumber(e.Operand)
		if e.Operator == token.MINUS {
			n = -n
		}
		return vm.ToValue(n)
	case *ast.ArrayLiteral:
		items := make([]interface{}, len(e.Value))
		for i, item := range e.Value {
			items[i] = buildValue(vm, item)
		}
		return vm.NewArray(items...)
	case *ast.ObjectLiteral:
		obj := vm.NewObject()
		for _, prop := range e.Value {
			keyed := prop.(*ast.PropertyKeyed)
			key, _ := propertyKey(keyed.Key)
			value := buildValue(vm, keyed.Value)
			if key == "__proto__" {
				setLiteralProto(obj, value)
				continue
			}
			_ = obj.DefineDataProperty(key, value, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE)
		}
		return obj
	}
	return goja.Undefined()
}

// setLiteralProto applies a `__proto__: value` entry the way an object
// literal does: objects and null become the prototype, anything else is
// ignored.
func setLiteralProto(obj *goja.Object, value goja.Value) {
	if goja.IsNull(value) {
		_ = obj.SetPrototype(nil)
		return
	}
	if proto, ok := value.(*goja.Object); ok {
		_ = obj.SetPrototype(proto)
	}
}

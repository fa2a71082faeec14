// Package resolver locates the entry point of a submitted program.
package resolver

import (
	"regexp"
	"strings"

	pkgerrors "execjudge/pkg/errors"

	"github.com/dop251/goja/ast"
)

var snakeSegment = regexp.MustCompile(`_([a-z])`)

// reserved names are injected by the sandbox and never picked by the fallback scan.
var reserved = map[string]struct{}{
	"console":      {},
	"setTimeout":   {},
	"clearTimeout": {},
}

// Entry is the ordered list of top-level names that may serve as entry point.
// The executor invokes the first one that is callable at run time.
type Entry struct {
	Requested  string
	Candidates []string
}

// Primary returns the preferred candidate.
func (e Entry) Primary() string {
	if len(e.Candidates) == 0 {
		return ""
	}
	return e.Candidates[0]
}

// CamelCase converts snake_case segments to camelCase; "add_two" becomes "addTwo".
func CamelCase(name string) string {
	return snakeSegment.ReplaceAllStringFunc(name, func(seg string) string {
		return strings.ToUpper(seg[1:])
	})
}

type declaration struct {
	name     string
	callable bool
}

// Resolve selects the entry point for the requested name within program.
//
// Order: the camelCase variant of name, name itself, then every top-level
// declaration known to hold a function, in declaration order.
func Resolve(program *ast.Program, name string) (Entry, error) {
	decls := topLevel(program)
	declared := make(map[string]struct{}, len(decls))
	for _, d := range decls {
		declared[d.name] = struct{}{}
	}

	entry := Entry{Requested: name}
	seen := make(map[string]struct{})
	add := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		entry.Candidates = append(entry.Candidates, candidate)
	}

	camel := CamelCase(name)
	if _, ok := declared[camel]; ok {
		add(camel)
	}
	if _, ok := declared[name]; ok {
		add(name)
	}
	for _, d := range decls {
		if !d.callable {
			continue
		}
		if _, skip := reserved[d.name]; skip {
			continue
		}
		add(d.name)
	}

	if len(entry.Candidates) == 0 {
		return entry, pkgerrors.New(pkgerrors.NoFunctionFound).WithDetail("func", name)
	}
	return entry, nil
}

func topLevel(program *ast.Program) []declaration {
	if program == nil {
		return nil
	}
	var out []declaration
	for _, stmt := range program.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			if s.Function != nil && s.Function.Name != nil {
				out = append(out, declaration{name: s.Function.Name.Name.String(), callable: true})
			}
		case *ast.VariableStatement:
			out = appendBindings(out, s.List)
		case *ast.LexicalDeclaration:
			out = appendBindings(out, s.List)
		case *ast.ClassDeclaration:
			// classes answer typeof "function" but are only reachable by name
			if s.Class != nil && s.Class.Name != nil {
				out = append(out, declaration{name: s.Class.Name.Name.String()})
			}
		}
	}
	return out
}

func appendBindings(out []declaration, list []*ast.Binding) []declaration {
	for _, b := range list {
		id, ok := b.Target.(*ast.Identifier)
		if !ok {
			continue
		}
		out = append(out, declaration{
			name:     id.Name.String(),
			callable: isFunctionLiteral(b.Initializer),
		})
	}
	return out
}

func isFunctionLiteral(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return true
	}
	return false
}

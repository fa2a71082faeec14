package engine

import (
	"errors"

	pkgerrors "execjudge/pkg/errors"

	"github.com/dop251/goja"
)

// realmText holds the realm's own String and JSON.stringify, captured before
// user code can replace them.
type realmText struct {
	str       goja.Callable
	stringify goja.Callable
}

func newRealmText(vm *goja.Runtime) (realmText, error) {
	str, ok := goja.AssertFunction(vm.Get("String"))
	if !ok {
		return realmText{}, pkgerrors.New(pkgerrors.JudgeSystemError).WithMessage("String is not callable")
	}
	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return realmText{}, pkgerrors.New(pkgerrors.JudgeSystemError).WithMessage("JSON is not available")
	}
	stringify, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return realmText{}, pkgerrors.New(pkgerrors.JudgeSystemError).WithMessage("JSON.stringify is not callable")
	}
	return realmText{str: str, stringify: stringify}, nil
}

// primitive converts a non-object value the way String(v) does, so symbols
// read "Symbol(desc)".
func (t realmText) primitive(v goja.Value) (string, error) {
	out, err := t.str(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func (t realmText) json(obj *goja.Object) (string, error) {
	out, err := t.stringify(goja.Undefined(), obj)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// canonical renders a returned value for comparison with the expected output.
// undefined yields no value, composites use JSON.stringify, functions their
// source text and other primitives String().
func canonical(text realmText, v goja.Value) (string, bool, error) {
	if v == nil || goja.IsUndefined(v) {
		return "", false, nil
	}
	if goja.IsNull(v) {
		return "null", true, nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		out, err := text.primitive(v)
		if err != nil {
			return "", false, err
		}
		return out, true, nil
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return obj.String(), true, nil
	}
	out, err := text.json(obj)
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// settle unwraps a promise that has already resolved. Pending promises are
// returned untouched.
func settle(v goja.Value) (goja.Value, error) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v, nil
	}
	p, ok := obj.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, errRejected{reason: p.Result()}
	}
	return v, nil
}

type errRejected struct {
	reason goja.Value
}

func (e errRejected) Error() string {
	if e.reason == nil {
		return "promise rejected"
	}
	return e.reason.String()
}

func isRejection(err error) (goja.Value, bool) {
	var r errRejected
	if errors.As(err, &r) {
		return r.reason, true
	}
	return nil, false
}

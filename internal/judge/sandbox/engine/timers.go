package engine

import (
	"math"

	"github.com/dop251/goja"
)

const maxTimerDelay = math.MaxInt32

type timer struct {
	id   int64
	due  int64
	fn   goja.Callable
	args []goja.Value
}

// timerQueue implements setTimeout/clearTimeout on a virtual clock. Callbacks
// run after the entry point returns, ordered by due time then creation.
type timerQueue struct {
	vm      *goja.Runtime
	nextID  int64
	now     int64
	pending map[int64]*timer
}

func newTimerQueue(vm *goja.Runtime) *timerQueue {
	return &timerQueue{vm: vm, pending: make(map[int64]*timer)}
}

func (q *timerQueue) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(q.vm.NewTypeError("The \"callback\" argument must be of type function"))
	}
	delay := call.Argument(1).ToInteger()
	if delay < 1 || delay > maxTimerDelay {
		delay = 1
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}
	q.nextID++
	q.pending[q.nextID] = &timer{id: q.nextID, due: q.now + delay, fn: fn, args: args}
	return q.vm.ToValue(q.nextID)
}

func (q *timerQueue) clearTimeout(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return goja.Undefined()
	}
	delete(q.pending, arg.ToInteger())
	return goja.Undefined()
}

func (q *timerQueue) next() *timer {
	var best *timer
	for _, t := range q.pending {
		if best == nil || t.due < best.due || (t.due == best.due && t.id < best.id) {
			best = t
		}
	}
	return best
}

// drain fires pending timers until none are left or a callback fails.
func (q *timerQueue) drain() error {
	for len(q.pending) > 0 {
		t := q.next()
		delete(q.pending, t.id)
		q.now = t.due
		if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
			return err
		}
	}
	return nil
}

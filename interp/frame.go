package interp

import (
	"github.com/scottcarroll/rir/feedback"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/rir"
)

// ctxRecord is one entry of a Frame's unwind stack, pushed by OpBeginLoop
// and popped by OpEndContext, or discarded innermost-first when deopt
// truncates the stack (§3 "unwind record"). Records are released in reverse acquisition order
// (LIFO), which is the only order that is safe for host resources like
// on.exit handlers acquired by an enclosing context.
type ctxRecord struct {
	stackDepth int // operand-stack depth at acquisition, restored on exit
	pc         int // resume pc if this context is entered via deopt
}

// Frame is one interpreter activation: the operand stack, the local
// variable slots, the active environment, and the bookkeeping the source
// keeps per call (§4.1).
type Frame struct {
	code *rir.Code
	env  host.Env

	stack []host.Value
	sp    int

	locals []host.Value

	cache varCache
	ctxs  []ctxRecord

	pc int

	// oneShotOverflow records, per call site offset, whether the
	// arithmetic-overflow fallback warning has already fired (§ "one
	// warning per call site", see DESIGN.md supplemented features).
	oneShotOverflow map[int]bool
}

// NewFrame allocates a Frame ready to execute code in env.
func NewFrame(code *rir.Code, env host.Env) *Frame {
	return &Frame{
		code:   code,
		env:    env,
		stack:  make([]host.Value, code.MaxStack()),
		locals: make([]host.Value, code.NLocals()),
	}
}

func (f *Frame) push(v host.Value) {
	if f.sp == len(f.stack) {
		// Grown lazily: MaxStack is a static upper bound from the
		// compiler, but promise-body sub-frames and defensive margin make
		// a hard panic here the wrong failure mode for a reused buffer.
		f.stack = append(f.stack, v)
	} else {
		f.stack[f.sp] = v
	}
	f.sp++
}

func (f *Frame) pop() host.Value {
	f.sp--
	v := f.stack[f.sp]
	f.stack[f.sp] = nil
	return v
}

func (f *Frame) top() host.Value { return f.stack[f.sp-1] }

func (f *Frame) peek(depth int) host.Value { return f.stack[f.sp-1-depth] }

func (f *Frame) fb() *feedback.Block { return f.code.Feedback() }

func (f *Frame) markOverflowWarned(siteOff int) bool {
	if f.oneShotOverflow == nil {
		f.oneShotOverflow = make(map[int]bool)
	}
	if f.oneShotOverflow[siteOff] {
		return true
	}
	f.oneShotOverflow[siteOff] = true
	return false
}

package interp

import (
	"context"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"

	"github.com/scottcarroll/rir/deopt"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/pool"
)

func (vm *VM) warn(ctx context.Context, msg string) {
	logctx.Warn(ctx, msg)
}

// deopt executes OpDeopt: it tears down this frame's unwind contexts in
// reverse acquisition order (innermost first, matching how they were
// pushed by OpBeginLoop), then rebuilds the innermost baseline frame
// described by metaIdx's Metadata and resumes execution there (§4.7, P2).
//
// Only single-frame deopt (the Function whose body is actually executing)
// is re-entered; a Metadata describing an inlined caller chain has that
// chain recorded in Frames but this module does not yet peel callers back
// to their own baseline frames (see DESIGN.md's "deopt" section,
// "Multi-frame deopt").
func (f *Frame) deopt(ctx context.Context, vm *VM, metaIdx pool.Idx) (host.Value, error) {
	for i := len(f.ctxs) - 1; i >= 0; i-- {
		f.ctxs = f.ctxs[:i]
	}

	raw, ok := vm.Pool.Constant(metaIdx)
	if !ok {
		return nil, fmt.Errorf("interp: deopt metadata %d not interned", metaIdx)
	}
	meta := raw.(*deopt.Metadata)
	fm := meta.Innermost()

	nf := NewFrame(fm.Target, f.env)
	for i, src := range fm.Locals {
		nf.locals[i] = sourceValue(f, src)
	}
	for _, src := range fm.Stack {
		nf.push(sourceValue(f, src))
	}
	nf.pc = resumeInstrIndex(fm.Target, fm.ResumeOffset)

	owner := fm.Target.Owner()
	if fn, ok := owner.(interface{ SetDeopted() }); ok {
		fn.SetDeopted()
	}

	return nf.run(ctx, vm)
}

func sourceValue(f *Frame, src deopt.SlotSource) host.Value {
	if src.FromLocal >= 0 {
		return f.locals[src.FromLocal]
	}
	return f.stack[src.FromStack]
}

func resumeInstrIndex(c interface{ Offsets() []int }, byteOff int) int {
	offs := c.Offsets()
	for i, o := range offs {
		if o == byteOff {
			return i
		}
	}
	return 0
}

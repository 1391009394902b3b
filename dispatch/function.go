package dispatch

import (
	"sync/atomic"

	"github.com/scottcarroll/rir/rir"
)

// Signature is the caller-visible shape of a Function: the formal count
// and which positions have a default expression.
type Signature struct {
	NumFormals int
	HasDefault []bool
}

// Function is the compiled representation of one surface-closure version
// (§3 "Function"). Functions are value-like: a dispatch table holds
// several simultaneously, at different points in the assumption lattice.
type Function struct {
	Body *rir.Code
	Ctx  Assumptions

	invocations  atomic.Uint64
	markOptimize atomic.Bool
	deopted      atomic.Bool

	// DefaultArgs holds the default-argument codes, indexable by formal
	// position; nil where a formal has no default.
	DefaultArgs []*rir.Code
	Sig         Signature
}

// NewFunction builds a Function and attaches its back-reference from Body
// (§3 "a pointer to the owning Function").
func NewFunction(body *rir.Code, ctx Assumptions, sig Signature, defaults []*rir.Code) *Function {
	f := &Function{Body: body, Ctx: ctx, Sig: sig, DefaultArgs: defaults}
	body.SetOwner(f)
	return f
}

// RegisterInvocation bumps the invocation counter and returns its new
// value. Called by the interpreter's dispatch path on every call that
// resolves to this Function (§4.1 "the interpreter calls
// registerInvocation on the chosen Function").
func (f *Function) RegisterInvocation() uint64 {
	return f.invocations.Add(1)
}

// Invocations returns the current invocation count.
func (f *Function) Invocations() uint64 { return f.invocations.Load() }

// MarkForOptimization flags this Function as a candidate for the
// optimizer. The granularity of this flag (per-Function vs. per-closure)
// is an explicit Open Question in the source; this module marks
// per-Function, matching the "dispatch table holds independent Function
// slots" data model (see DESIGN.md).
func (f *Function) MarkForOptimization() { f.markOptimize.Store(true) }

func (f *Function) MarkedForOptimization() bool { return f.markOptimize.Load() }

// SetDeopted marks that this Function's specialized body has executed a
// deopt at least once. Informational only; it does not evict the slot.
func (f *Function) SetDeopted() { f.deopted.Store(true) }

func (f *Function) Deopted() bool { return f.deopted.Load() }

// Package deopt defines the on-stack deoptimization metadata produced by
// the PIR->RIR lowerer (component J) and consumed by the interpreter when
// it executes an OpDeopt (§3 "DeoptMetadata", §4.7, component K). A
// deoptimization trades a specialized Function's speed for the baseline
// version's full generality when a speculative assumption the optimizer
// made (a monomorphic call site, a never-object type guess) turns out to
// be wrong at runtime.
package deopt

import "github.com/scottcarroll/rir/rir"

// SlotSource describes where one rebuilt local or stack value comes from,
// relative to the specialized frame that is deoptimizing.
type SlotSource struct {
	// FromLocal, if >= 0, copies the specialized frame's local at this
	// index. Otherwise FromStack (if >= 0) copies the specialized frame's
	// operand stack at this depth from the bottom. Exactly one is set;
	// -1 marks the unused one.
	FromLocal int
	FromStack int
}

// FrameMeta is the rebuild recipe for one RIR activation record: the
// baseline Code to resume in, the byte offset to resume at, and how to
// populate that frame's locals and operand stack from the specialized
// frame that is unwinding.
type FrameMeta struct {
	Target       *rir.Code
	ResumeOffset int
	Locals       []SlotSource
	Stack        []SlotSource
}

// Metadata is one OpDeopt immediate's payload (interned in the process
// pool like any other constant, per §3 "deopt_ ... referencing a
// DeoptMetadata blob"). Frames is ordered outermost-caller-first, so
// unwinding it processes entries in the same order a Frame's own context
// stack unwinds: innermost first, which here means the LAST element of
// Frames, mirroring reverse acquisition order (see DESIGN.md).
type Metadata struct {
	Frames []FrameMeta
}

// Innermost is the frame whose specialized body is actually executing the
// OpDeopt; the interpreter resumes it directly. Entries before it in
// Frames describe the caller chain captured at specialization time, for
// an inlined call that must also be peeled back to baseline — a case this
// module's rebuild logic defines data for but the current interpreter does
// not yet re-enter (see DESIGN.md's "deopt" section, "Multi-frame deopt").
func (m Metadata) Innermost() FrameMeta {
	return m.Frames[len(m.Frames)-1]
}

package pir

// Effect is a bitset describing what an Instr might do beyond computing
// its result value (§4.5 "effect conservation", P5). The optimizer may
// only reorder or eliminate an instruction when doing so cannot be
// observed to change another effectful instruction's outcome.
type Effect uint16

const (
	// EffectReadsEnv is set by any instruction that reads a variable or
	// the current environment.
	EffectReadsEnv Effect = 1 << iota
	// EffectWritesEnv is set by variable assignment and environment
	// mutation.
	EffectWritesEnv
	// EffectForcesPromise is set by a force that might run arbitrary host
	// code (a promise body, which can itself call back into the engine).
	EffectForcesPromise
	// EffectCallsOut is set by any call to a closure or builtin this
	// module does not itself control.
	EffectCallsOut
	// EffectReflective is set by an operation that can observe or change
	// its caller's environment by name (e.g. sys.call, parent.frame
	// analogues) — anything the NoReflective assumption rules out.
	EffectReflective
	// EffectVisibility is set by an operation that changes the
	// host's notion of whether the next top-level result should print.
	EffectVisibility
	// EffectWarns is set by the one-shot overflow/coercion warnings the
	// arithmetic fast path emits.
	EffectWarns
	// EffectErrors is set by an operation that can raise a host-level
	// error and unwind the current evaluation.
	EffectErrors
	// EffectLeakArg is set by a call whose callee is not known to this
	// module: the callee implementation may retain an argument beyond the
	// call's own lifetime (e.g. storing it in a closure or environment).
	EffectLeakArg
	// EffectChangesContexts is set by an operation that pushes or pops an
	// unwind context (a loop body boundary, a promise frame).
	EffectChangesContexts
	// EffectLeaksEnv is set by an operation that can hand this frame's
	// environment to code outside this module's control.
	EffectLeaksEnv
	// EffectTriggerDeopt is set by a Checkpoint: even though all it does
	// is read one value and either fall through or deopt, it must never be
	// treated as droppable dead code the way a merely pure instruction
	// would be — triggering the deopt on guard failure is the entire
	// reason it is there.
	EffectTriggerDeopt

	effectNone Effect = 0
)

// None is the effect set of a pure instruction.
func None() Effect { return effectNone }

// Union combines effect sets, used when an instruction is itself a
// subsuming composite of several simpler operations (e.g. speculative
// inlining folding a call into its callee's body).
func (e Effect) Union(o Effect) Effect { return e | o }

// Has reports whether e includes f.
func (e Effect) Has(f Effect) bool { return e&f != 0 }

// IsPure reports whether an instruction with this effect set can be
// freely reordered or eliminated if its result is unused.
func (e Effect) IsPure() bool { return e == effectNone }

// Commutes reports whether two effect sets are safe to reorder with each
// other: conservatively, true only if neither writes anything the other
// reads, approximated here (matching the source's own approximation) as
// "either side is pure, or neither side writes the environment".
func (e Effect) Commutes(o Effect) bool {
	if e.IsPure() || o.IsPure() {
		return true
	}
	if !e.Has(EffectWritesEnv) && !o.Has(EffectWritesEnv) {
		return !e.Has(EffectReadsEnv) || !o.Has(EffectWritesEnv)
	}
	return false
}

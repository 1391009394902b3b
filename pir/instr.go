package pir

import "github.com/scottcarroll/rir/pool"

// ValueID names the SSA value one Instr produces, unique within a single
// ClosureVersion. Operands reference other instructions by ValueID rather
// than by pointer, so a Block's instruction list can be freely edited
// (via analysis.Editor) without invalidating references held elsewhere.
type ValueID int

// Instr is the sealed instruction interface (§4.4 "PIR instruction"): a
// closed set of concrete kinds below, distinguished by a type switch
// rather than virtual dispatch, each embedding base for its identity,
// result type, and effect set.
type Instr interface {
	isInstr()
	ID() ValueID
	ResultType() Type
	Effects() Effect
}

type base struct {
	id  ValueID
	typ Type
	eff Effect
}

func (b base) ID() ValueID      { return b.id }
func (b base) ResultType() Type { return b.typ }
func (b base) Effects() Effect  { return b.eff }
func (base) isInstr()           {}

// Const loads an interned constant.
type Const struct {
	base
	Value pool.Idx
}

func NewConst(id ValueID, v pool.Idx, t Type) Const {
	return Const{base: base{id: id, typ: t}, Value: v}
}

// LdArg loads one of the closure's formal arguments by position.
type LdArg struct {
	base
	Index int
}

func NewLdArg(id ValueID, idx int, t Type) LdArg {
	return LdArg{base: base{id: id, typ: t, eff: None()}, Index: idx}
}

// LdVar reads a variable from the current environment, forcing a promise
// if the binding holds one.
type LdVar struct {
	base
	Sym pool.Idx
}

func NewLdVar(id ValueID, sym pool.Idx, t Type) LdVar {
	return LdVar{base: base{id: id, typ: t, eff: EffectReadsEnv | EffectForcesPromise}, Sym: sym}
}

// StVar assigns Value to Sym in the current environment.
type StVar struct {
	base
	Sym   pool.Idx
	Value ValueID
	Super bool
}

func NewStVar(id ValueID, sym pool.Idx, value ValueID, super bool) StVar {
	return StVar{base: base{id: id, typ: Void(), eff: EffectWritesEnv}, Sym: sym, Value: value, Super: super}
}

// MkEnv allocates a new environment with the given parent (ValueID of
// another env-typed instruction, or -1 for the closure's enclosing env).
type MkEnv struct {
	base
	Parent ValueID
}

func NewMkEnv(id ValueID, parent ValueID) MkEnv {
	return MkEnv{base: base{id: id, typ: Top(), eff: None()}, Parent: parent}
}

// BinOp is one arithmetic/comparison operator applied to two operands,
// speculatively typed by OpName (matching the interpreter's scalar fast
// path names in package interp, so lowering can emit the corresponding
// RIR opcode directly without a name table).
type BinOp struct {
	base
	OpName   string
	LHS, RHS ValueID
}

func NewBinOp(id ValueID, opName string, lhs, rhs ValueID, t Type) BinOp {
	return BinOp{base: base{id: id, typ: t, eff: None()}, OpName: opName, LHS: lhs, RHS: rhs}
}

// CallDynamic calls a callee Value not known at compile time.
type CallDynamic struct {
	base
	Callee ValueID
	Args   []ValueID
	Names  []pool.Idx // pool.Invalid for a positional argument
}

func NewCallDynamic(id ValueID, callee ValueID, args []ValueID, names []pool.Idx) CallDynamic {
	return CallDynamic{base: base{id: id, typ: Top(), eff: EffectCallsOut | EffectReadsEnv | EffectLeakArg | EffectErrors}, Callee: callee, Args: args, Names: names}
}

// CallStatic calls a closure the builder resolved at compile time from
// feedback (§4.4's speculative monomorphic inlining, before it gets
// inlined away entirely — a CallStatic that survives to lowering becomes
// an RIR static_call_ rather than a full inline).
type CallStatic struct {
	base
	Target pool.Idx // interned interp.CallStaticTarget
	Args   []ValueID
}

func NewCallStatic(id ValueID, target pool.Idx, args []ValueID, t Type) CallStatic {
	return CallStatic{base: base{id: id, typ: t, eff: EffectCallsOut}, Target: target, Args: args}
}

// Force forces a promise-typed operand.
type Force struct {
	base
	Value ValueID
}

func NewForce(id ValueID, v ValueID, t Type) Force {
	return Force{base: base{id: id, typ: t, eff: EffectForcesPromise}, Value: v}
}

// CastType narrows Value's static type to Type without changing its
// runtime representation (§4.6 "finalization inserts CastType at every
// point a value's proven type is more precise than its producer's
// declared type"). Neither the builder nor any optimizer pass in this
// module constructs one.
type CastType struct {
	base
	Value ValueID
}

func NewCastType(id ValueID, v ValueID, t Type) CastType {
	return CastType{base: base{id: id, typ: t, eff: None()}, Value: v}
}

// Checkpoint is a speculation guard: it asserts that Value matches Want,
// and on failure deopts (§4.7, component K, component H's speculative
// inlining). The lowerer (package lower) emits it inline as an OpIsObj
// guard followed by an OpDeopt carrying a DeoptMetadata, so only Value's
// non-object-ness is checked at runtime; FailBlock is recorded but the
// lowerer does not consult it. A Checkpoint that always succeeds in practice (per runtime
// feedback) is what lets the optimizer treat everything downstream of it
// as typed.
type Checkpoint struct {
	base
	Value     ValueID
	Want      Type
	FailBlock int
}

func NewCheckpoint(id ValueID, v ValueID, want Type, failBlock int) Checkpoint {
	return Checkpoint{base: base{id: id, typ: Void(), eff: EffectTriggerDeopt}, Value: v, Want: want, FailBlock: failBlock}
}

// Phi merges values coming from distinct predecessor blocks (§4.4 "phi
// regularity", P4: every predecessor of Phi's block supplies exactly one
// operand).
type Phi struct {
	base
	// Inputs maps predecessor block ID to the ValueID supplied along that
	// edge.
	Inputs map[int]ValueID
}

func NewPhi(id ValueID, t Type) Phi {
	return Phi{base: base{id: id, typ: t, eff: None()}, Inputs: map[int]ValueID{}}
}

// Branch is a two-way conditional terminator.
type Branch struct {
	base
	Cond            ValueID
	IfTrue, IfFalse int
}

func NewBranch(id ValueID, cond ValueID, ifTrue, ifFalse int) Branch {
	return Branch{base: base{id: id, typ: Void()}, Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Jmp is an unconditional terminator.
type Jmp struct {
	base
	Target int
}

func NewJmp(id ValueID, target int) Jmp {
	return Jmp{base: base{id: id, typ: Void()}, Target: target}
}

// Return is a terminator that exits the current ClosureVersion.
type Return struct {
	base
	Value ValueID
}

func NewReturn(id ValueID, v ValueID) Return {
	return Return{base: base{id: id, typ: Void()}, Value: v}
}

// CallSafeBuiltin calls a builtin known not to depend on or mutate the
// environment, because every argument's type has been proven non-object
// (§4.5 "Safe-builtin lifting: replace CallBuiltin with CallSafeBuiltin
// ... for a whitelist of builtins when argument types prove non-object").
// Unlike Generic's conservative effect set, a CallSafeBuiltin is pure: the
// optimizer may reorder or, if its result goes unused, eliminate it.
type CallSafeBuiltin struct {
	base
	OpName string
	Args   []ValueID
}

func NewCallSafeBuiltin(id ValueID, opName string, args []ValueID, t Type) CallSafeBuiltin {
	return CallSafeBuiltin{base: base{id: id, typ: t, eff: None()}, OpName: opName, Args: args}
}

// Generic is an opaque, conservatively-effectful instruction standing in
// for an RIR opcode this module does not model precisely at the SSA
// level (environment introspection, promise wrapping/forcing of values
// the builder has not proven safe to specialize). The optimizer treats it
// as a black box: it can read or write anything, so it is never reordered
// or eliminated. Modeling these opcodes exactly would mean replicating
// the host's environment semantics inside the type lattice, which is out
// of scope (see DESIGN.md).
type Generic struct {
	base
	OpName   string
	Operands []ValueID
}

func NewGeneric(id ValueID, opName string, operands []ValueID, t Type) Generic {
	return Generic{
		base:     base{id: id, typ: t, eff: EffectReadsEnv | EffectWritesEnv | EffectCallsOut | EffectLeaksEnv | EffectChangesContexts},
		OpName:   opName,
		Operands: operands,
	}
}

// IsTerminator reports whether ins ends a Block.
func IsTerminator(ins Instr) bool {
	switch ins.(type) {
	case Branch, Jmp, Return:
		return true
	default:
		return false
	}
}

// Operands returns every ValueID ins reads, for liveness and dead-code
// analysis. Terminators' block targets are not operands.
func Operands(ins Instr) []ValueID {
	switch x := ins.(type) {
	case StVar:
		return []ValueID{x.Value}
	case MkEnv:
		if x.Parent >= 0 {
			return []ValueID{x.Parent}
		}
		return nil
	case BinOp:
		return []ValueID{x.LHS, x.RHS}
	case CallDynamic:
		ops := append([]ValueID{x.Callee}, x.Args...)
		return ops
	case CallStatic:
		return append([]ValueID{}, x.Args...)
	case Force:
		return []ValueID{x.Value}
	case CastType:
		return []ValueID{x.Value}
	case Checkpoint:
		return []ValueID{x.Value}
	case Phi:
		out := make([]ValueID, 0, len(x.Inputs))
		for _, v := range x.Inputs {
			out = append(out, v)
		}
		return out
	case Branch:
		return []ValueID{x.Cond}
	case Return:
		return []ValueID{x.Value}
	case Generic:
		return x.Operands
	case CallSafeBuiltin:
		return append([]ValueID{}, x.Args...)
	default:
		return nil
	}
}

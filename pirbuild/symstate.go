package pirbuild

import (
	"fmt"

	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// symState is one Builder.Build invocation's symbolic-execution state: it
// walks code's instructions in offset order, maintaining an abstract
// operand stack of pir.ValueIDs per block and wiring phi inputs as
// control-flow edges are discovered (§4.4).
type symState struct {
	b    *Builder
	cv   *pir.ClosureVersion
	code *rir.Code

	boundaries []int
	offToIdx   map[int]int
	blocks     []*pir.Block

	predCount   map[int]int
	entryStack  map[int][]pir.ValueID
	phiInputsOf map[pir.ValueID]map[int]pir.ValueID
}

func newSymState(b *Builder, cv *pir.ClosureVersion, code *rir.Code) *symState {
	bounds := blockBoundaries(code)
	offToIdx := make(map[int]int, len(bounds))
	for i, o := range bounds {
		offToIdx[o] = i
	}
	return &symState{
		b: b, cv: cv, code: code,
		boundaries: bounds, offToIdx: offToIdx,
		predCount:   countPreds(code, bounds, offToIdx),
		entryStack:  map[int][]pir.ValueID{0: {}},
		phiInputsOf: map[pir.ValueID]map[int]pir.ValueID{},
	}
}

// countPreds statically counts the incoming-edge count of every block by
// scanning every terminator in the instruction stream (including the
// implicit fallthrough edge of a conditional branch), plus the implicit
// fallthrough edge out of any block whose own byte range ends without an
// explicit terminator instruction at all (RIR allows a block to simply run
// into the next one's start offset; see symState.run).
func countPreds(code *rir.Code, bounds []int, offToIdx map[int]int) map[int]int {
	instrs := code.Instrs()
	offs := code.Offsets()
	counts := map[int]int{}

	idxStart := make([]int, len(bounds)+1)
	bi := 0
	for i, off := range offs {
		for bi+1 < len(bounds) && off >= bounds[bi+1] {
			idxStart[bi+1] = i
			bi++
		}
	}
	idxStart[len(bounds)] = len(instrs)

	for bi := 0; bi < len(bounds); bi++ {
		lo, hi := idxStart[bi], idxStart[bi+1]
		terminated := false
		for i := lo; i < hi; i++ {
			ins := instrs[i]
			off := offs[i]
			var next int
			if i+1 < len(offs) {
				next = offs[i+1]
			} else {
				next = off + ins.Size()
			}
			switch ins.Op {
			case rir.OpBr:
				counts[offToIdx[next+int(ins.Imm[0])]]++
				terminated = true
			case rir.OpBrTrue, rir.OpBrFalse:
				counts[offToIdx[next+int(ins.Imm[0])]]++
				counts[offToIdx[next]]++
				terminated = true
			case rir.OpRet, rir.OpDeopt:
				terminated = true
			}
			if terminated {
				break
			}
		}
		if !terminated && bi+1 < len(bounds) {
			counts[bi+1]++
		}
	}
	return counts
}

func (s *symState) run() error {
	s.blocks = make([]*pir.Block, len(s.boundaries))
	s.blocks[0] = s.cv.Blocks[0]
	for i := 1; i < len(s.boundaries); i++ {
		s.blocks[i] = s.cv.NewBlock()
	}

	instrs := s.code.Instrs()
	offs := s.code.Offsets()

	// idxStart[bi] is the index into instrs/offs of block bi's first
	// instruction; blocks are contiguous in program order by construction
	// of blockBoundaries.
	idxStart := make([]int, len(s.boundaries)+1)
	bi := 0
	for i, off := range offs {
		for bi+1 < len(s.boundaries) && off >= s.boundaries[bi+1] {
			idxStart[bi+1] = i
			bi++
		}
	}
	idxStart[len(s.boundaries)] = len(instrs)

	for bi := 0; bi < len(s.boundaries); bi++ {
		stack := append([]pir.ValueID(nil), s.entryStack[bi]...)
		blk := s.blocks[bi]

		lo, hi := idxStart[bi], idxStart[bi+1]
		terminated := false
		for i := lo; i < hi; i++ {
			ins := instrs[i]
			var nextOff int
			if i+1 < len(offs) {
				nextOff = offs[i+1]
			} else {
				nextOff = offs[i] + ins.Size()
			}

			if ins.Op.IsTerminator() {
				if err := s.emitTerminator(blk, bi, ins, nextOff, &stack); err != nil {
					return err
				}
				terminated = true
				break
			}
			if err := s.emitOne(blk, ins, &stack); err != nil {
				return err
			}
		}

		// A block that reaches its boundary without its own branch or
		// return instruction simply falls through into the next block in
		// program order (the interpreter advances pc sequentially); PIR
		// blocks require an explicit terminator, so synthesize one.
		if !terminated && bi+1 < len(s.boundaries) {
			id := s.cv.NewValue()
			blk.Append(pir.NewJmp(id, bi+1))
			s.blocks[bi+1].AddPred(bi)
			s.contribute(bi+1, bi, stack)
		}
	}
	return nil
}

func (s *symState) push(stack *[]pir.ValueID, v pir.ValueID) { *stack = append(*stack, v) }

func (s *symState) pop(stack *[]pir.ValueID) pir.ValueID {
	st := *stack
	v := st[len(st)-1]
	*stack = st[:len(st)-1]
	return v
}

func (s *symState) top(stack []pir.ValueID) pir.ValueID { return stack[len(stack)-1] }

func (s *symState) emitOne(blk *pir.Block, ins rir.Instr, stack *[]pir.ValueID) error {
	switch ins.Op {
	case rir.OpPush:
		id := s.cv.NewValue()
		blk.Append(pir.NewConst(id, pool.Idx(ins.Imm[0]), pir.Top()))
		s.push(stack, id)
	case rir.OpPop:
		s.pop(stack)
	case rir.OpDup:
		s.push(stack, s.top(*stack))
	case rir.OpSwap:
		a, b := s.pop(stack), s.pop(stack)
		s.push(stack, a)
		s.push(stack, b)
	case rir.OpPick:
		st := *stack
		s.push(stack, st[len(st)-1-int(ins.Imm[0])])
	case rir.OpPut:
		v := s.pop(stack)
		st := *stack
		st[len(st)-int(ins.Imm[0])] = v
	case rir.OpPull:
		n := int(ins.Imm[0])
		st := *stack
		v := st[len(st)-1]
		copy(st[len(st)-n+1:], st[len(st)-n:len(st)-1])
		st[len(st)-n] = v
		*stack = st

	case rir.OpLdVar, rir.OpLdVarNoForce, rir.OpLdFun:
		id := s.cv.NewValue()
		blk.Append(pir.NewLdVar(id, pool.Idx(ins.Imm[0]), pir.Top()))
		s.push(stack, id)
	case rir.OpLdDDVar:
		sym := s.b.pool.InternConstant(fmt.Sprintf("..%d", ins.Imm[0]))
		id := s.cv.NewValue()
		blk.Append(pir.NewLdVar(id, sym, pir.Top()))
		s.push(stack, id)
	case rir.OpLdArg:
		id := s.cv.NewValue()
		blk.Append(pir.NewLdArg(id, int(ins.Imm[0]), pir.Top()))
		s.push(stack, id)
	case rir.OpStVar:
		id := s.cv.NewValue()
		blk.Append(pir.NewStVar(id, pool.Idx(ins.Imm[0]), s.top(*stack), false))
	case rir.OpStVarSuper:
		id := s.cv.NewValue()
		blk.Append(pir.NewStVar(id, pool.Idx(ins.Imm[0]), s.top(*stack), true))
	case rir.OpMissing:
		id := s.cv.NewValue()
		blk.Append(pir.NewConst(id, pool.Invalid, pir.Scalar(pir.FlagMissing)))
		s.push(stack, id)

	case rir.OpCall, rir.OpCallImplicit, rir.OpNamedCall, rir.OpNamedCallImplicit:
		nargs := int(ins.Imm[0])
		args := make([]pir.ValueID, nargs)
		for i := nargs - 1; i >= 0; i-- {
			args[i] = s.pop(stack)
		}
		callee := s.pop(stack)
		s.noteMonomorphicCandidate(int(ins.Imm[1]))
		id := s.cv.NewValue()
		blk.Append(pir.NewCallDynamic(id, callee, args, nil))
		s.push(stack, id)
	case rir.OpStaticCall:
		nargs := int(ins.Imm[1])
		args := make([]pir.ValueID, nargs)
		for i := nargs - 1; i >= 0; i-- {
			args[i] = s.pop(stack)
		}
		id := s.cv.NewValue()
		blk.Append(pir.NewCallStatic(id, pool.Idx(ins.Imm[0]), args, pir.Top()))
		s.push(stack, id)

	case rir.OpPromise:
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, "promise", nil, pir.Scalar(pir.FlagPromise)))
		s.push(stack, id)
	case rir.OpForce:
		v := s.pop(stack)
		id := s.cv.NewValue()
		blk.Append(pir.NewForce(id, v, pir.Top()))
		s.push(stack, id)

	case rir.OpAdd, rir.OpSub, rir.OpMul, rir.OpDiv, rir.OpMod, rir.OpIDiv,
		rir.OpEq, rir.OpNe, rir.OpLt, rir.OpLe, rir.OpGt, rir.OpGe:
		b, a := s.pop(stack), s.pop(stack)
		resultType := pir.Top()
		if s.typeFeedbackNeverObject(int(ins.Imm[0])) {
			nonObject := pir.Scalar(pir.FlagScalarInt | pir.FlagScalarReal | pir.FlagScalarLogical)
			s.guardNonObject(blk, a, nonObject)
			s.guardNonObject(blk, b, nonObject)
			resultType = nonObject
		}
		id := s.cv.NewValue()
		blk.Append(pir.NewBinOp(id, binopName(ins.Op), a, b, resultType))
		s.push(stack, id)
	case rir.OpBinopFallback:
		b, a := s.pop(stack), s.pop(stack)
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, fallbackOpName(ins.Imm[0]), []pir.ValueID{a, b}, pir.Top()))
		s.push(stack, id)

	case rir.OpRecordCall, rir.OpRecordBinop:
		// feedback bookkeeping only; already embedded in the Code object.

	case rir.OpMakeEnv:
		id := s.cv.NewValue()
		blk.Append(pir.NewMkEnv(id, -1))
		s.push(stack, id)
	case rir.OpGetEnv, rir.OpParentEnv, rir.OpSetEnv:
		var ops []pir.ValueID
		if ins.Op != rir.OpGetEnv {
			ops = []pir.ValueID{s.pop(stack)}
		}
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, ins.Op.String(), ops, pir.Top()))
		if ins.Op != rir.OpSetEnv {
			s.push(stack, id)
		}

	case rir.OpIsObj, rir.OpCheckMissing:
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, ins.Op.String(), []pir.ValueID{s.top(*stack)}, pir.Scalar(pir.FlagScalarLogical)))
		s.push(stack, id)
	case rir.OpIdentical:
		b, a := s.pop(stack), s.pop(stack)
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, "identical", []pir.ValueID{a, b}, pir.Scalar(pir.FlagScalarLogical)))
		s.push(stack, id)
	case rir.OpIs:
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, "is", []pir.ValueID{s.top(*stack)}, pir.Scalar(pir.FlagScalarLogical)))
		s.push(stack, id)

	case rir.OpBeginLoop, rir.OpEndContext:
		id := s.cv.NewValue()
		blk.Append(pir.NewGeneric(id, ins.Op.String(), nil, pir.Void()))

	case rir.OpMovLoc, rir.OpStLoc, rir.OpLdLoc:
		return fmt.Errorf("pirbuild: register-transfer opcode %s in builder input (only valid in lowered RIR)", ins.Op)

	default:
		return fmt.Errorf("pirbuild: unhandled opcode %s", ins.Op)
	}
	return nil
}

// fallbackOpName recovers the operator name erased by RIR's
// binop_fallback_ immediate index, so the builder can still give the
// optimizer's safe-builtin-lifting pass (§4.5) an operator to whitelist
// against instead of an opaque "fallback" tag.
func fallbackOpName(imm int32) string {
	names := []string{"add", "sub", "mul", "div", "mod", "idiv", "eq", "ne", "lt", "le", "gt", "ge"}
	if int(imm) < len(names) {
		return names[imm]
	}
	return "binop_fallback"
}

func binopName(op rir.Op) string {
	switch op {
	case rir.OpAdd:
		return "add"
	case rir.OpSub:
		return "sub"
	case rir.OpMul:
		return "mul"
	case rir.OpDiv:
		return "div"
	case rir.OpMod:
		return "mod"
	case rir.OpIDiv:
		return "idiv"
	case rir.OpEq:
		return "eq"
	case rir.OpNe:
		return "ne"
	case rir.OpLt:
		return "lt"
	case rir.OpLe:
		return "le"
	case rir.OpGt:
		return "gt"
	case rir.OpGe:
		return "ge"
	default:
		return ""
	}
}

func (s *symState) emitTerminator(blk *pir.Block, bi int, ins rir.Instr, nextOff int, stack *[]pir.ValueID) error {
	switch ins.Op {
	case rir.OpBr:
		target := s.offToIdx[nextOff+int(ins.Imm[0])]
		id := s.cv.NewValue()
		blk.Append(pir.NewJmp(id, target))
		s.blocks[target].AddPred(bi)
		s.contribute(target, bi, *stack)
	case rir.OpBrTrue, rir.OpBrFalse:
		cond := s.pop(stack)
		target := s.offToIdx[nextOff+int(ins.Imm[0])]
		fallthroughBlock := s.offToIdx[nextOff]
		ifTrue, ifFalse := target, fallthroughBlock
		if ins.Op == rir.OpBrFalse {
			ifTrue, ifFalse = fallthroughBlock, target
		}
		id := s.cv.NewValue()
		blk.Append(pir.NewBranch(id, cond, ifTrue, ifFalse))
		s.blocks[ifTrue].AddPred(bi)
		s.blocks[ifFalse].AddPred(bi)
		s.contribute(ifTrue, bi, *stack)
		s.contribute(ifFalse, bi, *stack)
	case rir.OpRet:
		v := s.pop(stack)
		id := s.cv.NewValue()
		blk.Append(pir.NewReturn(id, v))
	case rir.OpDeopt:
		return fmt.Errorf("pirbuild: OpDeopt in builder input (only valid in lowered RIR)")
	default:
		return fmt.Errorf("pirbuild: unexpected terminator opcode %s", ins.Op)
	}
	return nil
}

// typeFeedbackNeverObject reports whether the type-feedback slot a binop
// site recorded into has, across every observation so far, never seen an
// object-carrying operand (§4.4 "when type feedback indicates both
// operands were observed non-object ... insert a speculative IsObject
// check"). One slot covers both operands of the site (package feedback's
// TypeObservation already ORs them together at observation time).
func (s *symState) typeFeedbackNeverObject(slot int) bool {
	fb := s.code.Feedback()
	if slot < 0 || slot >= fb.NumTypes() {
		return false
	}
	return fb.Type(slot).NeverObject()
}

// guardNonObject inserts a Checkpoint asserting v is not object-carrying.
// History (the feedback slot that triggered this) is not proof for the
// current call, so the guard re-checks the live value; a violation deopts
// back to baseline (component K) instead of trusting the speculation.
func (s *symState) guardNonObject(blk *pir.Block, v pir.ValueID, want pir.Type) {
	id := s.cv.NewValue()
	blk.Append(pir.NewCheckpoint(id, v, want, blk.ID()))
}

// noteMonomorphicCandidate records a call site whose feedback slot shows
// exactly one observed callee the identity registry can still resolve to
// a Table: a candidate for the speculative StaticCall §4.4 describes
// ("If record_call_ feedback observed exactly one callee ... emits a
// StaticCall"). This builder does not emit one yet — doing so soundly
// needs a callee-identity guard analogous to Checkpoint's type guard,
// which this instruction set does not have (see DESIGN.md) — so the
// candidate is only recorded for Builder.PendingSpecializations, not
// acted on.
func (s *symState) noteMonomorphicCandidate(slot int) {
	if s.b.registry == nil {
		return
	}
	fb := s.code.Feedback()
	if slot < 0 || slot >= fb.NumCalls() {
		return
	}
	calleeID, ok := fb.Call(slot).Monomorphic()
	if !ok {
		return
	}
	if _, ok := s.b.registry.Lookup(calleeID); ok {
		s.b.pending = append(s.b.pending, calleeID)
	}
}

// contribute records stack as the operand values flowing into target
// along the edge from "from", creating phis the first time target is
// found to have more than one predecessor (§4.4 "phi insertion").
func (s *symState) contribute(target, from int, stack []pir.ValueID) {
	if s.predCount[target] <= 1 {
		cp := append([]pir.ValueID(nil), stack...)
		s.entryStack[target] = cp
		return
	}

	if existing, ok := s.entryStack[target]; ok {
		for depth, v := range stack {
			id := existing[depth]
			s.phiInputsOf[id][from] = v
		}
		return
	}

	blk := s.blocks[target]
	phis := make([]pir.ValueID, len(stack))
	for depth, v := range stack {
		id := s.cv.NewValue()
		p := pir.NewPhi(id, pir.Top())
		p.Inputs[from] = v
		s.phiInputsOf[id] = p.Inputs
		blk.Append(p)
		phis[depth] = id
	}
	s.entryStack[target] = phis
}

// Package optimize implements the PIR optimizer (§4.5, component I): the
// minimal required pass set (constant propagation, type refinement,
// dead-instruction elimination, safe-builtin lifting, scope escape
// analysis) expressed against the generic dataflow framework in package
// analysis, plus a verifier that re-checks §3's invariants after every
// pass in debug builds.
package optimize

import (
	"github.com/scottcarroll/rir/analysis"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
)

// constState is the per-program-point dataflow fact for constant
// propagation: the lattice value of every SSA value proven constant (or
// merged to top) on every path reaching this point.
type constState map[pir.ValueID]constVal

func (s constState) Clone() constState {
	out := make(constState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s constState) MergeWith(other constState) bool {
	changed := false
	for k, v := range other {
		cur, ok := s[k]
		if !ok {
			s[k] = v
			changed = true
			continue
		}
		merged := cur.join(v)
		if merged != cur {
			s[k] = merged
			changed = true
		}
	}
	return changed
}

func blockList(cv *pir.ClosureVersion) []analysis.Block[pir.Instr] {
	out := make([]analysis.Block[pir.Instr], len(cv.Blocks))
	for i, b := range cv.Blocks {
		out[i] = b
	}
	return out
}

func predsOf(cv *pir.ClosureVersion) map[int][]int {
	out := make(map[int][]int, len(cv.Blocks))
	for _, b := range cv.Blocks {
		out[b.ID()] = append([]int(nil), b.Preds()...)
	}
	return out
}

// ConstProp runs forward constant propagation to a fixpoint, then rewrites
// every instruction proven to produce a single constant value into a Const
// (§4.5 "Constant propagation ... forward fixpoint; on reaching top,
// further merges stay at top").
func ConstProp(cv *pir.ClosureVersion) error {
	driver := analysis.ForwardFixpointDriver[pir.Instr, constState]{
		Bottom: func() constState { return constState{} },
		Transfer: func(entry constState, blk analysis.Block[pir.Instr]) (constState, error) {
			s := entry.Clone()
			for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
				transferInstr(s, cur.Get())
			}
			return s, nil
		},
	}
	_, exit, err := driver.Run(blockList(cv), cv.Entry, predsOf(cv))
	if err != nil {
		return err
	}

	// Fold the per-block exit facts back into a single whole-CV view: a
	// value's producer runs in exactly one block, so its exit-state entry
	// there is authoritative regardless of which block we read it from.
	global := constState{}
	for _, s := range exit {
		for k, v := range s {
			cur, ok := global[k]
			if !ok {
				global[k] = v
				continue
			}
			global[k] = cur.join(v)
		}
	}

	for _, blk := range cv.Blocks {
		rewriteConstants(blk, global)
	}
	return nil
}

func transferInstr(s constState, ins pir.Instr) {
	switch x := ins.(type) {
	case pir.Const:
		s[x.ID()] = knownVal(x.Value)
	case pir.Phi:
		v := bottomVal()
		for _, in := range x.Inputs {
			if cv, ok := s[in]; ok {
				v = v.join(cv)
			} else {
				v = topVal()
			}
		}
		s[x.ID()] = v
	case pir.CastType:
		if cv, ok := s[x.Value]; ok {
			s[x.ID()] = cv
		} else {
			s[x.ID()] = topVal()
		}
	default:
		if _, alreadyKnown := s[ins.ID()]; !alreadyKnown {
			s[ins.ID()] = topVal()
		}
	}
}

func rewriteConstants(blk *pir.Block, global constState) {
	type replacement struct {
		cur pir.Instr
		idx pool.Idx
	}
	var repls []replacement
	for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		ins := cur.Get()
		if _, isConst := ins.(pir.Const); isConst {
			continue
		}
		if pir.IsTerminator(ins) {
			continue
		}
		v, ok := global[ins.ID()]
		if !ok || v.kind != constKnown {
			continue
		}
		repls = append(repls, replacement{cur: ins, idx: v.idx})
	}
	for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		ins := cur.Get()
		for _, r := range repls {
			if r.cur.ID() == ins.ID() {
				cur.Set(pir.NewConst(ins.ID(), r.idx, ins.ResultType()))
				break
			}
		}
	}
}

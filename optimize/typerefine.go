package optimize

import (
	"github.com/scottcarroll/rir/analysis"
	"github.com/scottcarroll/rir/pir"
)

// typeState is the per-program-point refined-type fact: the best type
// proven for every SSA value reaching this point. Values absent from the
// map are still at pir.Void() (bottom); the driver's Bottom() returns an
// empty state rather than one seeded with Top() for every value, since
// most values are locally defined and never need a cross-block entry.
type typeState map[pir.ValueID]pir.Type

func (s typeState) Clone() typeState {
	out := make(typeState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s typeState) MergeWith(other typeState) bool {
	changed := false
	for k, v := range other {
		cur, ok := s[k]
		if !ok {
			s[k] = v
			changed = true
			continue
		}
		joined := cur.Join(v)
		if joined != cur {
			s[k] = joined
			changed = true
		}
	}
	return changed
}

// RefineTypes narrows every SSA value's static type using dominating
// Checkpoint guards and phi-input joins (§4.5 "Type refinement using
// recorded typeFeedback: after dominating speculative checks, narrow the
// result type of downstream uses"). It returns the refined type of every
// value in cv, for the later passes (safe-builtin lifting, escape
// analysis) to consult; it does not mutate cv itself, since narrowing a
// producer's declared type in place would violate the finalization
// invariant that CastType is the only node allowed to narrow a value
// (§4.4 "Finalization ... Insert CastType nodes where a successor expects
// a stricter type than the producer guarantees").
func RefineTypes(cv *pir.ClosureVersion) map[pir.ValueID]pir.Type {
	driver := analysis.ForwardFixpointDriver[pir.Instr, typeState]{
		Bottom: func() typeState { return typeState{} },
		Transfer: func(entry typeState, blk analysis.Block[pir.Instr]) (typeState, error) {
			s := entry.Clone()
			for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
				refineInstr(s, cur.Get())
			}
			return s, nil
		},
	}
	_, exit, err := driver.Run(blockList(cv), cv.Entry, predsOf(cv))
	if err != nil {
		return map[pir.ValueID]pir.Type{}
	}

	global := map[pir.ValueID]pir.Type{}
	for _, s := range exit {
		for k, t := range s {
			if cur, ok := global[k]; ok {
				global[k] = cur.Join(t)
			} else {
				global[k] = t
			}
		}
	}
	return global
}

func refineInstr(s typeState, ins pir.Instr) {
	switch x := ins.(type) {
	case pir.Checkpoint:
		if cur, ok := s[x.Value]; ok {
			s[x.Value] = cur.Meet(x.Want)
			if s[x.Value].IsVoid() {
				s[x.Value] = x.Want // guard proven live: trust the checked type
			}
		} else {
			s[x.Value] = x.Want
		}
	case pir.Phi:
		t := pir.Void()
		for _, in := range x.Inputs {
			if it, ok := s[in]; ok {
				t = t.Join(it)
			} else {
				t = pir.Top()
			}
		}
		s[x.ID()] = t
	case pir.CastType:
		s[x.ID()] = ins.ResultType()
	default:
		if _, ok := s[ins.ID()]; !ok {
			s[ins.ID()] = ins.ResultType()
		}
	}
}

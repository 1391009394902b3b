package optimize

import "github.com/scottcarroll/rir/pir"

// DeadCodeElim removes every pure instruction whose value no live
// instruction consumes (§4.5 "Dead-instruction elimination for pure
// (effect-free) instructions with no uses"). Liveness is seeded from
// terminator operands and every impure instruction (which is always kept
// for its effect, whether or not its result is used), then propagated
// backward through Operands.
func DeadCodeElim(cv *pir.ClosureVersion) {
	byID := map[pir.ValueID]pir.Instr{}
	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
			ins := cur.Get()
			byID[ins.ID()] = ins
		}
	}

	live := map[pir.ValueID]bool{}
	var worklist []pir.ValueID
	markLive := func(id pir.ValueID) {
		if !live[id] {
			live[id] = true
			worklist = append(worklist, id)
		}
	}

	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
			ins := cur.Get()
			if pir.IsTerminator(ins) || !ins.Effects().IsPure() {
				markLive(ins.ID())
			}
		}
	}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		ins, ok := byID[id]
		if !ok {
			continue
		}
		for _, op := range pir.Operands(ins) {
			markLive(op)
		}
	}

	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); {
			next := cur.Next()
			ins := cur.Get()
			if !pir.IsTerminator(ins) && ins.Effects().IsPure() && !live[ins.ID()] {
				blk.Instrs().Remove(cur)
			}
			cur = next
		}
	}
}

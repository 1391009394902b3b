package optimize

import (
	"fmt"

	"github.com/scottcarroll/rir/pir"
)

// ErrVerifyFailed reports one broken invariant from §3 ("Invariants
// (i)-(v)"), found by Verify. The optimizer pipeline logs these and aborts
// the compilation rather than returning them to the caller (§7's
// no-user-visible-error policy for compile-time failures) — Verify itself
// just reports them as a typed error for the pipeline to decide what to
// do with.
type ErrVerifyFailed struct {
	Block  int
	Detail string
}

func (e ErrVerifyFailed) Error() string {
	return fmt.Sprintf("optimize: verify failed in block %d: %s", e.Block, e.Detail)
}

// Verify re-checks these of §3's invariants after a pass runs (run after
// each pass in debug builds, per §4.5 "Verifier. Runs after each pass in
// debug builds; asserts §3's invariants"):
//   - every block ends with exactly one terminator (invariant iii)
//   - every Phi carries exactly one input per predecessor (invariant ii)
//   - no void-typed instruction is consumed by another instruction in the
//     same block (invariant v)
//
// It does not check that every input dominates its use (invariant i), nor
// effect conservatism.
func Verify(cv *pir.ClosureVersion) error {
	for _, blk := range cv.Blocks {
		if err := verifyTerminator(blk); err != nil {
			return err
		}
		if err := verifyPhis(blk); err != nil {
			return err
		}
		if err := verifyVoidNotConsumed(blk); err != nil {
			return err
		}
	}
	return nil
}

func verifyTerminator(blk *pir.Block) error {
	n := 0
	for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		if pir.IsTerminator(cur.Get()) {
			n++
		}
	}
	if n != 1 {
		return ErrVerifyFailed{Block: blk.ID(), Detail: fmt.Sprintf("expected exactly one terminator, found %d", n)}
	}
	last, ok := blk.Terminator()
	if !ok || !pir.IsTerminator(last) {
		return ErrVerifyFailed{Block: blk.ID(), Detail: "terminator is not the last instruction"}
	}
	return nil
}

func verifyPhis(blk *pir.Block) error {
	wantPreds := make(map[int]bool, len(blk.Preds()))
	for _, p := range blk.Preds() {
		wantPreds[p] = true
	}
	for _, phi := range blk.Phis() {
		if len(phi.Inputs) != len(wantPreds) {
			return ErrVerifyFailed{
				Block:  blk.ID(),
				Detail: fmt.Sprintf("phi %d has %d inputs, block has %d predecessors", phi.ID(), len(phi.Inputs), len(wantPreds)),
			}
		}
		for p := range phi.Inputs {
			if !wantPreds[p] {
				return ErrVerifyFailed{Block: blk.ID(), Detail: fmt.Sprintf("phi %d has input from non-predecessor block %d", phi.ID(), p)}
			}
		}
	}
	return nil
}

func verifyVoidNotConsumed(blk *pir.Block) error {
	defined := map[pir.ValueID]pir.Instr{}
	for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		ins := cur.Get()
		defined[ins.ID()] = ins
	}
	for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		for _, op := range pir.Operands(cur.Get()) {
			if producer, ok := defined[op]; ok && producer.ResultType().IsVoid() {
				return ErrVerifyFailed{Block: blk.ID(), Detail: fmt.Sprintf("value %d is void-typed but consumed", op)}
			}
		}
	}
	return nil
}

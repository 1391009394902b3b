package lower

import "github.com/scottcarroll/rir/pir"

// regFile is a trivial register allocator: every SSA value that ever
// produces a non-void result gets its own local slot, assigned the first
// time it is seen in block order. This never reuses a slot once a value's
// last use has passed, so it is not a tight allocation (§4.6 "A register
// allocator assigns PIR values to local slots or to stack positions" —
// the slot-reuse / stack-position half of that sentence is future work;
// see DESIGN.md), but it is always correct: every value's slot lives for
// the whole ClosureVersion, so stale reads are impossible.
type regFile struct {
	slot map[pir.ValueID]int
	next int
}

func newRegFile() *regFile { return &regFile{slot: map[pir.ValueID]int{}} }

// slotOf returns id's local slot, allocating one on first use.
func (r *regFile) slotOf(id pir.ValueID) int {
	if s, ok := r.slot[id]; ok {
		return s
	}
	s := r.next
	r.next++
	r.slot[id] = s
	return s
}

func (r *regFile) count() int { return r.next }

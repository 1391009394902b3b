// Package feedback implements the inline runtime feedback slots embedded
// in RIR code objects (§3 "Inline feedback", component C): a bounded ring
// of observed callee identities per call site, and a per-position observed
// type bitset for binary operators. Both grow monotonically (§8 P6) — the
// interpreter only ever adds observations, never resets them while a
// version is live.
package feedback

import "github.com/scottcarroll/rir/internal/ringbuf"

// CalleeID identifies an observed call target. The interpreter supplies a
// stable identity for the host's closure/builtin objects; this package
// treats it as an opaque comparable value.
type CalleeID = uintptr

// CallRingSize (K in §3) bounds how many distinct callees a call-feedback
// slot remembers before it starts reporting Overflow.
const CallRingSize = 4

// CallSlot is one call-feedback slot: a small ring of observed callee
// identities plus an overflow flag, embedded at a call site.
type CallSlot struct {
	seen     map[CalleeID]struct{}
	ring     ringbuf.RingBuf[CalleeID]
	overflow bool
}

// NewCallSlot returns an empty call-feedback slot.
func NewCallSlot() *CallSlot {
	return &CallSlot{seen: make(map[CalleeID]struct{}), ring: ringbuf.New[CalleeID](CallRingSize)}
}

// Record observes a callee at this call site. Idempotent: recording the
// same callee twice does not grow the ring further.
func (s *CallSlot) Record(id CalleeID) {
	if _, ok := s.seen[id]; ok {
		return
	}
	if s.ring.Len() == s.ring.MaxLen() {
		s.overflow = true
		return
	}
	s.seen[id] = struct{}{}
	s.ring.PushBack(id)
}

// Observed returns every distinct callee identity recorded so far, in
// observation order.
func (s *CallSlot) Observed() []CalleeID {
	out := make([]CalleeID, s.ring.Len())
	for i := range out {
		out[i] = s.ring.At(i)
	}
	return out
}

// Monomorphic reports whether exactly one callee has ever been observed at
// this slot and the ring never overflowed — the precondition for the
// speculative monomorphic inlining in §4.4.
func (s *CallSlot) Monomorphic() (CalleeID, bool) {
	if s.overflow || s.ring.Len() != 1 {
		return 0, false
	}
	return s.ring.At(0), true
}

// Overflow reports whether more than CallRingSize distinct callees have
// been observed.
func (s *CallSlot) Overflow() bool { return s.overflow }

// TypeObservation is the per-position observed-type bitset described in
// §3 ("scalar/vector, object-flag, NA-seen, attributes-seen").
type TypeObservation struct {
	Scalar    bool
	Vector    bool
	Object    bool
	NASeen    bool
	AttrsSeen bool
}

// merge ORs two observations together; used to fold a new observation into
// the running bitset without ever clearing a bit (P6).
func (o TypeObservation) merge(n TypeObservation) TypeObservation {
	return TypeObservation{
		Scalar:    o.Scalar || n.Scalar,
		Vector:    o.Vector || n.Vector,
		Object:    o.Object || n.Object,
		NASeen:    o.NASeen || n.NASeen,
		AttrsSeen: o.AttrsSeen || n.AttrsSeen,
	}
}

// TypeSlot is one type-feedback slot: the observed-type bitset for one
// monitored operand position, plus an overall observation counter.
type TypeSlot struct {
	obs   TypeObservation
	count uint32
}

// NewTypeSlot returns an empty type-feedback slot.
func NewTypeSlot() *TypeSlot { return &TypeSlot{} }

// Observe folds a new observation into the slot. Monotone: bits already
// set stay set.
func (s *TypeSlot) Observe(o TypeObservation) {
	s.obs = s.obs.merge(o)
	s.count++
}

// Bitset returns the accumulated observation.
func (s *TypeSlot) Bitset() TypeObservation { return s.obs }

// Count returns how many times this slot has been observed.
func (s *TypeSlot) Count() uint32 { return s.count }

// NeverObject reports whether the slot has at least one observation and
// none of them was an object (attribute-carrying values without the object
// bit, recorded in AttrsSeen, do not count) — the precondition the PIR builder (§4.4) uses to elide an
// environment-carrying binop in favor of a speculative fast path.
func (s *TypeSlot) NeverObject() bool {
	return s.count > 0 && !s.obs.Object
}

// Block is the full set of feedback slots embedded in one Code object:
// one CallSlot per call site, one TypeSlot per monitored operand position.
// Slots are addressed by the immediate index recorded alongside the
// OpRecordCall/OpRecordBinop instruction that updates them (package rir).
type Block struct {
	calls []*CallSlot
	types []*TypeSlot
}

// NewBlock allocates a feedback Block with nCalls call-feedback slots and
// nTypes type-feedback slots, all initially empty.
func NewBlock(nCalls, nTypes int) *Block {
	b := &Block{calls: make([]*CallSlot, nCalls), types: make([]*TypeSlot, nTypes)}
	for i := range b.calls {
		b.calls[i] = NewCallSlot()
	}
	for i := range b.types {
		b.types[i] = NewTypeSlot()
	}
	return b
}

// Call returns the call-feedback slot at index i.
func (b *Block) Call(i int) *CallSlot { return b.calls[i] }

// Type returns the type-feedback slot at index i.
func (b *Block) Type(i int) *TypeSlot { return b.types[i] }

// NumCalls returns the number of call-feedback slots.
func (b *Block) NumCalls() int { return len(b.calls) }

// NumTypes returns the number of type-feedback slots.
func (b *Block) NumTypes() int { return len(b.types) }

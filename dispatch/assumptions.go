// Package dispatch implements the dispatch table and assumption lattice
// (§4.2, component D): the Function value type, the per-closure ordered
// vector of compiled versions, and the partial order callers use to pick a
// viable specialization.
package dispatch

// ArgType is the observed-type bitset recorded per argument position in an
// OptimizationContext (§3 "Assumptions / OptimizationContext").
type ArgType uint8

const (
	ArgTypeNone ArgType = iota
	ArgTypeScalarInt
	ArgTypeScalarReal
	ArgTypeScalarLogical
	ArgTypeNotObject
	ArgTypeEager
)

// le reports whether a's predicate is implied by b's (a <= b), per
// position: ArgTypeNone is the weakest assumption and is implied by
// everything; any other value only implies itself, since the bitset
// values here are mutually exclusive observations rather than a
// refinement chain.
func (a ArgType) le(b ArgType) bool {
	if a == ArgTypeNone {
		return true
	}
	return a == b
}

// Assumptions is the finite set of boolean/observed-type predicates a
// caller promises at a call site (§3 "Assumptions / OptimizationContext").
// It forms a partial order: A.LE(B) holds iff B's predicates imply A's.
type Assumptions struct {
	CorrectOrder      bool
	NoExplicitMissing bool
	NoReflective      bool
	// MaxArgs bounds argument count from above; -1 means unconstrained.
	MaxArgs int
	// MinArgs bounds argument count from below; 0 means unconstrained.
	MinArgs int
	// ArgTypes is the observed-type bitset per argument position. A
	// shorter slice is treated as ArgTypeNone for the missing positions.
	ArgTypes []ArgType
}

// Baseline is the weakest context: no assumptions hold, so it is implied
// by (LE) every other context and is always viable.
func Baseline() Assumptions {
	return Assumptions{MaxArgs: -1, MinArgs: 0}
}

func boolLE(a, b bool) bool {
	// a <= b iff b implies a: the only way a boolean predicate fails to
	// be implied is if a demands true and b supplies false.
	return !a || b
}

// LE reports whether a <= b: every predicate a asserts is implied by b.
func (a Assumptions) LE(b Assumptions) bool {
	if !boolLE(a.CorrectOrder, b.CorrectOrder) ||
		!boolLE(a.NoExplicitMissing, b.NoExplicitMissing) ||
		!boolLE(a.NoReflective, b.NoReflective) {
		return false
	}
	// "at most N args": a's bound must be >= b's bound (b is at least as
	// strict), unless a is unconstrained.
	if a.MaxArgs >= 0 {
		if b.MaxArgs < 0 || b.MaxArgs > a.MaxArgs {
			return false
		}
	}
	// "at least N args": b's bound must be >= a's.
	if b.MinArgs < a.MinArgs {
		return false
	}
	n := len(a.ArgTypes)
	if len(b.ArgTypes) > n {
		n = len(b.ArgTypes)
	}
	for i := 0; i < n; i++ {
		if !argAt(a.ArgTypes, i).le(argAt(b.ArgTypes, i)) {
			return false
		}
	}
	return true
}

func argAt(ts []ArgType, i int) ArgType {
	if i >= len(ts) {
		return ArgTypeNone
	}
	return ts[i]
}

// Equal reports whether a and b are the same point in the lattice.
func (a Assumptions) Equal(b Assumptions) bool {
	return a.LE(b) && b.LE(a)
}

// Comparable reports whether a and b are ordered in either direction.
func (a Assumptions) Comparable(b Assumptions) bool {
	return a.LE(b) || b.LE(a)
}

// StrictlyWeakerThan reports whether a < b: b implies a, and a does not
// imply b. Used by Table.Install to order slots by increasing strictness.
func (a Assumptions) StrictlyWeakerThan(b Assumptions) bool {
	return a.LE(b) && !b.LE(a)
}

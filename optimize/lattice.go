package optimize

import "github.com/scottcarroll/rir/pool"

// constKind is one point in the three-level constant-propagation lattice
// (§4.5 "abstract lattice {bottom, concrete-constant, top}").
type constKind uint8

const (
	constBottom constKind = iota // not yet observed on any path
	constKnown                   // exactly one constant value on every path so far
	constTop                     // two conflicting values, or a non-constant producer
)

type constVal struct {
	kind constKind
	idx  pool.Idx
}

func bottomVal() constVal { return constVal{kind: constBottom} }
func topVal() constVal    { return constVal{kind: constTop} }
func knownVal(idx pool.Idx) constVal {
	return constVal{kind: constKnown, idx: idx}
}

// join merges two lattice points along a control-flow merge: bottom is the
// identity, two different knowns collapse to top, top is absorbing.
func (v constVal) join(o constVal) constVal {
	switch {
	case v.kind == constBottom:
		return o
	case o.kind == constBottom:
		return v
	case v.kind == constTop || o.kind == constTop:
		return topVal()
	case v.idx != o.idx:
		return topVal()
	default:
		return v
	}
}

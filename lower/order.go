// Package lower implements the PIR->RIR lowerer (§4.6, component J):
// reverse-post-order linearization of a ClosureVersion's basic blocks into
// a new bytecode stream, a trivial register allocator assigning one local
// slot per SSA value, phi resolution via predecessor-side copies, and
// DeoptMetadata emission for every Checkpoint.
package lower

import (
	"go.brendoncarroll.net/exp/slices2"
	"golang.org/x/exp/slices"

	"github.com/scottcarroll/rir/pir"
)

// reversePostOrder returns cv's blocks ordered so that, as much as a CFG
// with back-edges allows, every block appears after its predecessors —
// the traversal order §4.6 specifies ("a reverse-post-order traversal of
// BBs").
func reversePostOrder(cv *pir.ClosureVersion) []*pir.Block {
	byID := make(map[int]*pir.Block, len(cv.Blocks))
	for _, b := range cv.Blocks {
		byID[b.ID()] = b
	}

	var postorder []*pir.Block
	visited := map[int]bool{}
	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		b, ok := byID[id]
		if !ok {
			return
		}
		for _, succ := range b.Successors() {
			visit(succ)
		}
		postorder = append(postorder, b)
	}
	visit(cv.Entry)
	slices.Reverse(postorder)

	// blocks unreachable from Entry (shouldn't occur in well-formed PIR,
	// but the lowerer must still emit something for them rather than
	// silently dropping code) are appended afterward, in their original
	// order.
	unreached := slices2.Filter(cv.Blocks, func(b *pir.Block) bool { return !visited[b.ID()] })
	for _, b := range unreached {
		visited[b.ID()] = true
		postorder = append(postorder, b)
	}

	return postorder
}

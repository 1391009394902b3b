// Package pirbuild implements the RIR->PIR builder (§4.4, component H):
// symbolic execution of one Code object's bytecode into SSA form, phi
// insertion at control-flow merges, a speculative non-object guard over
// binary operators driven by runtime type-feedback (§4.4's
// NeverObject -> Checkpoint -> narrowed BinOp chain), and an identity
// registry lookup that flags monomorphic call sites as candidates for
// speculative StaticCall inlining without yet emitting one — see
// Builder.PendingSpecializations and DESIGN.md for why that last step
// isn't wired in yet, and MaxInlineDepth/Cache below for the bounded
// recursion such inlining will need once it is.
package pirbuild

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/feedback"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// MaxInlineDepth bounds how many nested speculative inlines one Build call
// will perform along a single call chain, independent of the LRU cache
// below: a monomorphic call site whose callee keeps calling itself
// monomorphically must still terminate (§4.4 "bounded recursion").
const MaxInlineDepth = 4

// Cache memoizes already-built ClosureVersions by (callee identity,
// Assumptions) so that inlining the same hot callee at several call sites
// builds it once. It is deliberately a bounded LRU, not an unbounded map:
// an adversarial program with many distinct monomorphic call sites to
// many distinct callees must not grow this without bound.
type Cache struct {
	inner *lru.Cache[string, *pir.ClosureVersion]
}

type cacheKey struct {
	callee feedback.CalleeID
	ctx    dispatch.Assumptions
}

// key renders a cacheKey into a comparable form suitable for use as an
// LRU map key: Assumptions.ArgTypes is a slice, so cacheKey itself is not
// comparable and cannot be used directly as a generic map key type.
func (k cacheKey) key() string {
	return fmt.Sprintf("%+v", k)
}

// NewCache returns a Cache holding at most size entries.
func NewCache(size int) *Cache {
	c, err := lru.New[string, *pir.ClosureVersion](size)
	if err != nil {
		panic(err) // size <= 0, a programmer error
	}
	return &Cache{inner: c}
}

func (c *Cache) get(callee feedback.CalleeID, ctx dispatch.Assumptions) (*pir.ClosureVersion, bool) {
	return c.inner.Get(cacheKey{callee: callee, ctx: ctx}.key())
}

func (c *Cache) put(callee feedback.CalleeID, ctx dispatch.Assumptions, cv *pir.ClosureVersion) {
	c.inner.Add(cacheKey{callee: callee, ctx: ctx}.key(), cv)
}

// Builder holds the state for one Build invocation (and any nested
// speculative inlines it triggers).
type Builder struct {
	pool     *pool.Pool
	cache    *Cache
	registry *dispatch.Registry
	depth    int

	pending []feedback.CalleeID
}

// NewBuilder returns a Builder sharing cache across every closure version
// it builds, including ones produced by speculative inlining. registry
// resolves an observed callee identity back to the Table it came from;
// it may be nil, in which case call sites are never checked against it.
func NewBuilder(pl *pool.Pool, cache *Cache, registry *dispatch.Registry) *Builder {
	return &Builder{pool: pl, cache: cache, registry: registry}
}

// Build symbolically executes fn's body under ctx and returns the
// resulting ClosureVersion.
func (b *Builder) Build(fn *dispatch.Function, ctx dispatch.Assumptions) (*pir.ClosureVersion, error) {
	if b.depth > MaxInlineDepth {
		return nil, fmt.Errorf("pirbuild: max inline depth exceeded")
	}
	b.pending = b.pending[:0]
	cv := pir.NewClosureVersion(ctx)
	s := newSymState(b, cv, fn.Body)
	if err := s.run(); err != nil {
		return nil, err
	}
	return cv, nil
}

// PendingSpecializations returns every monomorphic call site the most
// recent Build call observed whose callee the identity registry could
// resolve to a Table. These are candidates for the speculative StaticCall
// inlining §4.4 describes, which this builder does not perform yet (see
// DESIGN.md) — the slice exists so callers (and tests) can observe that
// the registry lookup is actually exercised, not just plumbed through and
// ignored.
func (b *Builder) PendingSpecializations() []feedback.CalleeID {
	return b.pending
}

// blockBoundaries returns the sorted, deduplicated set of byte offsets
// that start a basic block: offset 0, every jump target, and every offset
// immediately following a terminator.
func blockBoundaries(code *rir.Code) []int {
	instrs := code.Instrs()
	offs := code.Offsets()
	set := map[int]bool{0: true}
	for i, ins := range instrs {
		off := offs[i]
		switch ins.Op {
		case rir.OpBr, rir.OpBrTrue, rir.OpBrFalse:
			var next int
			if i+1 < len(offs) {
				next = offs[i+1]
			} else {
				next = off + ins.Size()
			}
			set[next+int(ins.Imm[0])] = true
			if ins.Op != rir.OpBr && i+1 < len(offs) {
				set[offs[i+1]] = true
			}
		}
		if ins.Op.IsTerminator() && i+1 < len(offs) {
			set[offs[i+1]] = true
		}
	}
	out := make([]int, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

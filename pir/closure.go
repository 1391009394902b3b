package pir

import "github.com/scottcarroll/rir/dispatch"

// ClosureVersion is one specialized PIR compilation of a closure body
// (§4.4): an assumption context like dispatch.Assumptions, paired with
// the CFG and promise regions the builder produced under that context.
type ClosureVersion struct {
	Ctx       dispatch.Assumptions
	Blocks    []*Block
	Entry     int
	Promises  []*Promise
	nextValue ValueID
	nextBlock int
}

// NewClosureVersion returns an empty version under ctx, with a single
// empty entry block.
func NewClosureVersion(ctx dispatch.Assumptions) *ClosureVersion {
	cv := &ClosureVersion{Ctx: ctx}
	cv.Blocks = append(cv.Blocks, cv.NewBlock())
	return cv
}

// NewValue allocates a fresh, unique ValueID within this version.
func (cv *ClosureVersion) NewValue() ValueID {
	v := cv.nextValue
	cv.nextValue++
	return v
}

// NewBlock allocates a fresh Block and appends it to Blocks.
func (cv *ClosureVersion) NewBlock() *Block {
	b := NewBlock(cv.nextBlock)
	cv.nextBlock++
	cv.Blocks = append(cv.Blocks, b)
	return b
}

// Block looks up a block by id.
func (cv *ClosureVersion) Block(id int) *Block {
	for _, b := range cv.Blocks {
		if b.ID() == id {
			return b
		}
	}
	return nil
}

// AddPromise allocates a fresh Promise region and appends it to Promises.
func (cv *ClosureVersion) AddPromise() *Promise {
	p := NewPromise(len(cv.Promises))
	cv.Promises = append(cv.Promises, p)
	return p
}

// Closure is the PIR-level analogue of dispatch.Table (§4.4): a set of
// ClosureVersions compiled under different assumption contexts for the
// same surface closure, plus the compiled baseline Function it was built
// from.
type Closure struct {
	Baseline *dispatch.Function
	Versions []*ClosureVersion
}

// NewClosure returns a Closure with no compiled versions yet.
func NewClosure(baseline *dispatch.Function) *Closure {
	return &Closure{Baseline: baseline}
}

// AddVersion records a newly-built version.
func (c *Closure) AddVersion(cv *ClosureVersion) { c.Versions = append(c.Versions, cv) }

// FindCompatibleVersion returns an already-compiled version whose context
// is implied by want (cv.Ctx <= want), preferring the strongest such match,
// so a caller can reuse a version it already has instead of recompiling.
func (c *Closure) FindCompatibleVersion(want dispatch.Assumptions) (*ClosureVersion, bool) {
	var best *ClosureVersion
	for _, cv := range c.Versions {
		if !cv.Ctx.LE(want) {
			continue
		}
		if best == nil || best.Ctx.StrictlyWeakerThan(cv.Ctx) {
			best = cv
		}
	}
	return best, best != nil
}

// Module is the arena owning every Closure the optimizer is currently
// working on in one compilation unit (§4.4 "Module"). IDs are stable for
// the Module's lifetime, used to cross-reference closures from a
// CallStatic instruction before the target dispatch.Table exists.
type Module struct {
	closures []*Closure
	byID     map[int]*Closure
	nextID   int
}

// NewModule returns an empty Module.
func NewModule() *Module {
	return &Module{byID: map[int]*Closure{}}
}

// Add registers c and returns its stable Module-local ID.
func (m *Module) Add(c *Closure) int {
	id := m.nextID
	m.nextID++
	m.closures = append(m.closures, c)
	m.byID[id] = c
	return id
}

// Closure looks up a previously added Closure by ID.
func (m *Module) Closure(id int) (*Closure, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// Closures returns every registered Closure, in registration order.
func (m *Module) Closures() []*Closure { return m.closures }

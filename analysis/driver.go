package analysis

// State is a dataflow fact attached to one program point. Clone must
// return an independent copy (mutating the clone must not affect the
// original), and MergeWith must be monotone: merging in more information
// can only grow the fact, never shrink it, which is what guarantees the
// fixpoint drivers below terminate.
type State[S any] interface {
	Clone() S
	// MergeWith folds other into the receiver in place and reports
	// whether the receiver changed, so the driver knows whether to
	// re-visit this point's successors.
	MergeWith(other S) (changed bool)
}

// Receiver is the callback a Dispatcher invokes once per node; Visit may
// use the cursor to rewrite the instruction list in place.
type Receiver[T any] interface {
	Visit(cur Cursor[T]) error
}

// Dispatcher runs fn once per element of e, from Begin() to the end,
// taking the cursor's Next() before each call so a Receiver that removes
// or replaces the node it is visiting does not desynchronize the
// traversal.
type Dispatcher[T any] struct {
	Editor *Editor[T]
}

func NewDispatcher[T any](e *Editor[T]) Dispatcher[T] { return Dispatcher[T]{Editor: e} }

func (d Dispatcher[T]) Run(r Receiver[T]) error {
	cur := d.Editor.Begin()
	for cur.Valid() {
		next := cur.Next()
		if err := r.Visit(cur); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// LinearDriver runs a single forward pass over the elements of an Editor,
// threading one State value through without iterating to a fixpoint.
// (pirbuild does not use it: its symbolic execution walks the decoded RIR
// with its own loop and constructs phis directly at merge points.)
type LinearDriver[T any, S State[S]] struct {
	Step func(s S, cur Cursor[T]) (S, error)
}

func (d LinearDriver[T, S]) Run(e *Editor[T], initial S) (S, error) {
	s := initial
	for cur := e.Begin(); cur.Valid(); cur = cur.Next() {
		var err error
		s, err = d.Step(s, cur)
		if err != nil {
			var zero S
			return zero, err
		}
	}
	return s, nil
}

// Block is the minimal shape a ForwardFixpointDriver needs from a
// caller's control-flow graph node: its own instruction list and the
// blocks it can transfer control to.
type Block[T any] interface {
	Instrs() *Editor[T]
	Successors() []int
	ID() int
}

// ForwardFixpointDriver computes, for each block, an entry State that is
// the merge of every predecessor's exit State, iterating a worklist until
// no block's entry state changes (used by the constant-propagation and
// type-refinement passes in package optimize, §4.5).
type ForwardFixpointDriver[T any, S State[S]] struct {
	Transfer func(entry S, blk Block[T]) (exit S, err error)
	Bottom   func() S
}

// Run computes a fixpoint over blocks, given the out-edges implied by
// Block.Successors and preds (the reverse edge map, built by the caller
// from its own CFG since this package has no notion of a graph beyond
// what Block exposes).
func (d ForwardFixpointDriver[T, S]) Run(blocks []Block[T], entryBlock int, preds map[int][]int) (map[int]S, map[int]S, error) {
	entry := make(map[int]S, len(blocks))
	exit := make(map[int]S, len(blocks))
	byID := make(map[int]Block[T], len(blocks))
	for _, b := range blocks {
		byID[b.ID()] = b
		entry[b.ID()] = d.Bottom()
		exit[b.ID()] = d.Bottom()
	}

	worklist := make([]int, 0, len(blocks))
	onList := make(map[int]bool, len(blocks))
	push := func(id int) {
		if !onList[id] {
			worklist = append(worklist, id)
			onList[id] = true
		}
	}
	push(entryBlock)

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		onList[id] = false

		merged := d.Bottom()
		if id == entryBlock {
			merged = entry[id]
		}
		for _, p := range preds[id] {
			merged.MergeWith(exit[p])
		}
		entry[id] = merged

		newExit, err := d.Transfer(merged.Clone(), byID[id])
		if err != nil {
			return nil, nil, err
		}
		cur := exit[id]
		changed := cur.MergeWith(newExit)
		exit[id] = cur
		if changed || len(preds[id]) == 0 {
			for _, b := range byID[id].Successors() {
				push(b)
			}
		}
	}
	return entry, exit, nil
}

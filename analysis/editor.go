// Package analysis provides the generic traversal and dataflow-fixpoint
// framework shared by the PIR builder (pirbuild), the optimizer
// (optimize), and the PIR->RIR lowerer (lower): a doubly-linked
// instruction list with a label index and stable cursors, a visitor
// dispatch pair, a single-pass linear driver and a forward fixpoint driver
// (§4.4-§4.6, component F).
package analysis

// node is one element of an Editor's doubly-linked instruction list.
type node[T any] struct {
	val        T
	prev, next *node[T]
}

// Cursor is a stable position in an Editor's instruction list. It remains
// valid across insertions and deletions elsewhere in the list, which is
// what lets a Receiver rewrite the instruction it is currently visiting
// without invalidating the Dispatcher's own iteration state.
type Cursor[T any] struct {
	n *node[T]
}

// Valid reports whether the cursor refers to a node at all (the zero
// Cursor, or Next/Prev past either end, is not valid). It does not track
// removal: a cursor whose node was removed still reports true.
func (c Cursor[T]) Valid() bool { return c.n != nil }

// Get returns the value at the cursor.
func (c Cursor[T]) Get() T { return c.n.val }

// Set overwrites the value at the cursor in place.
func (c Cursor[T]) Set(v T) { c.n.val = v }

// Editor is a mutable, randomly-labeled doubly-linked list. It is the data
// structure a basic block's instruction sequence (package pir) is built
// from.
type Editor[T any] struct {
	head, tail *node[T]
	labels     map[string]*node[T]
	len        int
}

// NewEditor returns an empty Editor.
func NewEditor[T any]() *Editor[T] {
	return &Editor[T]{labels: map[string]*node[T]{}}
}

// Len returns the number of elements.
func (e *Editor[T]) Len() int { return e.len }

// PushBack appends v and returns a cursor to it.
func (e *Editor[T]) PushBack(v T) Cursor[T] {
	n := &node[T]{val: v, prev: e.tail}
	if e.tail != nil {
		e.tail.next = n
	} else {
		e.head = n
	}
	e.tail = n
	e.len++
	return Cursor[T]{n: n}
}

// InsertAfter inserts v immediately after at, returning a cursor to the
// new node. at must be a valid cursor into this Editor.
func (e *Editor[T]) InsertAfter(at Cursor[T], v T) Cursor[T] {
	n := &node[T]{val: v, prev: at.n, next: at.n.next}
	if at.n.next != nil {
		at.n.next.prev = n
	} else {
		e.tail = n
	}
	at.n.next = n
	e.len++
	return Cursor[T]{n: n}
}

// InsertBefore inserts v immediately before at.
func (e *Editor[T]) InsertBefore(at Cursor[T], v T) Cursor[T] {
	n := &node[T]{val: v, prev: at.n.prev, next: at.n}
	if at.n.prev != nil {
		at.n.prev.next = n
	} else {
		e.head = n
	}
	at.n.prev = n
	e.len++
	return Cursor[T]{n: n}
}

// Remove deletes the node at cur. cur is invalidated by this call; any
// other cursor into the list remains valid.
func (e *Editor[T]) Remove(cur Cursor[T]) {
	n := cur.n
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		e.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		e.tail = n.prev
	}
	n.prev, n.next = nil, nil
	e.len--
}

// Begin returns a cursor to the first element, or an invalid cursor if
// the Editor is empty.
func (e *Editor[T]) Begin() Cursor[T] { return Cursor[T]{n: e.head} }

// End returns a cursor to the last element.
func (e *Editor[T]) End() Cursor[T] { return Cursor[T]{n: e.tail} }

// Next returns a cursor to the element after cur, or an invalid cursor at
// the end of the list.
func (c Cursor[T]) Next() Cursor[T] {
	if c.n == nil {
		return Cursor[T]{}
	}
	return Cursor[T]{n: c.n.next}
}

// Prev returns a cursor to the element before cur.
func (c Cursor[T]) Prev() Cursor[T] {
	if c.n == nil {
		return Cursor[T]{}
	}
	return Cursor[T]{n: c.n.prev}
}

// Label binds name to cur's position, so LabelCursor can recover it after
// arbitrary edits elsewhere in the list.
func (e *Editor[T]) Label(name string, cur Cursor[T]) { e.labels[name] = cur.n }

// LabelCursor returns the cursor bound to name, if any.
func (e *Editor[T]) LabelCursor(name string) (Cursor[T], bool) {
	n, ok := e.labels[name]
	return Cursor[T]{n: n}, ok
}

// ToSlice materializes the list in order, for instruction encoding.
func (e *Editor[T]) ToSlice() []T {
	out := make([]T, 0, e.len)
	for n := e.head; n != nil; n = n.next {
		out = append(out, n.val)
	}
	return out
}

package dispatch

// Registry maps an observed callee identity back to the compiled Table it
// came from. The interpreter's call trampoline populates it as it
// dispatches to compiled closures; the builder consults it when call
// feedback (component C) reports a monomorphic call site, so a callee
// identity recorded at runtime can be resolved back to something concrete
// at compile time instead of staying an opaque uintptr forever. Like the
// rest of this core, a Registry is not safe for concurrent use (§5).
type Registry struct {
	byIdentity map[uintptr]*Table
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byIdentity: map[uintptr]*Table{}}
}

// Register records that id identifies tbl. Re-registering the same id
// with a different Table simply overwrites the mapping — the registry
// tracks "what this identity currently resolves to", not history.
func (r *Registry) Register(id uintptr, tbl *Table) {
	r.byIdentity[id] = tbl
}

// Lookup resolves an observed callee identity back to its Table, if this
// process has ever dispatched to one under that identity.
func (r *Registry) Lookup(id uintptr) (*Table, bool) {
	tbl, ok := r.byIdentity[id]
	return tbl, ok
}

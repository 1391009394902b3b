// Package pool implements the process-wide interning tables for constants
// and source references (§3 "Pool index"). Entries are append-only and
// interning is idempotent: posting the same logical value twice returns the
// same Idx.
package pool

import (
	"fmt"
	"sync"

	"lukechampine.com/blake3"
)

// Idx is an opaque identifier into one of the pool's tables. Equality of
// indices implies identity of the interned value.
type Idx uint32

// Invalid is never returned by Intern; it marks the absence of an entry.
const Invalid Idx = 0

// SourceRef is a syntax fragment recorded for a bytecode position, kept
// opaque here since the host owns the surface-syntax representation.
type SourceRef struct {
	File string
	Line int
	Col  int
	Text string
}

// table is one append-only interning table, deduplicated by content hash.
type table struct {
	entries []any
	byHash  map[[32]byte]Idx
}

func newTable() *table {
	// index 0 is reserved for Invalid, so real entries start at 1.
	return &table{entries: []any{nil}, byHash: make(map[[32]byte]Idx)}
}

func (t *table) intern(v any) Idx {
	h := fingerprint(v)
	if idx, ok := t.byHash[h]; ok {
		return idx
	}
	idx := Idx(len(t.entries))
	t.entries = append(t.entries, v)
	t.byHash[h] = idx
	return idx
}

func (t *table) get(i Idx) (any, bool) {
	if int(i) <= 0 || int(i) >= len(t.entries) {
		return nil, false
	}
	return t.entries[i], true
}

// fingerprint hashes the Go-syntax representation of v together with its
// dynamic type, so interning stays idempotent for any comparable-by-value
// host constant (ints, floats, strings, small vectors) without requiring
// the host's value types to implement a custom codec.
func fingerprint(v any) [32]byte {
	s := fmt.Sprintf("%T|%#v", v, v)
	return blake3.Sum256([]byte(s))
}

// Pool is the process-wide pair of interning tables described in §3 and §6
// ("the constant pool, the symbol pool ... are process-wide"). A Pool is
// safe for concurrent Intern/Lookup, though the core itself never calls it
// from more than one goroutine at a time (§5).
type Pool struct {
	mu        sync.Mutex
	constants *table
	sources   *table
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{constants: newTable(), sources: newTable()}
}

// InternConstant interns an arbitrary host value and returns a stable Idx.
// The host value's representation is opaque to this package (§1 "the
// host's value representation" is out of scope); interning is idempotent
// by content fingerprint for every constant the compiler emits (literals,
// small vectors, symbols).
func (p *Pool) InternConstant(v any) Idx {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.constants.intern(v)
}

// Constant looks up a previously interned constant.
func (p *Pool) Constant(i Idx) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.constants.get(i)
}

// InternSource interns a syntax fragment used for error messages and
// disassembly.
func (p *Pool) InternSource(s SourceRef) Idx {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sources.intern(s)
}

// Source looks up a previously interned source reference.
func (p *Pool) Source(i Idx) (SourceRef, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.sources.get(i)
	if !ok {
		return SourceRef{}, false
	}
	return v.(SourceRef), true
}

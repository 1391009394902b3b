package rir

import (
	"github.com/scottcarroll/rir/feedback"
	"github.com/scottcarroll/rir/pool"
)

// ID identifies a Code object for disassembly and deopt-metadata
// cross-references. It has no meaning outside one process.
type ID uint64

// Code is a contiguous region of bytecode plus the metadata that makes it
// safe to interpret (§3 "Code object"). Code objects are immutable once
// emitted; producing a specialized version always creates a fresh Code.
type Code struct {
	id ID

	bytes []byte

	// children holds promise bodies referenced by index from OpPromise
	// immediates; they are owned by this Code.
	children []*Code

	// srcRefs maps a byte offset in bytes to a pool.Idx of a SourceRef,
	// the per-opcode source-reference side table.
	srcRefs map[int]pool.Idx

	maxStack int
	nLocals  int

	// owner is the Function this Code is the body of. It is stored as an
	// opaque value (rather than a typed *dispatch.Function) so this
	// package does not import package dispatch, which itself imports
	// rir.
	owner any

	fb *feedback.Block
}

// NewCode builds an immutable Code object from its parts. callSites and
// typeSites are the number of inline call-feedback and type-feedback slots
// reserved in the instruction stream (see package feedback); the caller
// (the compiler producing RIR, or the lowerer producing specialized RIR)
// is responsible for emitting OpRecordCall/OpRecordBinop immediates that
// index into [0, callSites) and [0, typeSites) respectively.
func NewCode(id ID, bytes []byte, children []*Code, srcRefs map[int]pool.Idx, maxStack, nLocals int, callSites, typeSites int) *Code {
	if srcRefs == nil {
		srcRefs = map[int]pool.Idx{}
	}
	return &Code{
		id:       id,
		bytes:    bytes,
		children: children,
		srcRefs:  srcRefs,
		maxStack: maxStack,
		nLocals:  nLocals,
		fb:       feedback.NewBlock(callSites, typeSites),
	}
}

func (c *Code) ID() ID           { return c.id }
func (c *Code) Bytes() []byte    { return c.bytes }
func (c *Code) MaxStack() int    { return c.maxStack }
func (c *Code) NLocals() int     { return c.nLocals }
func (c *Code) Children() []*Code { return c.children }
func (c *Code) Child(i int) *Code { return c.children[i] }

// Feedback returns the runtime feedback block embedded in this Code
// object (component C). It is append-only across the Code object's
// lifetime (§5 ordering guarantee).
func (c *Code) Feedback() *feedback.Block { return c.fb }

// SourceAt returns the pool.Idx of the source fragment for the
// instruction at byte offset off, if recorded.
func (c *Code) SourceAt(off int) (pool.Idx, bool) {
	idx, ok := c.srcRefs[off]
	return idx, ok
}

// Owner returns the Function this Code is the body of, or nil if it has
// not been attached to one yet (e.g. a promise body mid-construction).
func (c *Code) Owner() any { return c.owner }

// SetOwner attaches the owning Function. Called once, by package dispatch,
// when a Function wrapping this Code is constructed.
func (c *Code) SetOwner(owner any) { c.owner = owner }

// Instrs decodes the full instruction stream, for disassembly and for
// symbolic execution in package pirbuild.
func (c *Code) Instrs() []Instr {
	return DecodeAll(c.bytes)
}

// Offsets returns the pc of every instruction, in program order.
func (c *Code) Offsets() []int {
	return Offsets(c.bytes)
}

package pir

import "github.com/scottcarroll/rir/analysis"

// Block is one basic block in a ClosureVersion's CFG: a linear
// instruction list ending in a terminator, plus the predecessor set
// needed for phi construction and the fixpoint drivers in package
// analysis.
type Block struct {
	id    int
	instr *analysis.Editor[Instr]
	preds []int
}

// NewBlock returns an empty Block with the given id.
func NewBlock(id int) *Block {
	return &Block{id: id, instr: analysis.NewEditor[Instr]()}
}

func (b *Block) ID() int                     { return b.id }
func (b *Block) Instrs() *analysis.Editor[Instr] { return b.instr }
func (b *Block) Preds() []int                { return b.preds }
func (b *Block) AddPred(id int)              { b.preds = append(b.preds, id) }

// Successors returns the block IDs this Block's terminator can transfer
// control to, or nil if the block has no terminator yet (mid-construction)
// or ends in Return.
func (b *Block) Successors() []int {
	cur := b.instr.End()
	if !cur.Valid() {
		return nil
	}
	switch t := cur.Get().(type) {
	case Jmp:
		return []int{t.Target}
	case Branch:
		return []int{t.IfTrue, t.IfFalse}
	default:
		return nil
	}
}

// Append adds ins to the end of the block and returns a cursor to it.
func (b *Block) Append(ins Instr) analysis.Cursor[Instr] { return b.instr.PushBack(ins) }

// Terminator returns the block's terminating instruction, if present.
func (b *Block) Terminator() (Instr, bool) {
	cur := b.instr.End()
	if !cur.Valid() {
		return nil, false
	}
	ins := cur.Get()
	if !IsTerminator(ins) {
		return nil, false
	}
	return ins, true
}

// Phis returns every Phi at the head of the block, in insertion order.
func (b *Block) Phis() []Phi {
	var out []Phi
	for cur := b.instr.Begin(); cur.Valid(); cur = cur.Next() {
		p, ok := cur.Get().(Phi)
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// Promise is a lazily-evaluated argument region (§3 "promise body",
// §4.4): its own small CFG, owned by the ClosureVersion whose call
// supplies it, entered only when something forces the corresponding
// argument.
type Promise struct {
	id     int
	Blocks []*Block
	Entry  int
}

func NewPromise(id int) *Promise {
	return &Promise{id: id, Blocks: []*Block{NewBlock(0)}, Entry: 0}
}

func (p *Promise) ID() int { return p.id }

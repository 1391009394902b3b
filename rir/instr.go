package rir

// Instr is the decoded, in-memory view of one bytecode instruction: an
// opcode plus its immediates. Immediates are interpreted per-opcode: pool
// indices (constants/source refs), jump offsets (relative, in bytes),
// argument counts, or inline feedback-slot indices.
type Instr struct {
	Op  Op
	Imm []int32
}

// Size returns the encoded size of this instruction in bytes, using the
// same variable-length varint layout as Encode.
func (ins Instr) Size() int {
	n := 1
	for _, x := range ins.Imm {
		n += varintSize(int64(x))
	}
	return n
}

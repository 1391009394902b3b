package rir

import "encoding/binary"

// varintSize returns the number of bytes binary.PutVarint would write for x.
func varintSize(x int64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutVarint(buf[:], x)
}

// Encode appends the byte encoding of ins to dst and returns the result.
// The layout is a single opcode byte followed by ins.Op.Arity() signed
// varints, matching §3's "one-byte opcode followed by zero or more
// immediates."
func Encode(dst []byte, ins Instr) []byte {
	dst = append(dst, byte(ins.Op))
	var buf [binary.MaxVarintLen64]byte
	for _, x := range ins.Imm {
		n := binary.PutVarint(buf[:], int64(x))
		dst = append(dst, buf[:n]...)
	}
	return dst
}

// Decode reads one instruction starting at offset off in b, returning the
// instruction and the offset of the next one. It panics if b is truncated,
// since a truncated stream means the encoder (this package, or the
// PIR->RIR lowerer in package lower) produced an invalid Code object —
// a programmer error, not a runtime condition.
func Decode(b []byte, off int) (Instr, int) {
	op := Op(b[off])
	off++
	n := op.Arity()
	var imm []int32
	if n > 0 {
		imm = make([]int32, n)
	}
	for i := 0; i < n; i++ {
		x, w := binary.Varint(b[off:])
		if w <= 0 {
			panic("rir: truncated instruction stream")
		}
		imm[i] = int32(x)
		off += w
	}
	return Instr{Op: op, Imm: imm}, off
}

// DecodeAll decodes every instruction in b, for disassembly and for the
// symbolic-execution builder (package pirbuild) which wants random access
// to the whole stream with byte offsets.
func DecodeAll(b []byte) []Instr {
	var out []Instr
	for off := 0; off < len(b); {
		var ins Instr
		ins, off = Decode(b, off)
		out = append(out, ins)
	}
	return out
}

// Offsets returns the byte offset of every instruction in b, in program
// order; Offsets(b)[i] is the pc at which the i'th decoded instruction
// begins. This is what jump immediates and DeoptMetadata pc-offsets refer
// to.
func Offsets(b []byte) []int {
	var offs []int
	for off := 0; off < len(b); {
		offs = append(offs, off)
		_, next := Decode(b, off)
		off = next
	}
	return offs
}

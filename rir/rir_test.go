package rir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/rir"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	instrs := []rir.Instr{
		{Op: rir.OpPush, Imm: []int32{3}},
		{Op: rir.OpPush, Imm: []int32{-7}},
		{Op: rir.OpAdd, Imm: []int32{0}},
		{Op: rir.OpRet},
	}
	var buf []byte
	for _, ins := range instrs {
		buf = rir.Encode(buf, ins)
	}
	got := rir.DecodeAll(buf)
	require.Equal(t, instrs, got)
}

func TestAssemblerForwardJump(t *testing.T) {
	a := rir.NewAssembler()
	end := a.NewLabel()
	a.Emit(rir.OpPush, 1)
	a.EmitJump(rir.OpBrFalse, end)
	a.Emit(rir.OpPush, 99)
	a.Place(end)
	a.Emit(rir.OpRet)

	instrs := rir.DecodeAll(a.Bytes())
	require.Len(t, instrs, 4)
	require.Equal(t, rir.OpBrFalse, instrs[1].Op)
	// the branch should jump past the OpPush 99 straight to OpRet
	offs := rir.Offsets(a.Bytes())
	retOff := offs[3]
	branchEnd := offs[2] // offset right after the branch instruction
	require.Equal(t, int32(retOff-branchEnd), instrs[1].Imm[0])
}

func TestArityAndTerminators(t *testing.T) {
	require.Equal(t, 1, rir.OpPush.Arity())
	require.True(t, rir.OpRet.IsTerminator())
	require.False(t, rir.OpPush.IsTerminator())
	require.True(t, rir.OpAdd.IsArith())
}

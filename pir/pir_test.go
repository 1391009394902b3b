package pir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/rir"
)

func TestTypeLattice(t *testing.T) {
	top := pir.Top()
	void := pir.Void()
	require.True(t, void.LE(top))
	require.True(t, void.IsVoid())

	intT := pir.Scalar(pir.FlagScalarInt)
	realT := pir.Scalar(pir.FlagScalarReal)
	joined := intT.Join(realT)
	require.True(t, joined.Has(pir.FlagScalarInt))
	require.True(t, joined.Has(pir.FlagScalarReal))
	require.True(t, joined.IsScalarOnly())

	objT := pir.Scalar(pir.FlagObject)
	require.False(t, intT.MaybeObject())
	require.True(t, objT.MaybeObject())

	require.Equal(t, pir.Void(), intT.Meet(objT))
}

func TestEffectConservation(t *testing.T) {
	pure := pir.None()
	require.True(t, pure.IsPure())

	write := pir.EffectWritesEnv
	read := pir.EffectReadsEnv
	require.False(t, write.Commutes(read))
	require.True(t, pure.Commutes(write))
}

func TestBlockTerminatorAndSuccessors(t *testing.T) {
	b := pir.NewBlock(0)
	c := b.Append(pir.NewConst(0, 1, pir.Top()))
	_ = c
	b.Append(pir.NewJmp(1, 7))

	term, ok := b.Terminator()
	require.True(t, ok)
	jmp, ok := term.(pir.Jmp)
	require.True(t, ok)
	require.Equal(t, 7, jmp.Target)
	require.Equal(t, []int{7}, b.Successors())
}

func TestClosureFindCompatibleVersion(t *testing.T) {
	code := rir.NewCode(1, nil, nil, nil, 0, 0, 0, 0)
	baseline := dispatch.NewFunction(code, dispatch.Baseline(), dispatch.Signature{}, nil)
	cl := pir.NewClosure(baseline)

	strong := dispatch.Assumptions{CorrectOrder: true, MaxArgs: -1, MinArgs: 0}
	cv := pir.NewClosureVersion(strong)
	cl.AddVersion(cv)

	weaker := dispatch.Baseline()
	got, ok := cl.FindCompatibleVersion(weaker)
	require.False(t, ok) // baseline does not imply strong's CorrectOrder bit

	got, ok = cl.FindCompatibleVersion(strong)
	require.True(t, ok)
	require.Same(t, cv, got)
}

package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/internal/testutil"
	"github.com/scottcarroll/rir/optimize"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
)

func TestConstPropFoldsJoinedConstant(t *testing.T) {
	p := pool.New()
	idx := p.InternConstant(int64(41))

	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c1 := cv.NewValue()
	entry.Append(pir.NewConst(c1, idx, pir.Scalar(pir.FlagScalarInt)))
	phi := cv.NewValue()
	p2 := pir.NewPhi(phi, pir.Top())
	p2.Inputs[entry.ID()] = c1
	entry.Append(p2)
	ret := cv.NewValue()
	entry.Append(pir.NewReturn(ret, phi))

	require.NoError(t, optimize.ConstProp(cv))

	var sawConst bool
	for cur := entry.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		if c, ok := cur.Get().(pir.Const); ok && c.ID() == phi {
			sawConst = true
			require.Equal(t, idx, c.Value)
		}
	}
	require.True(t, sawConst)
}

func TestDeadCodeElimRemovesUnusedPure(t *testing.T) {
	p := pool.New()
	idx := p.InternConstant(int64(1))

	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	dead := cv.NewValue()
	entry.Append(pir.NewConst(dead, idx, pir.Scalar(pir.FlagScalarInt)))
	used := cv.NewValue()
	entry.Append(pir.NewConst(used, idx, pir.Scalar(pir.FlagScalarInt)))
	ret := cv.NewValue()
	entry.Append(pir.NewReturn(ret, used))

	optimize.DeadCodeElim(cv)

	var sawDead bool
	for cur := entry.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
		if cur.Get().ID() == dead {
			sawDead = true
		}
	}
	require.False(t, sawDead)
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c := cv.NewValue()
	entry.Append(pir.NewConst(c, pool.Invalid, pir.Top()))

	err := optimize.Verify(cv)
	require.Error(t, err)
}

func TestVerifyPassesWellFormedBlock(t *testing.T) {
	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c := cv.NewValue()
	entry.Append(pir.NewConst(c, pool.Invalid, pir.Top()))
	ret := cv.NewValue()
	entry.Append(pir.NewReturn(ret, c))

	require.NoError(t, optimize.Verify(cv))
}

func TestPipelineRunsAllPasses(t *testing.T) {
	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c := cv.NewValue()
	entry.Append(pir.NewConst(c, pool.Invalid, pir.Top()))
	ret := cv.NewValue()
	entry.Append(pir.NewReturn(ret, c))

	pl := optimize.Pipeline{Debug: true}
	require.NoError(t, pl.Run(testutil.Context(t), cv))
}

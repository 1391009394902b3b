package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/lower"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

func TestLowerStraightLine(t *testing.T) {
	pl := pool.New()
	idx := pl.InternConstant(int64(7))

	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c := cv.NewValue()
	entry.Append(pir.NewConst(c, idx, pir.Scalar(pir.FlagScalarInt)))
	ret := cv.NewValue()
	entry.Append(pir.NewReturn(ret, c))

	code, err := lower.Lower(cv, pl, nil)
	require.NoError(t, err)
	require.NotNil(t, code)

	instrs := rir.DecodeAll(code.Bytes())
	var sawRet bool
	for _, ins := range instrs {
		if ins.Op == rir.OpRet {
			sawRet = true
		}
	}
	require.True(t, sawRet)
}

func TestLowerBranchWithPhi(t *testing.T) {
	pl := pool.New()
	idxA := pl.InternConstant(int64(1))
	idxB := pl.InternConstant(int64(2))

	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	trueBlk := cv.NewBlock()
	falseBlk := cv.NewBlock()
	joinBlk := cv.NewBlock()

	cond := cv.NewValue()
	entry.Append(pir.NewLdArg(cond, 0, pir.Top()))
	entry.Append(pir.NewBranch(cv.NewValue(), cond, trueBlk.ID(), falseBlk.ID()))
	trueBlk.AddPred(entry.ID())
	falseBlk.AddPred(entry.ID())

	a := cv.NewValue()
	trueBlk.Append(pir.NewConst(a, idxA, pir.Scalar(pir.FlagScalarInt)))
	trueBlk.Append(pir.NewJmp(cv.NewValue(), joinBlk.ID()))
	joinBlk.AddPred(trueBlk.ID())

	b := cv.NewValue()
	falseBlk.Append(pir.NewConst(b, idxB, pir.Scalar(pir.FlagScalarInt)))
	falseBlk.Append(pir.NewJmp(cv.NewValue(), joinBlk.ID()))
	joinBlk.AddPred(falseBlk.ID())

	phi := cv.NewValue()
	p := pir.NewPhi(phi, pir.Scalar(pir.FlagScalarInt))
	p.Inputs[trueBlk.ID()] = a
	p.Inputs[falseBlk.ID()] = b
	joinBlk.Append(p)
	joinBlk.Append(pir.NewReturn(cv.NewValue(), phi))

	code, err := lower.Lower(cv, pl, nil)
	require.NoError(t, err)

	var movLocs, rets int
	for _, ins := range rir.DecodeAll(code.Bytes()) {
		switch ins.Op {
		case rir.OpMovLoc:
			movLocs++
		case rir.OpRet:
			rets++
		}
	}
	require.Equal(t, 2, movLocs, "each arm of the branch should copy its value into the phi's slot")
	require.Equal(t, 1, rets)
}

func TestLowerCheckpointEmitsDeopt(t *testing.T) {
	pl := pool.New()
	idx := pl.InternConstant(int64(3))
	baseline := rir.NewCode(0, nil, nil, nil, 2, 1, 0, 0)

	cv := pir.NewClosureVersion(dispatch.Baseline())
	entry := cv.Block(cv.Entry)
	c := cv.NewValue()
	entry.Append(pir.NewConst(c, idx, pir.Scalar(pir.FlagScalarInt)))
	entry.Append(pir.NewCheckpoint(cv.NewValue(), c, pir.Scalar(pir.FlagScalarInt), -1))
	entry.Append(pir.NewReturn(cv.NewValue(), c))

	code, err := lower.Lower(cv, pl, baseline)
	require.NoError(t, err)

	var sawDeopt bool
	for _, ins := range rir.DecodeAll(code.Bytes()) {
		if ins.Op == rir.OpDeopt {
			sawDeopt = true
		}
	}
	require.True(t, sawDeopt)
}

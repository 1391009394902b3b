package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/rir"
)

func newFn(ctx dispatch.Assumptions) *dispatch.Function {
	code := rir.NewCode(0, nil, nil, nil, 0, 0, 0, 0)
	return dispatch.NewFunction(code, ctx, dispatch.Signature{}, nil)
}

func TestAssumptionsLattice(t *testing.T) {
	base := dispatch.Baseline()
	strong := dispatch.Assumptions{CorrectOrder: true, NoExplicitMissing: true, MaxArgs: 2, MinArgs: 2}

	require.True(t, base.LE(strong))
	require.False(t, strong.LE(base))
	require.True(t, base.StrictlyWeakerThan(strong))
	require.True(t, base.Comparable(strong))

	other := dispatch.Assumptions{CorrectOrder: true, NoReflective: true, MaxArgs: 3, MinArgs: 3}
	require.False(t, strong.Comparable(other))
}

func TestTableDispatchPicksStrongestViable(t *testing.T) {
	baseline := newFn(dispatch.Baseline())
	tbl := dispatch.NewTable(baseline, 4)

	weak := dispatch.Assumptions{CorrectOrder: true, MaxArgs: -1, MinArgs: 0}
	strong := dispatch.Assumptions{CorrectOrder: true, NoExplicitMissing: true, MaxArgs: -1, MinArgs: 0}

	fWeak := newFn(weak)
	fStrong := newFn(strong)
	require.NoError(t, tbl.Install(fWeak))
	require.NoError(t, tbl.Install(fStrong))
	require.Equal(t, 3, tbl.Len())

	inferred := dispatch.Assumptions{CorrectOrder: true, NoExplicitMissing: true, MaxArgs: -1, MinArgs: 0}
	slot, fn := tbl.Dispatch(inferred)
	require.Equal(t, 2, slot)
	require.Same(t, fStrong, fn)

	looser := dispatch.Assumptions{CorrectOrder: true, MaxArgs: -1, MinArgs: 0}
	slot, fn = tbl.Dispatch(looser)
	require.Equal(t, 1, slot)
	require.Same(t, fWeak, fn)

	unrelated := dispatch.Assumptions{NoReflective: true, MaxArgs: -1, MinArgs: 0}
	slot, fn = tbl.Dispatch(unrelated)
	require.Equal(t, 0, slot)
	require.Same(t, baseline, fn)
}

func TestInstallRejectsNonStronger(t *testing.T) {
	baseline := newFn(dispatch.Baseline())
	tbl := dispatch.NewTable(baseline, 2)
	err := tbl.Install(newFn(dispatch.Baseline()))
	require.Error(t, err)
}

// TestInstallReplacesIncomparable covers §8 Scenario 5: installing a
// context incomparable to an existing specialized slot must evict the
// earlier one rather than leave two unordered entries.
func TestInstallReplacesIncomparable(t *testing.T) {
	baseline := newFn(dispatch.Baseline())
	tbl := dispatch.NewTable(baseline, 4)

	a := dispatch.Assumptions{CorrectOrder: true, MaxArgs: -1, MinArgs: 0}
	b := dispatch.Assumptions{NoReflective: true, MaxArgs: -1, MinArgs: 0}
	require.False(t, a.Comparable(b))

	fa := newFn(a)
	fb := newFn(b)
	require.NoError(t, tbl.Install(fa))
	require.NoError(t, tbl.Install(fb))

	require.Equal(t, 2, tbl.Len())
	require.Same(t, fb, tbl.Slot(1))
}

func TestInstallEvictsOldestWhenFull(t *testing.T) {
	baseline := newFn(dispatch.Baseline())
	tbl := dispatch.NewTable(baseline, 2) // 1 specialized slot available

	a := dispatch.Assumptions{CorrectOrder: true, MaxArgs: -1, MinArgs: 0}
	b := dispatch.Assumptions{CorrectOrder: true, NoReflective: true, MaxArgs: -1, MinArgs: 0}

	fa := newFn(a)
	fb := newFn(b)
	require.NoError(t, tbl.Install(fa))
	require.NoError(t, tbl.Install(fb))

	require.Equal(t, 2, tbl.Len())
	require.Same(t, fb, tbl.Slot(1))
}

func TestInvocationCounts(t *testing.T) {
	baseline := newFn(dispatch.Baseline())
	tbl := dispatch.NewTable(baseline, 2)
	baseline.RegisterInvocation()

	counts := tbl.InvocationCounts()
	require.Equal(t, []uint64{1, 0}, counts)
}

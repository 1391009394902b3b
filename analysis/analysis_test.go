package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/analysis"
)

func TestEditorInsertRemove(t *testing.T) {
	e := analysis.NewEditor[int]()
	c1 := e.PushBack(1)
	c3 := e.PushBack(3)
	e.InsertAfter(c1, 2)
	require.Equal(t, []int{1, 2, 3}, e.ToSlice())

	e.Remove(c3)
	require.Equal(t, []int{1, 2}, e.ToSlice())
}

func TestEditorLabels(t *testing.T) {
	e := analysis.NewEditor[string]()
	c := e.PushBack("target")
	e.Label("loop_head", c)

	got, ok := e.LabelCursor("loop_head")
	require.True(t, ok)
	require.Equal(t, "target", got.Get())
}

func TestDispatcherRewriteDuringVisit(t *testing.T) {
	e := analysis.NewEditor[int]()
	e.PushBack(1)
	e.PushBack(2)
	e.PushBack(3)

	d := analysis.NewDispatcher[int](e)
	err := d.Run(rewriteEvens{e})
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, e.ToSlice())
}

type rewriteEvens struct{ e *analysis.Editor[int] }

func (r rewriteEvens) Visit(cur analysis.Cursor[int]) error {
	if cur.Get()%2 == 0 {
		r.e.Remove(cur)
	}
	return nil
}

type intSet map[int]bool

func (s intSet) Clone() intSet {
	out := make(intSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s intSet) MergeWith(other intSet) bool {
	changed := false
	for k := range other {
		if !s[k] {
			s[k] = true
			changed = true
		}
	}
	return changed
}

type fixtureBlock struct {
	id   int
	succ []int
}

func (b fixtureBlock) Instrs() *analysis.Editor[int] { return nil }
func (b fixtureBlock) Successors() []int             { return b.succ }
func (b fixtureBlock) ID() int                        { return b.id }

func TestForwardFixpointDriverConverges(t *testing.T) {
	blocks := []analysis.Block[int]{
		fixtureBlock{id: 0, succ: []int{1}},
		fixtureBlock{id: 1, succ: []int{2}},
		fixtureBlock{id: 2, succ: nil},
	}
	preds := map[int][]int{1: {0}, 2: {1}}

	d := analysis.ForwardFixpointDriver[int, intSet]{
		Bottom: func() intSet { return intSet{} },
		Transfer: func(entry intSet, blk fixtureBlockIface) (intSet, error) {
			out := entry.Clone()
			out[blk.ID()] = true
			return out, nil
		},
	}
	_, exit, err := d.Run(blocks, 0, preds)
	require.NoError(t, err)
	require.True(t, exit[2][0])
	require.True(t, exit[2][1])
	require.True(t, exit[2][2])
}

type fixtureBlockIface = analysis.Block[int]

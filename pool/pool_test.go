package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/pool"
)

func TestInternIdempotent(t *testing.T) {
	p := pool.New()
	a := p.InternConstant(42)
	b := p.InternConstant(42)
	require.Equal(t, a, b)

	c := p.InternConstant("42")
	require.NotEqual(t, a, c)
}

func TestInternAppendOnly(t *testing.T) {
	p := pool.New()
	a := p.InternConstant(1)
	b := p.InternConstant(2)
	require.NotEqual(t, a, b)

	v, ok := p.Constant(a)
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestSourceRefs(t *testing.T) {
	p := pool.New()
	s := pool.SourceRef{File: "a.R", Line: 1, Col: 1, Text: "x + 1"}
	idx := p.InternSource(s)
	got, ok := p.Source(idx)
	require.True(t, ok)
	require.Equal(t, s, got)
}

func TestInvalidLookup(t *testing.T) {
	p := pool.New()
	_, ok := p.Constant(pool.Invalid)
	require.False(t, ok)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/engine"
	"github.com/scottcarroll/rir/internal/testutil"
)

func TestBuildAddTableEvaluates(t *testing.T) {
	table, ec := buildAddTable()
	require.Equal(t, 1, table.Len())

	env := newDemoEnv()
	env.Set("a", int64(1))
	out, err := engine.RirEval(testutil.Context(t), ec, table.Baseline().Body, env)
	require.NoError(t, err)
	require.Equal(t, int64(42), out)
}

func TestBuildAddTableDisassembles(t *testing.T) {
	table, _ := buildAddTable()
	text := engine.RirDisassemble(table.Baseline().Body)
	require.Contains(t, text, "OpLdArg")
	require.Contains(t, text, "OpAdd")
	require.Contains(t, text, "OpRet")
}

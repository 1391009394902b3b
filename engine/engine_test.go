package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/engine"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/internal/testutil"
	"github.com/scottcarroll/rir/rir"
)

type fakeEnv struct{ vars map[string]host.Value }

func newFakeEnv() *fakeEnv { return &fakeEnv{vars: map[string]host.Value{}} }

func (e *fakeEnv) Get(sym string) (host.Value, bool) { v, ok := e.vars[sym]; return v, ok }
func (e *fakeEnv) Set(sym string, v host.Value)      { e.vars[sym] = v }
func (e *fakeEnv) SetSuper(sym string, v host.Value) { e.vars[sym] = v }
func (e *fakeEnv) Parent() host.Env                  { return nil }

type fakeHost struct{}

func (fakeHost) NewEnv(parent host.Env) host.Env { return newFakeEnv() }
func (fakeHost) CallClosure(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("not used in this test")
}
func (fakeHost) CallBuiltin(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("not used in this test")
}
func (fakeHost) IsObject(v host.Value) bool                              { return false }
func (fakeHost) Identical(a, b host.Value) bool                          { return a == b }
func (fakeHost) HasType(v host.Value, tag host.TypeTag) bool             { return false }
func (fakeHost) Classify(v host.Value) (scalar, vector, object, na bool) { return true, false, false, false }
func (fakeHost) Identity(fn host.Value) uintptr                          { return 0 }
func (fakeHost) AsScalar(v host.Value) (host.Scalar, bool) {
	switch x := v.(type) {
	case int64:
		return host.Int(x), true
	default:
		return host.Scalar{}, false
	}
}
func (fakeHost) Box(s host.Scalar) host.Value { return s.I }

func newTestContext(t *testing.T) *engine.Context {
	t.Helper()
	ec, err := engine.NewContext(fakeHost{})
	require.NoError(t, err)
	return ec
}

func TestRirCompileAndEval(t *testing.T) {
	ec := newTestContext(t)
	one := ec.Pool.InternConstant(int64(1))
	two := ec.Pool.InternConstant(int64(2))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(one))
	asm.Emit(rir.OpPush, int32(two))
	asm.Emit(rir.OpAdd, 0)
	asm.Emit(rir.OpRet)
	body := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 1)

	table := engine.RirCompile(body, dispatch.Signature{}, nil)
	require.Equal(t, 1, table.Len())

	result, err := engine.RirEval(testutil.Context(t), ec, table.Baseline().Body, newFakeEnv())
	require.NoError(t, err)
	require.Equal(t, int64(3), result)
}

func TestRirDisassembleAndInvocationCount(t *testing.T) {
	ec := newTestContext(t)
	idx := ec.Pool.InternConstant(int64(5))
	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(idx))
	asm.Emit(rir.OpRet)
	body := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 0)

	table := engine.RirCompile(body, dispatch.Signature{}, nil)
	text := engine.RirDisassemble(body)
	require.Contains(t, text, "OpPush")
	require.Contains(t, text, "OpRet")

	table.Baseline().RegisterInvocation()
	counts := engine.RirInvocationCount(table)
	require.Equal(t, uint64(1), counts[0])

	report := engine.RirPrintInvocation(table)
	require.Contains(t, report, "slot 0")
}

func TestPirCompileFallsBackOnUnhandledOpcode(t *testing.T) {
	ec := newTestContext(t)
	// OpPromise becomes a Generic("promise") node, which pirbuild's
	// symbolic executor accepts but the lowerer cannot re-emit: an
	// end-to-end compile-abort that must leave table untouched rather
	// than error.
	asm := rir.NewAssembler()
	asm.Emit(rir.OpPromise, 0)
	asm.Emit(rir.OpForce)
	asm.Emit(rir.OpRet)
	body := rir.NewCode(1, asm.Bytes(), []*rir.Code{rir.NewCode(2, nil, nil, nil, 0, 0, 0, 0)}, nil, 4, 0, 0, 0)

	table := engine.RirCompile(body, dispatch.Signature{}, nil)
	ctx := dispatch.Assumptions{MaxArgs: 0, MinArgs: 0}

	fn, err := engine.PirCompile(testutil.Context(t), ec, table, ctx, dispatch.Signature{}, 0)
	require.NoError(t, err)
	require.Nil(t, fn)
	require.Equal(t, 1, table.Len())
}

func TestPirCompileInstallsSpecialization(t *testing.T) {
	ec := newTestContext(t)
	one := ec.Pool.InternConstant(int64(1))
	two := ec.Pool.InternConstant(int64(2))
	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(one))
	asm.Emit(rir.OpPush, int32(two))
	asm.Emit(rir.OpAdd, 0)
	asm.Emit(rir.OpRet)
	body := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 1)

	table := engine.RirCompile(body, dispatch.Signature{}, nil)
	ctx := dispatch.Assumptions{MaxArgs: 0, MinArgs: 0}

	fn, err := engine.PirCompile(testutil.Context(t), ec, table, ctx, dispatch.Signature{}, 0)
	require.NoError(t, err)
	require.NotNil(t, fn)
	require.Equal(t, 2, table.Len())

	result, err := engine.RirEval(testutil.Context(t), ec, fn.Body, newFakeEnv())
	require.NoError(t, err)
	require.Equal(t, int64(3), result)
}

func TestParseDebugFlagsRejectsUnknownName(t *testing.T) {
	_, err := engine.ParseDebugFlags("DryRun,NotAFlag")
	require.Error(t, err)

	flags, err := engine.ParseDebugFlags("DryRun,ShowWarnings")
	require.NoError(t, err)
	require.True(t, flags.Has(engine.DryRun))
	require.True(t, flags.Has(engine.ShowWarnings))
	require.False(t, flags.Has(engine.PreserveVersions))
}

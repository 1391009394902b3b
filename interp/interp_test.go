package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/internal/testutil"
	"github.com/scottcarroll/rir/interp"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// fakeEnv is a minimal host.Env for tests: a single flat map, no parent.
type fakeEnv struct{ vars map[string]host.Value }

func newFakeEnv() *fakeEnv { return &fakeEnv{vars: map[string]host.Value{}} }

func (e *fakeEnv) Get(sym string) (host.Value, bool) { v, ok := e.vars[sym]; return v, ok }
func (e *fakeEnv) Set(sym string, v host.Value)      { e.vars[sym] = v }
func (e *fakeEnv) SetSuper(sym string, v host.Value) { e.vars[sym] = v }
func (e *fakeEnv) Parent() host.Env                  { return nil }

// fakeHost implements host.Evaluator treating ints/floats/bools directly
// as scalars, with no object/vector support.
type fakeHost struct{}

func (fakeHost) NewEnv(parent host.Env) host.Env { return newFakeEnv() }
func (fakeHost) CallClosure(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("not used in this test")
}
func (fakeHost) CallBuiltin(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("not used in this test")
}
func (fakeHost) IsObject(v host.Value) bool                               { return false }
func (fakeHost) Identical(a, b host.Value) bool                           { return a == b }
func (fakeHost) HasType(v host.Value, tag host.TypeTag) bool              { return false }
func (fakeHost) Classify(v host.Value) (scalar, vector, object, na bool)  { return true, false, false, false }
func (fakeHost) Identity(fn host.Value) uintptr                          { return 0 }
func (fakeHost) AsScalar(v host.Value) (host.Scalar, bool) {
	switch x := v.(type) {
	case int64:
		return host.Int(x), true
	case float64:
		return host.Real(x), true
	case bool:
		return host.Logical(x), true
	default:
		return host.Scalar{}, false
	}
}
func (fakeHost) Box(s host.Scalar) host.Value {
	switch s.Kind {
	case host.ScalarInt:
		return s.I
	case host.ScalarReal:
		return s.R
	default:
		return s.L
	}
}

func TestEvalPushAddRet(t *testing.T) {
	p := pool.New()
	one := p.InternConstant(int64(1))
	two := p.InternConstant(int64(2))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(one))
	asm.Emit(rir.OpPush, int32(two))
	asm.Emit(rir.OpAdd, 0)
	asm.Emit(rir.OpRet)

	code := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 1)

	vm := &interp.VM{Pool: p, Host: fakeHost{}}
	result, err := interp.Eval(testutil.Context(t), vm, code, newFakeEnv())
	require.NoError(t, err)
	require.Equal(t, int64(3), result)
}

func TestEvalBranch(t *testing.T) {
	p := pool.New()
	vFalse := p.InternConstant(false)
	vA := p.InternConstant(int64(10))
	vB := p.InternConstant(int64(20))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(vFalse))
	lbl := asm.NewLabel()
	asm.EmitJump(rir.OpBrTrue, lbl)
	asm.Emit(rir.OpPush, int32(vA))
	asm.Emit(rir.OpRet)
	asm.Place(lbl)
	asm.Emit(rir.OpPush, int32(vB))
	asm.Emit(rir.OpRet)

	code := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 0)

	vm := &interp.VM{Pool: p, Host: fakeHost{}}
	result, err := interp.Eval(testutil.Context(t), vm, code, newFakeEnv())
	require.NoError(t, err)
	require.Equal(t, int64(10), result)
}

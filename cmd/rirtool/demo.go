package main

import (
	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/engine"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/rir"
)

// demoEnv is the minimal host.Env rirtool needs to drive a demo program:
// a flat map with no lexical parent, since every demo closure is a
// top-level function with no free variables.
type demoEnv struct{ vars map[string]host.Value }

func newDemoEnv() *demoEnv { return &demoEnv{vars: map[string]host.Value{}} }

func (e *demoEnv) Get(sym string) (host.Value, bool) { v, ok := e.vars[sym]; return v, ok }
func (e *demoEnv) Set(sym string, v host.Value)      { e.vars[sym] = v }
func (e *demoEnv) SetSuper(sym string, v host.Value) { e.vars[sym] = v }
func (e *demoEnv) Parent() host.Env                  { return nil }

// demoHost is a standalone host.Evaluator good enough to run the
// arithmetic-only demo bodies rirtool ships: scalars are plain int64s,
// nothing is ever an object, and CallClosure/CallBuiltin are never
// reached because the demo programs never call out.
type demoHost struct{}

func (demoHost) NewEnv(parent host.Env) host.Env { return newDemoEnv() }

func (demoHost) CallClosure(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("rirtool: demo programs never call out to a closure")
}

func (demoHost) CallBuiltin(fn host.Value, args []host.Value, names []string, callerEnv host.Env) (host.Value, error) {
	panic("rirtool: demo programs never call out to a builtin")
}

func (demoHost) IsObject(v host.Value) bool                  { return false }
func (demoHost) Identical(a, b host.Value) bool               { return a == b }
func (demoHost) HasType(v host.Value, tag host.TypeTag) bool  { return tag == host.TypeTagScalarInt }
func (demoHost) Classify(v host.Value) (scalar, vector, object, na bool) {
	return true, false, false, false
}
func (demoHost) Identity(fn host.Value) uintptr { return 0 }
func (demoHost) AsScalar(v host.Value) (host.Scalar, bool) {
	i, ok := v.(int64)
	if !ok {
		return host.Scalar{}, false
	}
	return host.Int(i), true
}
func (demoHost) Box(s host.Scalar) host.Value { return s.I }

// buildAddTable assembles `function(a) a + 41`, wraps it in a fresh
// dispatch table, and returns both the table and the engine Context whose
// pool its constants were interned into — the two pieces every other demo
// command needs.
func buildAddTable() (*dispatch.Table, *engine.Context) {
	ec, err := engine.NewContext(demoHost{})
	if err != nil {
		panic(err) // PIR_DEBUG is only ever set by the invoking developer
	}
	fortyOne := ec.Pool.InternConstant(int64(41))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpLdArg, 0)
	asm.Emit(rir.OpPush, int32(fortyOne))
	asm.Emit(rir.OpAdd, 0)
	asm.Emit(rir.OpRet)
	body := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 1, 0, 1)

	sig := dispatch.Signature{NumFormals: 1, HasDefault: []bool{false}}
	table := engine.RirCompile(body, sig, nil)
	return table, ec
}

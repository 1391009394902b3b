// Package interp implements the stack interpreter for RIR bytecode
// (§4.1, component E): a switch-dispatch loop over one Frame per call,
// variable resolution through a small direct-mapped cache, promise
// forcing, the call-instruction family with its trampoline into either a
// compiled dispatch.Table or the host, the arithmetic fast paths, and
// deopt entry.
package interp

import (
	"context"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/feedback"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// VM is the process-wide interpreter state: the shared pool and the
// host's collaborator. A VM has no per-call mutable state of its own, so
// it is safe to reuse across many Eval calls (though the source never
// calls it from more than one goroutine at a time, per §5).
type VM struct {
	Pool *pool.Pool
	Host host.Evaluator

	// Registry resolves an observed callee identity back to the Table it
	// came from, populated as dispatchCall observes compiled closures. May
	// be nil, in which case nothing is registered.
	Registry *dispatch.Registry

	// Optimize is called when invokeTable's dispatch lands on the baseline
	// slot and that Function's invocation counter reaches
	// OptimizeTriggerThreshold (§4.1 "the interpreter calls
	// registerInvocation ... if the chosen slot is 0 and the counter
	// reaches a trigger threshold, the interpreter invokes the closure
	// optimizer callback"). Set by package engine; nil disables
	// auto-optimization entirely (e.g. in tests exercising the
	// interpreter in isolation).
	Optimize func(ctx context.Context, tbl *dispatch.Table, targetCtx dispatch.Assumptions)
}

// CallStaticTarget is what OpStaticCall's pool index resolves to: a
// dispatch.Table bound once at lowering time (§4.1 "static_call_ is
// resolved once, at lowering, rather than re-resolved per call" — see
// DESIGN.md supplemented features).
type CallStaticTarget struct {
	Table *dispatch.Table
}

// Eval interprets code's body in env, having already bound args into
// code's local slots by the caller (formal binding is the compiler's job,
// expressed as ordinary OpStVar instructions at the top of the body).
func Eval(ctx context.Context, vm *VM, code *rir.Code, env host.Env) (host.Value, error) {
	f := NewFrame(code, env)
	return f.run(ctx, vm)
}

func (f *Frame) run(ctx context.Context, vm *VM) (host.Value, error) {
	instrs := f.code.Instrs()
	offs := f.code.Offsets()
	pcOf := make(map[int]int, len(offs)) // byte offset -> instruction index
	for i, o := range offs {
		pcOf[o] = i
	}

	for f.pc < len(instrs) {
		ins := instrs[f.pc]
		thisOff := offs[f.pc]

		switch ins.Op {
		case rir.OpPush:
			v, _ := vm.Pool.Constant(pool.Idx(ins.Imm[0]))
			f.push(v)

		case rir.OpPop:
			f.pop()
		case rir.OpDup:
			f.push(f.top())
		case rir.OpSwap:
			a, b := f.pop(), f.pop()
			f.push(a)
			f.push(b)
		case rir.OpPick:
			f.push(f.peek(int(ins.Imm[0])))
		case rir.OpPut:
			v := f.pop()
			d := int(ins.Imm[0])
			f.stack[f.sp-d] = v
		case rir.OpPull:
			n := int(ins.Imm[0])
			v := f.stack[f.sp-1]
			copy(f.stack[f.sp-n+1:f.sp], f.stack[f.sp-n:f.sp-1])
			f.stack[f.sp-n] = v

		case rir.OpLdVar:
			sym := f.symAt(vm, ins.Imm[0])
			v, ok := f.cache.lookup(f.env, sym)
			if !ok {
				return nil, fmt.Errorf("interp: unbound variable %q", sym)
			}
			if p, ok := v.(host.Promise); ok {
				var err error
				v, err = p.Force(vm.Host)
				if err != nil {
					return nil, err
				}
			}
			f.push(v)
		case rir.OpLdVarNoForce:
			sym := f.symAt(vm, ins.Imm[0])
			v, ok := f.cache.lookup(f.env, sym)
			if !ok {
				return nil, fmt.Errorf("interp: unbound variable %q", sym)
			}
			f.push(v)
		case rir.OpLdArg:
			f.push(f.locals[ins.Imm[0]])
		case rir.OpStVar:
			sym := f.symAt(vm, ins.Imm[0])
			f.env.Set(sym, f.top())
		case rir.OpStVarSuper:
			sym := f.symAt(vm, ins.Imm[0])
			f.env.SetSuper(sym, f.top())
		case rir.OpMissing:
			f.push(host.Missing{})
		case rir.OpLdFun:
			sym := f.symAt(vm, ins.Imm[0])
			v, ok := f.cache.lookup(f.env, sym)
			if !ok {
				return nil, fmt.Errorf("interp: could not find function %q", sym)
			}
			f.push(v)
		case rir.OpLdDDVar:
			sym := fmt.Sprintf("..%d", ins.Imm[0])
			v, ok := f.cache.lookup(f.env, sym)
			if !ok {
				return nil, fmt.Errorf("interp: unbound variadic %q", sym)
			}
			f.push(v)

		case rir.OpBr:
			f.pc = pcOf[offs[f.pc+1]+int(ins.Imm[0])]
			continue
		case rir.OpBrTrue:
			c := f.pop()
			if truthy(vm.Host, c) {
				f.pc = pcOf[offs[f.pc+1]+int(ins.Imm[0])]
				continue
			}
		case rir.OpBrFalse:
			c := f.pop()
			if !truthy(vm.Host, c) {
				f.pc = pcOf[offs[f.pc+1]+int(ins.Imm[0])]
				continue
			}
		case rir.OpRet:
			return f.pop(), nil
		case rir.OpBeginLoop:
			f.ctxs = append(f.ctxs, ctxRecord{stackDepth: f.sp, pc: f.pc})
		case rir.OpEndContext:
			f.ctxs = f.ctxs[:len(f.ctxs)-1]
		case rir.OpDeopt:
			return f.deopt(ctx, vm, pool.Idx(ins.Imm[0]))

		case rir.OpCall, rir.OpCallImplicit, rir.OpNamedCall, rir.OpNamedCallImplicit, rir.OpStaticCall:
			v, err := f.execCall(ctx, vm, ins, thisOff)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case rir.OpPromise:
			f.push(vm.newPromise(f.code.Child(int(ins.Imm[0])), f.env))
		case rir.OpForce:
			v := f.pop()
			if p, ok := v.(host.Promise); ok {
				fv, err := p.Force(vm.Host)
				if err != nil {
					return nil, err
				}
				f.push(fv)
			} else {
				f.push(v)
			}

		case rir.OpAdd, rir.OpSub, rir.OpMul, rir.OpDiv, rir.OpMod, rir.OpIDiv,
			rir.OpEq, rir.OpNe, rir.OpLt, rir.OpLe, rir.OpGt, rir.OpGe:
			if err := f.execBinop(ctx, vm, ins, thisOff); err != nil {
				return nil, err
			}
		case rir.OpBinopFallback:
			b, a := f.pop(), f.pop()
			name := opBuiltinName(ins.Imm[0])
			v, err := vm.Host.CallBuiltin(name, []host.Value{a, b}, nil, f.env)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case rir.OpRecordCall:
			callee := f.top()
			f.fb().Call(int(ins.Imm[0])).Record(vm.Host.Identity(callee))
		case rir.OpRecordBinop:
			a, b := f.peek(1), f.top()
			sa, va, oa, na := vm.Host.Classify(a)
			sb, vb, ob, nb := vm.Host.Classify(b)
			f.fb().Type(int(ins.Imm[0])).Observe(feedback.TypeObservation{
				Scalar: sa || sb, Vector: va || vb, Object: oa || ob, NASeen: na || nb,
			})

		case rir.OpMakeEnv:
			f.push(vm.Host.NewEnv(f.env))
		case rir.OpGetEnv:
			f.push(f.env)
		case rir.OpParentEnv:
			e := f.pop().(host.Env)
			f.push(e.Parent())
		case rir.OpSetEnv:
			f.env = f.pop().(host.Env)
			f.cache.invalidate()

		case rir.OpIsObj:
			f.push(vm.Host.IsObject(f.top()))
		case rir.OpCheckMissing:
			_, isMissing := f.top().(host.Missing)
			f.push(isMissing)
		case rir.OpIdentical:
			b, a := f.pop(), f.pop()
			f.push(vm.Host.Identical(a, b))
		case rir.OpIs:
			f.push(vm.Host.HasType(f.top(), host.TypeTag(ins.Imm[0])))

		case rir.OpMovLoc:
			f.locals[ins.Imm[1]] = f.locals[ins.Imm[0]]
		case rir.OpStLoc:
			f.locals[ins.Imm[0]] = f.pop()
		case rir.OpLdLoc:
			f.push(f.locals[ins.Imm[0]])

		default:
			logctx.Warn(ctx, "interp: unhandled opcode", logctx.String("op", ins.Op.String()))
		}

		f.pc++
	}
	panic(fmt.Sprintf("interp: fell off the end of code object %d without a terminator", f.code.ID()))
}

func (f *Frame) symAt(vm *VM, idx int32) string {
	v, _ := vm.Pool.Constant(pool.Idx(idx))
	s, _ := v.(string)
	return s
}

func truthy(ev host.Evaluator, v host.Value) bool {
	if s, ok := ev.AsScalar(v); ok {
		return !s.NA && (s.L || s.I != 0 || s.R != 0)
	}
	b, _ := v.(bool)
	return b
}

func opBuiltinName(imm int32) string {
	names := []string{"+", "-", "*", "/", "%%", "%/%", "==", "!=", "<", "<=", ">", ">="}
	if int(imm) < len(names) {
		return names[imm]
	}
	return "<binop>"
}

type promiseImpl struct {
	code   *rir.Code
	env    host.Env
	vm     *VM
	forced bool
	value  host.Value
}

func (vm *VM) newPromise(code *rir.Code, env host.Env) host.Promise {
	return &promiseImpl{code: code, env: env, vm: vm}
}

func (p *promiseImpl) Force(ev host.Evaluator) (host.Value, error) {
	if p.forced {
		return p.value, nil
	}
	v, err := Eval(context.Background(), p.vm, p.code, p.env)
	if err != nil {
		return nil, err
	}
	p.value, p.forced = v, true
	return v, nil
}

func (p *promiseImpl) Forced() (host.Value, bool) {
	if !p.forced {
		return nil, false
	}
	return p.value, true
}

package interp

import (
	"context"
	"fmt"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/feedback"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

// execCall implements the call-instruction family (§4.1 "Calling"). The
// encoding choices below (stack shape, immediate meaning) are this
// module's own, documented here rather than inherited, since the
// source's exact byte layout is not part of the language-level contract.
//
//   - OpCall / OpCallImplicit: stack is [..., callee, arg1, ..., argN];
//     Imm = [nargs, feedbackSlot]. Implicit args are host.Promise values
//     produced by a preceding OpPromise; regular args are already forced.
//   - OpNamedCall / OpNamedCallImplicit: stack is
//     [..., callee, names, arg1, ..., argN] where names is a []string
//     constant; Imm = [nargs, feedbackSlot].
//   - OpStaticCall: stack is [..., arg1, ..., argN] (no callee value);
//     Imm = [targetPoolIdx, nargs], and targetPoolIdx resolves to a
//     *CallStaticTarget interned at lowering time.
func (f *Frame) execCall(ctx context.Context, vm *VM, ins rir.Instr, siteOff int) (host.Value, error) {
	switch ins.Op {
	case rir.OpCall, rir.OpCallImplicit:
		nargs := int(ins.Imm[0])
		slot := int(ins.Imm[1])
		args := f.popN(nargs)
		callee := f.pop()
		return f.dispatchCall(ctx, vm, callee, args, nil, slot)

	case rir.OpNamedCall, rir.OpNamedCallImplicit:
		nargs := int(ins.Imm[0])
		slot := int(ins.Imm[1])
		args := f.popN(nargs)
		names, _ := f.pop().([]string)
		callee := f.pop()
		return f.dispatchCall(ctx, vm, callee, args, names, slot)

	case rir.OpStaticCall:
		targetIdx := pool.Idx(ins.Imm[0])
		nargs := int(ins.Imm[1])
		args := f.popN(nargs)
		raw, ok := vm.Pool.Constant(targetIdx)
		if !ok {
			return nil, fmt.Errorf("interp: static call target %d not interned", targetIdx)
		}
		target := raw.(*CallStaticTarget)
		return f.invokeTable(ctx, vm, target.Table, args, nil)

	default:
		panic("execCall: not a call opcode")
	}
}

func (f *Frame) popN(n int) []host.Value {
	out := make([]host.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = f.pop()
	}
	return out
}

// dispatchCall is the trampoline (§4.1 "callTrampoline"): it records
// call-feedback, then routes to a compiled dispatch.Table if the callee
// is one of ours, or out to the host otherwise.
func (f *Frame) dispatchCall(ctx context.Context, vm *VM, callee host.Value, args []host.Value, names []string, feedbackSlot int) (host.Value, error) {
	id := vm.Host.Identity(callee)
	if feedbackSlot >= 0 && feedbackSlot < f.fb().NumCalls() {
		f.fb().Call(feedbackSlot).Record(id)
	}

	if tbl, ok := calleeTable(callee); ok {
		if vm.Registry != nil {
			vm.Registry.Register(id, tbl)
		}
		return f.invokeTable(ctx, vm, tbl, args, names)
	}
	if isBuiltinName(callee) {
		return vm.Host.CallBuiltin(callee, args, names, f.env)
	}
	return vm.Host.CallClosure(callee, args, names, f.env)
}

// calleeTable recovers a dispatch.Table from a callee Value, for the
// (common) case where the callee is itself a compiled closure the engine
// produced. Host closures that were never compiled fall through to
// CallClosure instead.
func calleeTable(callee host.Value) (*dispatch.Table, bool) {
	tbl, ok := callee.(*dispatch.Table)
	return tbl, ok
}

func isBuiltinName(v host.Value) bool {
	_, ok := v.(string)
	return ok
}

// OptimizeTriggerThreshold is the baseline invocation count that arms the
// auto-optimize callback (§4.1 "the counter reaches a trigger threshold
// (exactly 2)").
const OptimizeTriggerThreshold = 2

// invokeTable runs the dispatch-table lookup and Function invocation
// (§4.2): inferred assumptions are derived from what the call site
// actually observed (argument count and, for now, nothing about
// per-position types — a caller wanting speculative typed dispatch must
// go through the PIR-inlined fast path instead of this trampoline). When
// dispatch lands on the baseline slot and its invocation count just
// reached OptimizeTriggerThreshold, this is also where the optimizer
// callback fires (§4.1).
func (f *Frame) invokeTable(ctx context.Context, vm *VM, tbl *dispatch.Table, args []host.Value, names []string) (host.Value, error) {
	inferred := dispatch.Assumptions{
		CorrectOrder:      len(names) == 0,
		NoExplicitMissing: !anyMissing(args),
		MaxArgs:           len(args),
		MinArgs:           len(args),
	}
	slot, fn := tbl.Dispatch(inferred)
	n := fn.RegisterInvocation()

	if slot == 0 && n == OptimizeTriggerThreshold && vm.Optimize != nil && !fn.MarkedForOptimization() {
		fn.MarkForOptimization()
		vm.Optimize(ctx, tbl, inferred)
	}

	callEnv := vm.Host.NewEnv(nil)
	bindArgs(callEnv, fn, args, names)

	return Eval(ctx, vm, fn.Body, callEnv)
}

func anyMissing(args []host.Value) bool {
	for _, a := range args {
		if _, ok := a.(host.Missing); ok {
			return true
		}
	}
	return false
}

func bindArgs(env host.Env, fn *dispatch.Function, args []host.Value, names []string) {
	for i := 0; i < fn.Sig.NumFormals; i++ {
		var v host.Value = host.Missing{}
		switch {
		case i < len(args) && len(names) == 0:
			v = args[i]
		case len(names) > 0:
			for j, n := range names {
				if positionalMatch(n, i) && j < len(args) {
					v = args[j]
				}
			}
		}
		env.Set(fmt.Sprintf("arg%d", i), v)
	}
}

// positionalMatch is a placeholder matching rule pending the engine's
// formal-name table; callers identify formals by position today.
func positionalMatch(name string, pos int) bool {
	return name == fmt.Sprintf("arg%d", pos)
}

// execBinop runs one arithmetic/comparison opcode, trying the scalar fast
// path and falling back to OpBinopFallback's slow dispatch when either
// operand is not a plain scalar.
func (f *Frame) execBinop(ctx context.Context, vm *VM, ins rir.Instr, siteOff int) error {
	b, a := f.pop(), f.pop()
	name := binopName(ins.Op)
	slot := int(ins.Imm[0])

	res := f.evalFastBinop(vm.Host, name, a, b, siteOff, func(msg string) {
		vm.warn(ctx, msg)
	})
	if !res.ok {
		v, err := vm.Host.CallBuiltin(name, []host.Value{a, b}, nil, f.env)
		if err != nil {
			return err
		}
		f.push(v)
		return nil
	}
	if slot >= 0 && slot < f.fb().NumTypes() {
		sa, va, oa, na := vm.Host.Classify(a)
		sb, vb, ob, nb := vm.Host.Classify(b)
		f.fb().Type(slot).Observe(feedback.TypeObservation{
			Scalar: sa || sb, Vector: va || vb, Object: oa || ob, NASeen: na || nb,
		})
	}
	f.push(res.value)
	return nil
}

func binopName(op rir.Op) string {
	switch op {
	case rir.OpAdd:
		return "add"
	case rir.OpSub:
		return "sub"
	case rir.OpMul:
		return "mul"
	case rir.OpDiv:
		return "div"
	case rir.OpMod:
		return "mod"
	case rir.OpIDiv:
		return "idiv"
	case rir.OpEq:
		return "eq"
	case rir.OpNe:
		return "ne"
	case rir.OpLt:
		return "lt"
	case rir.OpLe:
		return "le"
	case rir.OpGt:
		return "gt"
	case rir.OpGe:
		return "ge"
	default:
		return ""
	}
}

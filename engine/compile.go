package engine

import (
	"context"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/interp"
	"github.com/scottcarroll/rir/lower"
	"github.com/scottcarroll/rir/optimize"
	"github.com/scottcarroll/rir/rir"
)

// RirCompile attaches a dispatch table with a baseline Function to an
// already-compiled bytecode body (§6 "rir_compile(ast_or_closure, env) ->
// closure-with-bytecode-body"). Producing body from a surface-language
// AST is the front compiler's job, explicitly outside this core (§1
// Non-goals, §2 "Flow"); RirCompile's job starts at the bytecode.
func RirCompile(body *rir.Code, sig dispatch.Signature, defaults []*rir.Code) *dispatch.Table {
	baseline := dispatch.NewFunction(body, dispatch.Baseline(), sig, defaults)
	return dispatch.NewTable(baseline, dispatch.DefaultCapacity)
}

// RirEval interprets code in env (§6 "rir_eval(closure-or-code, env) ->
// value"). Argument binding into code's locals is the caller's
// responsibility (see package interp's Eval doc).
func RirEval(ctx context.Context, ec *Context, code *rir.Code, env host.Env) (host.Value, error) {
	return interp.Eval(ctx, ec.VM, code, env)
}

// PirCompile optimizes table's baseline in place under targetCtx (§6
// "pir_compile(closure, name?, debug_flags?) -> closure"): it builds a
// ClosureVersion via symbolic execution, runs the optimizer pipeline,
// lowers back to RIR, and — unless flags has DryRun set — installs the
// result as a new specialized Function in table.
//
// Per §7's error-handling table, a build or verify failure is a
// compile-abort: it is logged (when flags has ShowWarnings) and table is
// left untouched, never surfaced to the caller as an error.
func PirCompile(ctx context.Context, ec *Context, table *dispatch.Table, targetCtx dispatch.Assumptions, sig dispatch.Signature, flags DebugFlags) (*dispatch.Function, error) {
	key := fmt.Sprintf("%p|%+v", table, targetCtx)
	result, err, _ := ec.compileGroup.Do(key, func() (any, error) {
		fn := pirCompileOnce(ctx, ec, table, targetCtx, sig, flags)
		return fn, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*dispatch.Function), nil
}

func pirCompileOnce(ctx context.Context, ec *Context, table *dispatch.Table, targetCtx dispatch.Assumptions, sig dispatch.Signature, flags DebugFlags) *dispatch.Function {
	baseline := table.Baseline()

	cv, err := ec.Builder.Build(baseline, targetCtx)
	if err != nil {
		warnAbort(ctx, flags, "pirbuild", err)
		return nil
	}

	pipeline := optimize.Pipeline{Debug: flags.Has(ShowWarnings) || flags.Has(TracePasses)}
	if err := pipeline.Run(ctx, cv); err != nil {
		warnAbort(ctx, flags, "optimize", err)
		return nil
	}

	code, err := lower.Lower(cv, ec.Pool, baseline.Body)
	if err != nil {
		warnAbort(ctx, flags, "lower", err)
		return nil
	}

	fn := dispatch.NewFunction(code, targetCtx, sig, nil)

	if flags.Has(DryRun) {
		return fn
	}
	if err := table.Install(fn); err != nil {
		// ErrNotStrongerThanBaseline only: targetCtx was not actually
		// stronger than baseline, so there is nothing useful to install.
		warnAbort(ctx, flags, "install", err)
		return nil
	}
	return fn
}

func warnAbort(ctx context.Context, flags DebugFlags, stage string, err error) {
	if !flags.Has(ShowWarnings) {
		return
	}
	logctx.Warn(ctx, "engine: pir_compile aborted", logctx.String("stage", stage), logctx.Any("error", err))
}


// Package engine is the host-facing façade (§6, "External interfaces"):
// rir_compile/pir_compile/rir_eval and the read-only introspection and
// debug-flag entry points, wiring together package pool, dispatch,
// pirbuild, optimize, lower, and interp behind the narrow surface a host
// embedding this core actually calls.
package engine

import (
	"context"
	"os"
	"sync/atomic"

	"go.brendoncarroll.net/stdctx/logctx"
	"golang.org/x/sync/singleflight"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/host"
	"github.com/scottcarroll/rir/interp"
	"github.com/scottcarroll/rir/pirbuild"
	"github.com/scottcarroll/rir/pool"
)

// Context is the process-wide state a host creates once and shares across
// every rir_compile/pir_compile/rir_eval call (§5 "Shared-resource
// policy": the global pool, in-process state is process-wide). It is not
// safe for concurrent use from more than one goroutine, matching this
// core's single-threaded cooperative scheduling (§5).
type Context struct {
	Pool    *pool.Pool
	VM      *interp.VM
	Builder *pirbuild.Builder
	cache   *pirbuild.Cache

	// Registry resolves an observed callee identity back to the Table it
	// came from; shared between VM (which populates it) and Builder
	// (which consults it for monomorphic call-site feedback).
	Registry *dispatch.Registry

	debug atomic.Uint32

	// compileGroup dedupes concurrent PirCompile calls that target the
	// same (table, Assumptions) pair, so two callers racing to trigger
	// the same specialization only do the build/optimize/lower work once
	// and both observe the same installed Function (§5 ordering
	// guarantee: a slot is never partially installed).
	compileGroup singleflight.Group
}

// DebugFlagsEnvVar is the environment variable PIR_DEBUG consumes (§6).
const DebugFlagsEnvVar = "PIR_DEBUG"

// defaultInlineCacheSize bounds pirbuild's speculative-inline memoization
// cache; see pirbuild.Cache.
const defaultInlineCacheSize = 256

// NewContext builds a Context over a fresh pool and the given host
// collaborator. Debug flags are read from PIR_DEBUG if set; an unknown
// flag name is returned as an error rather than exiting the process (see
// ParseDebugFlags).
func NewContext(ev host.Evaluator) (*Context, error) {
	pl := pool.New()
	cache := pirbuild.NewCache(defaultInlineCacheSize)
	registry := dispatch.NewRegistry()
	vm := &interp.VM{Pool: pl, Host: ev, Registry: registry}
	ec := &Context{
		Pool:     pl,
		VM:       vm,
		Builder:  pirbuild.NewBuilder(pl, cache, registry),
		cache:    cache,
		Registry: registry,
	}
	vm.Optimize = func(ctx context.Context, tbl *dispatch.Table, targetCtx dispatch.Assumptions) {
		if _, err := PirCompile(ctx, ec, tbl, targetCtx, tbl.Baseline().Sig, ec.PirDebugFlags()); err != nil {
			logctx.Warn(ctx, "engine: auto pir_compile failed", logctx.Any("error", err))
		}
	}
	if raw, ok := os.LookupEnv(DebugFlagsEnvVar); ok {
		flags, err := ParseDebugFlags(raw)
		if err != nil {
			return nil, err
		}
		ec.PirSetDebugFlags(flags)
	}
	return ec, nil
}

// PirSetDebugFlags sets the process-wide debug mask (§6
// "pir_setDebugFlags(int)").
func (ec *Context) PirSetDebugFlags(flags DebugFlags) {
	ec.debug.Store(uint32(flags))
}

// PirDebugFlags returns the current process-wide debug mask (§6
// "pir_debugFlags(...)").
func (ec *Context) PirDebugFlags() DebugFlags {
	return DebugFlags(ec.debug.Load())
}

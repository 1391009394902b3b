package optimize

import (
	"context"

	"go.brendoncarroll.net/stdctx/logctx"

	"github.com/scottcarroll/rir/pir"
)

// Pipeline runs the minimal required optimizer passes in the order the
// spec lists them (§4.5), re-verifying §3's invariants after each pass
// when debug is set (the engine façade sets it from the ShowWarnings or
// TracePasses debug flag). It logs only a pass that aborts or a failed
// verify; nothing is logged for a pass that succeeds.
type Pipeline struct {
	Debug bool
}

// Run optimizes cv in place.
func (p Pipeline) Run(ctx context.Context, cv *pir.ClosureVersion) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"const-prop", func() error { return ConstProp(cv) }},
		{"type-refine", func() error {
			types := RefineTypes(cv)
			LiftSafeBuiltins(cv, types)
			return nil
		}},
		{"dead-code-elim", func() error { DeadCodeElim(cv); return nil }},
		{"scope-escape", func() error { Escaping(cv); return nil }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			logctx.Warn(ctx, "optimize: pass aborted", logctx.String("pass", step.name), logctx.Any("error", err))
			return err
		}
		if p.Debug {
			if err := Verify(cv); err != nil {
				logctx.Warn(ctx, "optimize: verify failed after pass", logctx.String("pass", step.name), logctx.Any("error", err))
				return err
			}
		}
	}
	return nil
}

package main

import (
	"context"
	"strconv"

	"go.brendoncarroll.net/star"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/engine"
)

var argParam = star.Param[int64]{
	Name:    "arg",
	Default: star.Ptr("1"),
	Parse:   func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
}

// dispatchAssumptions is the one non-baseline point in the Assumptions
// lattice rirtool's optimize command specializes the demo closure for:
// exactly one required argument, strictly stronger than Baseline()'s
// {MaxArgs: -1, MinArgs: 0}.
func dispatchAssumptions() dispatch.Assumptions {
	return dispatch.Assumptions{MaxArgs: 1, MinArgs: 1}
}

var disasmCmd = star.Command{
	Metadata: star.Metadata{
		Short: "disassemble the baseline body of the bundled demo closure",
	},
	F: func(c star.Context) error {
		table, _ := buildAddTable()
		c.Printf("%s", engine.RirDisassemble(table.Baseline().Body))
		return nil
	},
}

var evalCmd = star.Command{
	Metadata: star.Metadata{
		Short: "evaluate the bundled demo closure's baseline body against --arg",
	},
	Flags: []star.IParam{argParam},
	F: func(c star.Context) error {
		table, ec := buildAddTable()
		env := newDemoEnv()
		env.Set("a", argParam.Load(c))
		out, err := engine.RirEval(c.Context, ec, table.Baseline().Body, env)
		if err != nil {
			return err
		}
		c.Printf("%v\n", out)
		return nil
	},
}

var invocationsCmd = star.Command{
	Metadata: star.Metadata{
		Short: "run the demo closure a few times, then print dispatch-table invocation counts",
	},
	Flags: []star.IParam{argParam},
	F: func(c star.Context) error {
		table, ec := buildAddTable()
		env := newDemoEnv()
		env.Set("a", argParam.Load(c))
		for i := 0; i < 3; i++ {
			if _, err := engine.RirEval(c.Context, ec, table.Baseline().Body, env); err != nil {
				return err
			}
			table.Baseline().RegisterInvocation()
		}
		c.Printf("%s", engine.RirPrintInvocation(table))
		return nil
	},
}

var optimizeCmd = star.Command{
	Metadata: star.Metadata{
		Short: "run pir_compile over the demo closure and print the specialized body",
	},
	F: func(c star.Context) error {
		table, ec := buildAddTable()
		fn, err := engine.PirCompile(c.Context, ec, table, dispatchAssumptions(), table.Baseline().Sig, engine.ShowWarnings)
		if err != nil {
			return err
		}
		if fn == nil {
			c.Printf("pir_compile aborted; baseline unchanged\n")
			return nil
		}
		c.Printf("%s", engine.RirDisassemble(fn.Body))
		return nil
	},
}

func runRoot(ctx context.Context) error {
	return star.Main(ctx, rootCmd)
}

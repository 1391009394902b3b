// Command rirtool is a read-only introspection CLI over the engine
// package: disassembly, evaluation, invocation counts, and on-demand
// optimization of a small bundled demo closure. It is a developer tool
// that sits outside the compiler core, not the host process's own
// command-line surface.
package main

import (
	"context"
	"fmt"
	"os"

	"go.brendoncarroll.net/star"
)

var rootCmd = star.NewDir(star.Metadata{
	Short: "inspect the rir/pir compiler engine",
}, map[star.Symbol]star.Command{
	"disasm":      disasmCmd,
	"eval":        evalCmd,
	"invocations": invocationsCmd,
	"optimize":    optimizeCmd,
})

func main() {
	if err := runRoot(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package engine

import (
	"fmt"
	"strings"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/rir"
)

// RirDisassemble renders code's instruction stream as one line per
// instruction: byte offset, opcode name, and its immediates (§6
// "rir_disassemble ... read-only introspection").
func RirDisassemble(code *rir.Code) string {
	var b strings.Builder
	offs := code.Offsets()
	instrs := code.Instrs()
	for i, ins := range instrs {
		fmt.Fprintf(&b, "%4d  %-16s", offs[i], ins.Op)
		for _, imm := range ins.Imm {
			fmt.Fprintf(&b, " %d", imm)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RirInvocationCount returns the invocation count of every populated slot
// in table, sized to table.Capacity() (§6 "rir_invocation_count").
func RirInvocationCount(table *dispatch.Table) []uint64 {
	return table.InvocationCounts()
}

// RirPrintInvocation renders table's slots and their invocation counts,
// one line per slot, for interactive inspection (§6
// "rir_printInvocation").
func RirPrintInvocation(table *dispatch.Table) string {
	var b strings.Builder
	counts := table.InvocationCounts()
	for i, n := range counts {
		fn := table.Slot(i)
		if fn == nil {
			fmt.Fprintf(&b, "slot %d: (empty)\n", i)
			continue
		}
		fmt.Fprintf(&b, "slot %d: %d invocation(s), ctx=%+v\n", i, n, fn.Ctx)
	}
	return b.String()
}

package rir

import (
	"fmt"
	"strings"
)

// Disassemble renders a Code object's instruction stream as text, one
// instruction per line prefixed with its byte offset. This backs the
// host-facing rir_disassemble introspection entry point (§6); it never
// mutates c and never fails.
func Disassemble(c *Code) string {
	var sb strings.Builder
	off := 0
	for off < len(c.bytes) {
		ins, next := Decode(c.bytes, off)
		fmt.Fprintf(&sb, "%6d  %-14s %v\n", off, ins.Op, ins.Imm)
		off = next
	}
	for i, ch := range c.children {
		fmt.Fprintf(&sb, "-- promise %d --\n%s", i, Disassemble(ch))
	}
	return sb.String()
}

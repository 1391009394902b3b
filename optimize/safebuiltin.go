package optimize

import "github.com/scottcarroll/rir/pir"

// safeBinops is the whitelist of binop_fallback operator names this pass
// is willing to lift to the environment-free fast path (§4.5 "Safe-builtin
// lifting: replace CallBuiltin with CallSafeBuiltin ... for a whitelist of
// builtins when argument types prove non-object"). Our model represents a
// generic builtin dispatch as a pir.Generic whose OpName is the operator
// name pirbuild recovered for it ("add", "lt", ...) and the fast path as
// pir.CallSafeBuiltin; lifting one into the other is this whitelist plus a
// type-proof check.
var safeBinops = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true,
	"mod": true, "idiv": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
}

// LiftSafeBuiltins rewrites a Generic(op, args) whose op is in safeBinops
// into a CallSafeBuiltin when types proves every argument non-object, shedding
// the environment-dependence effects a generic builtin call must
// conservatively carry.
func LiftSafeBuiltins(cv *pir.ClosureVersion, types map[pir.ValueID]pir.Type) {
	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
			g, ok := cur.Get().(pir.Generic)
			if !ok || !safeBinops[g.OpName] {
				continue
			}
			allSafe := len(g.Operands) > 0
			for _, op := range g.Operands {
				t, known := types[op]
				if !known || t.MaybeObject() {
					allSafe = false
					break
				}
			}
			if !allSafe {
				continue
			}
			cur.Set(pir.NewCallSafeBuiltin(g.ID(), g.OpName, g.Operands, g.ResultType()))
		}
	}
}

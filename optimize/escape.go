package optimize

import "github.com/scottcarroll/rir/pir"

// Escaping computes, for every MkEnv in cv, whether its environment value
// can leak to a caller or a closure the current ClosureVersion does not
// fully control (§4.5 "Scope escape analysis: a MkEnv whose environment
// value never leaks ... and whose contents have no observable side
// channels may be eliminated, hoisting its bindings into locals"). This
// pass only computes the escaping set; no pass in this module, including
// the lowerer (package lower), eliminates a MkEnv or hoists its bindings
// into register slots, and Pipeline does not use the returned set.
func Escaping(cv *pir.ClosureVersion) map[pir.ValueID]bool {
	escapes := map[pir.ValueID]bool{}
	mkEnvs := map[pir.ValueID]bool{}
	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
			if m, ok := cur.Get().(pir.MkEnv); ok {
				mkEnvs[m.ID()] = true
			}
		}
	}

	markEscaping := func(id pir.ValueID) {
		if mkEnvs[id] {
			escapes[id] = true
		}
	}

	for _, blk := range cv.Blocks {
		for cur := blk.Instrs().Begin(); cur.Valid(); cur = cur.Next() {
			switch x := cur.Get().(type) {
			case pir.MkEnv:
				if x.Parent >= 0 {
					markEscaping(x.Parent)
				}
			case pir.CallDynamic:
				markEscaping(x.Callee)
				for _, a := range x.Args {
					markEscaping(a)
				}
			case pir.CallStatic:
				for _, a := range x.Args {
					markEscaping(a)
				}
			case pir.Return:
				markEscaping(x.Value)
			case pir.Generic:
				// a Generic opaquely reads/writes the environment (get_env_,
				// set_env_, parent_env_ among them), so any MkEnv it touches
				// must be treated as escaping.
				for _, op := range x.Operands {
					markEscaping(op)
				}
			}
		}
	}
	return escapes
}

package interp

import "github.com/scottcarroll/rir/host"

// varCacheSize is the number of direct-mapped slots in a Frame's variable
// cache. The source keeps a small fixed-size direct-mapped cache rather
// than an LRU: a miss is only ever as expensive as the uncached walk, so
// there is no correctness reason to pay for LRU bookkeeping (see
// DESIGN.md's supplemented-features note).
const varCacheSize = 5

type cacheLine struct {
	valid bool
	sym   string
	owner host.Env
}

// varCache memoizes, per symbol, which frame in the Env parent chain last
// satisfied a lookup, so a repeated lookup of a hot local/free variable
// does not re-walk the chain from the innermost frame every time.
type varCache struct {
	lines [varCacheSize]cacheLine
}

func hashSym(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func (c *varCache) slot(sym string) int { return int(hashSym(sym) % varCacheSize) }

// lookup resolves sym starting at env, consulting the cache first. It
// returns the value and whether it was found, same as a plain Env.Get
// walk, but prefers re-querying the last-known owner frame directly.
func (c *varCache) lookup(env host.Env, sym string) (host.Value, bool) {
	i := c.slot(sym)
	line := c.lines[i]
	if line.valid && line.sym == sym {
		if v, ok := line.owner.Get(sym); ok {
			return v, true
		}
		// stale: the binding moved or was removed; fall through to a
		// full walk and refresh the cache below.
	}
	for e := env; e != nil; e = e.Parent() {
		if v, ok := e.Get(sym); ok {
			c.lines[i] = cacheLine{valid: true, sym: sym, owner: e}
			return v, true
		}
	}
	return nil, false
}

// invalidate drops every cached owner. Called on OpSetEnv, which
// replaces the current environment wholesale (§3 "OpSetEnv ... invalidates
// the variable cache").
func (c *varCache) invalidate() {
	*c = varCache{}
}

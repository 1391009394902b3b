package interp

import (
	"math"

	"github.com/scottcarroll/rir/host"
)

// binopResult is the outcome of attempting the fast path for one of the
// arithmetic/comparison opcodes.
type binopResult struct {
	value host.Value
	ok    bool // false means: fall back to OpBinopFallback
}

// evalFastBinop computes op on two scalars if both operands convert via
// AsScalar, handling NA propagation (any NA operand yields an NA result of
// the appropriate kind rather than a value) and int overflow (an int
// add/sub/mul result outside int32 range yields an integer NA and fires
// the call site's one-shot overflow warning).
func (f *Frame) evalFastBinop(ev host.Evaluator, opName string, a, b host.Value, siteOff int, warn func(string)) binopResult {
	sa, ok := ev.AsScalar(a)
	if !ok {
		return binopResult{}
	}
	sb, ok := ev.AsScalar(b)
	if !ok {
		return binopResult{}
	}

	kind := promote(sa.Kind, sb.Kind)
	if sa.NA || sb.NA {
		return binopResult{value: ev.Box(host.NAScalar(resultKind(opName, kind))), ok: true}
	}

	switch opName {
	case "add", "sub", "mul":
		return binopResult{value: ev.Box(f.arith(opName, sa, sb, kind, siteOff, warn)), ok: true}
	case "div":
		return binopResult{value: ev.Box(host.Real(asReal(sa) / asReal(sb))), ok: true}
	case "idiv":
		if kind == host.ScalarInt && asInt(sb) == 0 {
			return binopResult{value: ev.Box(host.NAScalar(host.ScalarInt)), ok: true}
		}
		return binopResult{value: ev.Box(host.Int(int64(math.Floor(asReal(sa) / asReal(sb))))), ok: true}
	case "mod":
		if kind == host.ScalarInt {
			if asInt(sb) == 0 {
				return binopResult{value: ev.Box(host.NAScalar(host.ScalarInt)), ok: true}
			}
			m := asInt(sa) % asInt(sb)
			if m != 0 && (m < 0) != (asInt(sb) < 0) {
				m += asInt(sb)
			}
			return binopResult{value: ev.Box(host.Int(m)), ok: true}
		}
		m := math.Mod(asReal(sa), asReal(sb))
		if m != 0 && (m < 0) != (asReal(sb) < 0) {
			m += asReal(sb)
		}
		return binopResult{value: ev.Box(host.Real(m)), ok: true}
	case "eq", "ne", "lt", "le", "gt", "ge":
		return binopResult{value: ev.Box(host.Logical(compare(opName, sa, sb, kind))), ok: true}
	default:
		return binopResult{}
	}
}

func promote(a, b host.ScalarKind) host.ScalarKind {
	if a == host.ScalarReal || b == host.ScalarReal {
		return host.ScalarReal
	}
	if a == host.ScalarInt || b == host.ScalarInt {
		return host.ScalarInt
	}
	return host.ScalarLogical
}

func resultKind(opName string, kind host.ScalarKind) host.ScalarKind {
	switch opName {
	case "eq", "ne", "lt", "le", "gt", "ge":
		return host.ScalarLogical
	case "div":
		return host.ScalarReal
	default:
		return kind
	}
}

func asInt(s host.Scalar) int64 {
	switch s.Kind {
	case host.ScalarInt:
		return s.I
	case host.ScalarReal:
		return int64(s.R)
	default:
		if s.L {
			return 1
		}
		return 0
	}
}

func asReal(s host.Scalar) float64 {
	switch s.Kind {
	case host.ScalarInt:
		return float64(s.I)
	case host.ScalarReal:
		return s.R
	default:
		if s.L {
			return 1
		}
		return 0
	}
}

// arith performs add/sub/mul. Integer arithmetic whose result overflows
// int32 range produces an integer NA with a one-shot warning, rather than
// wrapping.
func (f *Frame) arith(opName string, sa, sb host.Scalar, kind host.ScalarKind, siteOff int, warn func(string)) host.Scalar {
	if kind != host.ScalarInt {
		ra, rb := asReal(sa), asReal(sb)
		switch opName {
		case "add":
			return host.Real(ra + rb)
		case "sub":
			return host.Real(ra - rb)
		default:
			return host.Real(ra * rb)
		}
	}

	ia, ib := asInt(sa), asInt(sb)
	var result int64
	switch opName {
	case "add":
		result = ia + ib
	case "sub":
		result = ia - ib
	default:
		result = ia * ib
	}
	if result > math.MaxInt32 || result < math.MinInt32 {
		if !f.markOverflowWarned(siteOff) {
			warn("NAs produced by integer overflow")
		}
		return host.NAScalar(host.ScalarInt)
	}
	return host.Int(result)
}

func compare(opName string, sa, sb host.Scalar, kind host.ScalarKind) bool {
	if kind == host.ScalarReal {
		ra, rb := asReal(sa), asReal(sb)
		switch opName {
		case "eq":
			return ra == rb
		case "ne":
			return ra != rb
		case "lt":
			return ra < rb
		case "le":
			return ra <= rb
		case "gt":
			return ra > rb
		default:
			return ra >= rb
		}
	}
	ia, ib := asInt(sa), asInt(sb)
	switch opName {
	case "eq":
		return ia == ib
	case "ne":
		return ia != ib
	case "lt":
		return ia < ib
	case "le":
		return ia <= ib
	case "gt":
		return ia > ib
	default:
		return ia >= ib
	}
}

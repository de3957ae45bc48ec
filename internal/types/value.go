package types

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// ParseOp accepts both SQL and Go spellings of the operators.
func ParseOp(s string) (Op, error) {
	switch s {
	case "=", "==":
		return OpEq, nil
	case "!=", "<>":
		return OpNe, nil
	case "<":
		return OpLt, nil
	case "<=":
		return OpLe, nil
	case ">":
		return OpGt, nil
	case ">=":
		return OpGe, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Normalize converts Go scalars to the canonical value types: every integer
// width becomes int64 and float32 becomes float64. Unsigned values above
// math.MaxInt64 and unsupported values are returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
	case uintptr:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
	case float32:
		return float64(x)
	}
	return v
}

// KindOf reports the kind of v after normalization.
func KindOf(v any) Kind {
	switch Normalize(v).(type) {
	case int64:
		return KindInt
	case string:
		return KindString
	case float64:
		return KindFloat
	case bool:
		return KindBool
	default:
		return KindInvalid
	}
}

// NormalizeRow returns a normalized copy of r.
func NormalizeRow(r Row) Row {
	out := make(Row, len(r))
	for i, v := range r {
		out[i] = Normalize(v)
	}
	return out
}

func numeric(k Kind) bool {
	return k == KindInt || k == KindFloat
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compare returns -1, 0 or +1. Integers and floats compare numerically;
// any other pair of different kinds fails with ErrTypeMismatch.
func Compare(a, b any) (int, error) {
	a, b = Normalize(a), Normalize(b)
	ka, kb := KindOf(a), KindOf(b)
	if ka == KindInvalid || kb == KindInvalid {
		return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrTypeMismatch, a, b)
	}
	if ka != kb {
		if numeric(ka) && numeric(kb) {
			return cmp.Compare(asFloat(a), asFloat(b)), nil
		}
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, ka, kb)
	}
	switch ka {
	case KindInt:
		return cmp.Compare(a.(int64), b.(int64)), nil
	case KindFloat:
		return cmp.Compare(a.(float64), b.(float64)), nil
	case KindString:
		return cmp.Compare(a.(string), b.(string)), nil
	default:
		return cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool))), nil
	}
}

// Order is a total order used for sorting: values of different kinds order
// by kind, values of the same kind (or two numbers) by Compare.
func Order(a, b any) int {
	c, err := Compare(a, b)
	if err == nil {
		return c
	}
	return cmp.Compare(KindOf(a), KindOf(b))
}

// Match evaluates "a op b".
func Match(op Op, a, b any) (bool, error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %d", op)
}

// FormatValue renders a value the way it is shown in table grids.
func FormatValue(v any) string {
	switch x := Normalize(v).(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// formatFloat always keeps a fraction or exponent so the text reads back as
// a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'N' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

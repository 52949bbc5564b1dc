package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindEmpty Kind = iota
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "empty"
	}
}

// Numeric reports whether k is KindInt or KindFloat.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// InferKind classifies values, ignoring nils. All int64 gives KindInt, any
// float64 mixed with numbers gives KindFloat, any string gives KindString and
// no present value gives KindEmpty.
func InferKind(values []any) Kind {
	k := KindEmpty
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			if k == KindEmpty {
				k = KindInt
			}
		case float64:
			if k != KindString {
				k = KindFloat
			}
		default:
			return KindString
		}
	}
	return k
}

// Kinds returns the inferred kind of every column, in column order.
func (f *Frame) Kinds() []Kind {
	out := make([]Kind, len(f.names))
	for j := range f.names {
		col := make([]any, len(f.rows))
		for i, r := range f.rows {
			col[i] = r[j]
		}
		out[j] = InferKind(col)
	}
	return out
}

// KindOf returns the inferred kind of column col.
func (f *Frame) KindOf(col string) (Kind, error) {
	vals, err := f.Column(col)
	if err != nil {
		return KindEmpty, err
	}
	return InferKind(vals), nil
}

// ToFloat converts a numeric cell to float64. Strings are not parsed.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// KeyString renders a cell canonically for key comparison. Integral floats
// render like ints so that int64(2020), float64(2020) and "2020" agree. The
// boolean is false for nil cells, which never take part in a match.
func KeyString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	default:
		return fmt.Sprint(x), true
	}
}

// IsBlank reports whether v is nil or a whitespace-only string.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

package builtin

import (
	"fmt"
	"math"
	"strconv"

	"evadoption/internal/frame"
)

// Coerce converts string cells into typed values.
//
// Types maps a column to "int", "float" or "string". With Auto, every other
// column whose string cells all parse as integers becomes int64, else as
// numbers becomes float64; anything else stays text. A value that does not
// parse as its column's type is left unchanged and passed to OnFail.
type Coerce struct {
	Types  map[string]string
	Auto   bool
	OnFail func(column string, row int, raw any)
}

// Apply converts f in place. Unknown columns or types in Types fail before
// any cell changes.
func (c Coerce) Apply(f *frame.Frame) (*frame.Frame, error) {
	for col, typ := range c.Types {
		if !f.Has(col) {
			return nil, fmt.Errorf("coerce: %w: %q", frame.ErrColumnNotFound, col)
		}
		switch typ {
		case "int", "float", "string":
		default:
			return nil, fmt.Errorf("coerce: column %q: unknown type %q", col, typ)
		}
	}
	for j, col := range f.Names() {
		typ, ok := c.Types[col]
		if !ok {
			if !c.Auto {
				continue
			}
			typ = inferType(f, j)
		}
		if typ == "" {
			continue
		}
		for i, row := range f.Rows() {
			v := row[j]
			if v == nil {
				continue
			}
			out, ok := convert(v, typ)
			if !ok {
				if c.OnFail != nil {
					c.OnFail(col, i, v)
				}
				continue
			}
			row[j] = out
		}
	}
	return f, nil
}

// inferType returns "int", "float" or "" for column j.
func inferType(f *frame.Frame, j int) string {
	allInt, sawString := true, false
	for _, row := range f.Rows() {
		switch v := row[j].(type) {
		case string:
			sawString = true
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			allInt = false
			if _, ok := parseFloat(v); !ok {
				return ""
			}
		case float64:
			allInt = false
		}
	}
	switch {
	case !sawString:
		return ""
	case allInt:
		return "int"
	default:
		return "float"
	}
}

// convert casts v to typ. Integral floats and "2020.0" become int64; ints
// widen to float64; any cell renders to text for "string".
func convert(v any, typ string) (any, bool) {
	switch typ {
	case "int":
		switch x := v.(type) {
		case int64:
			return x, true
		case float64:
			if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
				return int64(x), true
			}
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, true
			}
			if fl, ok := parseFloat(x); ok && fl == math.Trunc(fl) && math.Abs(fl) < 1<<53 {
				return int64(fl), true
			}
		}
	case "float":
		switch x := v.(type) {
		case int64:
			return float64(x), true
		case float64:
			return x, true
		case string:
			return parseFloat(x)
		}
	case "string":
		s, _ := frame.KeyString(v)
		return s, true
	}
	return v, false
}

// parseFloat accepts finite decimal numbers only; "NaN" and "Inf" are text.
func parseFloat(s string) (float64, bool) {
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return 0, false
	}
	return fl, true
}

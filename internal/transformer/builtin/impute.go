package builtin

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/stat"

	"evadoption/internal/frame"
)

var (
	// ErrNoPresentValues means a column to impute has no value to derive a
	// fill from.
	ErrNoPresentValues = errors.New("impute: column has no present values")

	// ErrNotNumeric means a numeric column still holds text, usually
	// because coerce did not run before impute.
	ErrNotNumeric = errors.New("impute: column is not numeric")
)

// Fill reports what Impute did to one column.
type Fill struct {
	Column  string
	Method  string // "mean" or "mode"
	Value   any
	Filled  int
	Skipped bool // no present values and SkipEmpty set
}

// RowMatch selects rows whose Column renders as one of Values.
type RowMatch struct {
	Column string
	Values []string
}

// Impute replaces absent cells. Numeric columns get the arithmetic mean of
// their present values over the whole table; categorical columns get the
// most frequent present value, ties going to the value seen first.
//
// With Auto, every column not listed and not in Keys is classified by its
// inferred kind. ExcludeRows keeps matching rows out of the statistics
// without dropping them; their own absent cells are still filled.
type Impute struct {
	Numeric     []string
	Categorical []string
	Auto        bool
	Keys        []string
	SkipEmpty   bool
	ExcludeRows *RowMatch
	Report      func(Fill)
}

// Apply fills f in place, numeric columns first. Each filled column is
// reported once.
func (m Impute) Apply(f *frame.Frame) (*frame.Frame, error) {
	numeric, categorical, empty, err := m.columns(f)
	if err != nil {
		return nil, err
	}
	excluded, err := m.excluded(f)
	if err != nil {
		return nil, err
	}
	// Empty auto columns fail before any fill is written.
	for _, col := range empty {
		if err := m.emptyColumn(col); err != nil {
			return nil, err
		}
	}
	for _, col := range numeric {
		fill, err := fillMean(f, col, excluded)
		if err != nil {
			if errors.Is(err, ErrNoPresentValues) && m.SkipEmpty {
				m.report(Fill{Column: col, Method: "mean", Skipped: true})
				continue
			}
			return nil, err
		}
		m.report(fill)
	}
	for _, col := range categorical {
		fill, err := fillMode(f, col, excluded)
		if err != nil {
			if errors.Is(err, ErrNoPresentValues) && m.SkipEmpty {
				m.report(Fill{Column: col, Method: "mode", Skipped: true})
				continue
			}
			return nil, err
		}
		m.report(fill)
	}
	return f, nil
}

// report hands fl to Report, or logs it when no Report is set.
func (m Impute) report(fl Fill) {
	if m.Report != nil {
		m.Report(fl)
		return
	}
	if fl.Skipped {
		log.Printf("impute: column=%q skipped: no present values", fl.Column)
		return
	}
	log.Printf("impute: column=%q method=%s fill=%v filled=%d", fl.Column, fl.Method, fl.Value, fl.Filled)
}

// emptyColumn handles an auto column with no present value.
func (m Impute) emptyColumn(col string) error {
	if !m.SkipEmpty {
		return fmt.Errorf("%w: %q", ErrNoPresentValues, col)
	}
	m.report(Fill{Column: col, Skipped: true})
	return nil
}

// columns resolves the numeric and categorical column lists. Auto columns
// with no present value land in empty.
func (m Impute) columns(f *frame.Frame) (numeric, categorical, empty []string, err error) {
	listed := map[string]bool{}
	for _, c := range m.Keys {
		listed[c] = true
	}
	for _, c := range m.Numeric {
		if !f.Has(c) {
			return nil, nil, nil, fmt.Errorf("impute: %w: %q", frame.ErrColumnNotFound, c)
		}
		listed[c] = true
	}
	for _, c := range m.Categorical {
		if !f.Has(c) {
			return nil, nil, nil, fmt.Errorf("impute: %w: %q", frame.ErrColumnNotFound, c)
		}
		listed[c] = true
	}
	numeric = append(numeric, m.Numeric...)
	categorical = append(categorical, m.Categorical...)
	if !m.Auto {
		return numeric, categorical, nil, nil
	}
	kinds := f.Kinds()
	for j, c := range f.Names() {
		if listed[c] {
			continue
		}
		switch k := kinds[j]; {
		case k.Numeric():
			numeric = append(numeric, c)
		case k == frame.KindString:
			categorical = append(categorical, c)
		default:
			empty = append(empty, c)
		}
	}
	return numeric, categorical, empty, nil
}

// excluded marks the rows ExcludeRows keeps out of the statistics, or
// returns nil when it is unset.
func (m Impute) excluded(f *frame.Frame) ([]bool, error) {
	if m.ExcludeRows == nil || m.ExcludeRows.Column == "" {
		return nil, nil
	}
	j := f.Index(m.ExcludeRows.Column)
	if j < 0 {
		return nil, fmt.Errorf("impute: exclude_rows: %w: %q", frame.ErrColumnNotFound, m.ExcludeRows.Column)
	}
	match := map[string]bool{}
	for _, v := range m.ExcludeRows.Values {
		match[v] = true
	}
	out := make([]bool, f.Len())
	for i, row := range f.Rows() {
		if s, ok := frame.KeyString(row[j]); ok && match[s] {
			out[i] = true
		}
	}
	return out, nil
}

// fillMean writes the column mean into nil cells. An int column that
// receives a fill is widened to float64 throughout.
func fillMean(f *frame.Frame, col string, excluded []bool) (Fill, error) {
	j := f.Index(col)
	rows := f.Rows()
	xs := make([]float64, 0, len(rows))
	hasInt := false
	for i, row := range rows {
		v := row[j]
		if v == nil {
			continue
		}
		x, ok := frame.ToFloat(v)
		if !ok {
			return Fill{}, fmt.Errorf("%w: %q holds %T %v at row %d", ErrNotNumeric, col, v, v, i)
		}
		if _, isInt := v.(int64); isInt {
			hasInt = true
		}
		// Excluded rows are still type-checked above.
		if excluded != nil && excluded[i] {
			continue
		}
		xs = append(xs, x)
	}
	if len(xs) == 0 {
		return Fill{}, fmt.Errorf("%w: %q", ErrNoPresentValues, col)
	}
	mean := stat.Mean(xs, nil)
	filled := 0
	for _, row := range rows {
		if row[j] == nil {
			row[j] = mean
			filled++
		}
	}
	// Keep the column a single kind once a float mean is written into it.
	if filled > 0 && hasInt {
		for _, row := range rows {
			if n, ok := row[j].(int64); ok {
				row[j] = float64(n)
			}
		}
	}
	return Fill{Column: col, Method: "mean", Value: mean, Filled: filled}, nil
}

// fillMode writes the most frequent present value into nil cells. Counting
// is by KeyString, so 2020 and "2020" are one value; the first cell seen
// with the winning key is the fill.
func fillMode(f *frame.Frame, col string, excluded []bool) (Fill, error) {
	j := f.Index(col)
	rows := f.Rows()
	counts := map[string]int{}
	first := map[string]any{}
	var order []string
	for i, row := range rows {
		if excluded != nil && excluded[i] {
			continue
		}
		k, ok := frame.KeyString(row[j])
		if !ok {
			continue
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
			first[k] = row[j]
		}
		counts[k]++
	}
	if len(order) == 0 {
		return Fill{}, fmt.Errorf("%w: %q", ErrNoPresentValues, col)
	}
	// Strictly greater keeps the first-seen value on ties.
	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	mode := first[best]
	filled := 0
	for _, row := range rows {
		if row[j] == nil {
			row[j] = mode
			filled++
		}
	}
	return Fill{Column: col, Method: "mode", Value: mode, Filled: filled}, nil
}

// Package frame holds the in-memory table the pipeline merges and cleans.
//
// A Frame is row-major: every row is a []any whose length equals the number
// of columns. A cell is nil (absent), string, int64 or float64. Parsers emit
// strings; the coerce step turns them into numbers.
package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the
	// frame does not have.
	ErrColumnNotFound = errors.New("frame: column not found")

	// ErrDuplicateColumn is returned when an operation would leave two
	// columns with the same name.
	ErrDuplicateColumn = errors.New("frame: duplicate column")

	// ErrRowWidth is returned when a row does not match the column count.
	ErrRowWidth = errors.New("frame: row width mismatch")
)

// Frame is an ordered set of named columns over row-major cells.
type Frame struct {
	names []string
	index map[string]int
	rows  [][]any
}

// New returns an empty frame with the given columns.
func New(names ...string) (*Frame, error) {
	f := &Frame{}
	if err := f.setNames(append([]string(nil), names...)); err != nil {
		return nil, err
	}
	return f, nil
}

// FromRows builds a frame from column names and rows. Rows are used as-is
// (not copied); each must have exactly len(names) cells.
func FromRows(names []string, rows [][]any) (*Frame, error) {
	f, err := New(names...)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowWidth, i, len(r), len(names))
		}
	}
	f.rows = rows
	return f, nil
}

// setNames replaces the header and rebuilds the name index.
func (f *Frame) setNames(names []string) error {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := idx[n]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, n)
		}
		idx[n] = i
	}
	f.names = names
	f.index = idx
	return nil
}

// Names returns a copy of the column names in order.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.names) }

// Has reports whether the frame has a column named name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Row returns row i. The slice is shared with the frame.
func (f *Frame) Row(i int) []any { return f.rows[i] }

// Rows returns all rows. The slices are shared with the frame.
func (f *Frame) Rows() [][]any { return f.rows }

// Get returns the cell at row i, column col. Unknown columns read as nil.
func (f *Frame) Get(i int, col string) any {
	j, ok := f.index[col]
	if !ok {
		return nil
	}
	return f.rows[i][j]
}

// Set stores v at row i, column col.
func (f *Frame) Set(i int, col string, v any) error {
	j, ok := f.index[col]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	f.rows[i][j] = v
	return nil
}

// AppendRow appends a row. The slice is retained, not copied.
func (f *Frame) AppendRow(vals []any) error {
	if len(vals) != len(f.names) {
		return fmt.Errorf("%w: got %d cells, want %d", ErrRowWidth, len(vals), len(f.names))
	}
	f.rows = append(f.rows, vals)
	return nil
}

// AddColumn appends a column. values may be nil (all cells absent) or have
// exactly Len() entries.
func (f *Frame) AddColumn(name string, values []any) error {
	if f.Has(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if values != nil && len(values) != len(f.rows) {
		return fmt.Errorf("%w: column %q has %d values, frame has %d rows", ErrRowWidth, name, len(values), len(f.rows))
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	for i := range f.rows {
		var v any
		if values != nil {
			v = values[i]
		}
		f.rows[i] = append(f.rows[i], v)
	}
	return nil
}

// Column returns a copy of the values of column name.
func (f *Frame) Column(name string) ([]any, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Rename applies mapping to the column names in a single pass. Names not in
// mapping are kept. The frame is left untouched when the result would
// contain a duplicate name.
func (f *Frame) Rename(mapping map[string]string) error {
	next := make([]string, len(f.names))
	for i, n := range f.names {
		if to, ok := mapping[n]; ok {
			next[i] = to
		} else {
			next[i] = n
		}
	}
	return f.setNames(next)
}

// Drop removes the named columns and returns the names that were not found.
func (f *Frame) Drop(cols ...string) (missing []string) {
	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if j, ok := f.index[c]; ok {
			drop[j] = true
		} else {
			missing = append(missing, c)
		}
	}
	if len(drop) == 0 {
		return missing
	}
	keep := make([]int, 0, len(f.names)-len(drop))
	names := make([]string, 0, len(f.names)-len(drop))
	for j, n := range f.names {
		if !drop[j] {
			keep = append(keep, j)
			names = append(names, n)
		}
	}
	for i, r := range f.rows {
		nr := make([]any, len(keep))
		for k, j := range keep {
			nr[k] = r[j]
		}
		f.rows[i] = nr
	}
	_ = f.setNames(names)
	return missing
}

// Filter keeps the rows for which keep returns true, preserving order, and
// returns the number of rows removed.
func (f *Frame) Filter(keep func(row []any) bool) int {
	out := f.rows[:0]
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	removed := len(f.rows) - len(out)
	for i := len(out); i < len(f.rows); i++ {
		f.rows[i] = nil
	}
	f.rows = out
	return removed
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{rows: make([][]any, len(f.rows))}
	_ = c.setNames(f.Names())
	for i, r := range f.rows {
		c.rows[i] = append([]any(nil), r...)
	}
	return c
}

// NullCount returns the number of nil cells in column col.
func (f *Frame) NullCount(col string) (int, error) {
	j, ok := f.index[col]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	n := 0
	for _, r := range f.rows {
		if r[j] == nil {
			n++
		}
	}
	return n, nil
}

// ColumnNulls pairs a column with its nil count.
type ColumnNulls struct {
	Column string
	Nulls  int
}

// NullCounts returns the nil count of every column, in column order.
func (f *Frame) NullCounts() []ColumnNulls {
	out := make([]ColumnNulls, len(f.names))
	for j, n := range f.names {
		out[j].Column = n
	}
	for _, r := range f.rows {
		for j, v := range r {
			if v == nil {
				out[j].Nulls++
			}
		}
	}
	return out
}

package frame

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Group is one aggregate row keyed by the grouping column.
type Group struct {
	Key   string
	Value float64
	Count int
}

// GroupSum sums col per distinct value of by. Groups keep first-seen order;
// rows with a nil grouping cell are skipped, as are non-numeric values. A
// group with no numeric values sums to zero.
func (f *Frame) GroupSum(by, col string) ([]Group, error) {
	keys, vals, err := f.groupValues(by, col)
	if err != nil {
		return nil, err
	}
	out := make([]Group, len(keys))
	for i, k := range keys {
		out[i] = Group{Key: k, Value: floats.Sum(vals[i]), Count: len(vals[i])}
	}
	return out, nil
}

// GroupMean averages col per distinct value of by. Groups without any
// numeric value are omitted.
func (f *Frame) GroupMean(by, col string) ([]Group, error) {
	keys, vals, err := f.groupValues(by, col)
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(keys))
	for i, k := range keys {
		if len(vals[i]) == 0 {
			continue
		}
		out = append(out, Group{Key: k, Value: stat.Mean(vals[i], nil), Count: len(vals[i])})
	}
	return out, nil
}

// groupValues collects the numeric values of col per grouping key, in
// first-seen key order.
func (f *Frame) groupValues(by, col string) ([]string, [][]float64, error) {
	bj, ok := f.index[by]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrColumnNotFound, by)
	}
	cj, ok := f.index[col]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	pos := map[string]int{}
	var keys []string
	var vals [][]float64
	for _, r := range f.rows {
		k, ok := KeyString(r[bj])
		if !ok {
			continue
		}
		p, seen := pos[k]
		if !seen {
			p = len(keys)
			pos[k] = p
			keys = append(keys, k)
			vals = append(vals, nil)
		}
		if x, ok := ToFloat(r[cj]); ok {
			vals[p] = append(vals[p], x)
		}
	}
	return keys, vals, nil
}

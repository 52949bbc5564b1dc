package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// How selects which unmatched rows a join keeps.
type How int

const (
	// Outer keeps unmatched rows from both sides.
	Outer How = iota
	// Inner keeps matched rows only.
	Inner
	// Left keeps every left row and drops unmatched right rows.
	Left
)

func (h How) String() string {
	switch h {
	case Inner:
		return "inner"
	case Left:
		return "left"
	default:
		return "outer"
	}
}

// ParseHow maps "outer", "inner" or "left" to a How. Empty means Outer.
func ParseHow(s string) (How, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "outer":
		return Outer, nil
	case "inner":
		return Inner, nil
	case "left":
		return Left, nil
	}
	return Outer, fmt.Errorf("frame: unknown join type %q", s)
}

// DefaultSuffixes are appended to non-key columns present on both sides.
var DefaultSuffixes = [2]string{"_x", "_y"}

// JoinSpec describes one join. Either On, or both LeftOn and RightOn, must be
// set. Empty suffixes fall back to DefaultSuffixes.
//
// When LeftOn and RightOn differ by name the right key columns are kept in
// the output. CoalesceKeys then copies right key values into the left key
// cells of right-only rows so the left key columns hold the union of keys.
//
// Nil key cells match each other, so (Europe, nil, 2020) on both sides is one
// row. SkipNilKeys makes any row with a nil key cell unmatched instead.
type JoinSpec struct {
	On           []string
	LeftOn       []string
	RightOn      []string
	How          How
	Suffixes     [2]string
	CoalesceKeys bool
	SkipNilKeys  bool
}

// JoinStats counts what a join matched.
type JoinStats struct {
	LeftRows  int
	RightRows int
	Matched   int
	LeftOnly  int
	RightOnly int
	Out       int
}

var errNoKeys = errors.New("frame: join needs On or both LeftOn and RightOn")

// Join joins left and right according to spec.
func Join(left, right *Frame, spec JoinSpec) (*Frame, error) {
	out, _, err := JoinWithStats(left, right, spec)
	return out, err
}

// colSource says where an output column reads from. coalesce is the right
// column used when the left cell is absent (-1 for none).
type colSource struct {
	fromLeft bool
	src      int
	coalesce int
}

// JoinWithStats is Join plus match counts.
//
// Output columns are the left columns in order followed by the right
// columns, minus right keys named like their paired left key. Rows with
// duplicate keys produce every pairing. For Outer and Left joins the left
// rows come first in their original order; Outer then appends unmatched
// right rows in their order. Nil key cells compare equal unless
// spec.SkipNilKeys is set.
func JoinWithStats(left, right *Frame, spec JoinSpec) (*Frame, JoinStats, error) {
	stats := JoinStats{LeftRows: left.Len(), RightRows: right.Len()}

	lk, rk, err := resolveJoinColumns(left, right, spec)
	if err != nil {
		return nil, stats, err
	}
	names, mapping, err := resolveOutputColumns(left, right, lk, rk, spec)
	if err != nil {
		return nil, stats, err
	}

	index, rightKeys := buildKeyIndex(right, rk, spec.SkipNilKeys)
	leftKeyIdx := keyIndexes(left, lk)

	var leftIdx, rightIdx []int
	rightMatched := make([]bool, right.Len())
	for i, row := range left.rows {
		key, ok := compositeKey(row, leftKeyIdx, spec.SkipNilKeys)
		matched := false
		if ok {
			for _, j := range index[xxh3.HashString(key)] {
				if rightKeys[j] != key {
					continue
				}
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, j)
				rightMatched[j] = true
				matched = true
				stats.Matched++
			}
		}
		if !matched {
			stats.LeftOnly++
			if spec.How != Inner {
				leftIdx = append(leftIdx, i)
				rightIdx = append(rightIdx, -1)
			}
		}
	}
	for j, m := range rightMatched {
		if m {
			continue
		}
		stats.RightOnly++
		if spec.How == Outer {
			leftIdx = append(leftIdx, -1)
			rightIdx = append(rightIdx, j)
		}
	}

	out := &Frame{rows: make([][]any, len(leftIdx))}
	_ = out.setNames(names)
	for n := range leftIdx {
		out.rows[n] = buildJoinRow(left, right, mapping, leftIdx[n], rightIdx[n])
	}
	stats.Out = out.Len()
	return out, stats, nil
}

// resolveJoinColumns picks the key lists from spec and checks both sides
// carry them.
func resolveJoinColumns(left, right *Frame, spec JoinSpec) ([]string, []string, error) {
	lk, rk := spec.LeftOn, spec.RightOn
	if len(spec.On) > 0 {
		lk, rk = spec.On, spec.On
	}
	if len(lk) == 0 || len(rk) == 0 {
		return nil, nil, errNoKeys
	}
	if len(lk) != len(rk) {
		return nil, nil, fmt.Errorf("frame: left_on and right_on must have same length (%d vs %d)", len(lk), len(rk))
	}
	for _, c := range lk {
		if !left.Has(c) {
			return nil, nil, fmt.Errorf("%w: %q in left table", ErrColumnNotFound, c)
		}
	}
	for _, c := range rk {
		if !right.Has(c) {
			return nil, nil, fmt.Errorf("%w: %q in right table", ErrColumnNotFound, c)
		}
	}
	return lk, rk, nil
}

// resolveOutputColumns lays out the joined header and records where each
// output cell comes from.
func resolveOutputColumns(left, right *Frame, lk, rk []string, spec JoinSpec) ([]string, []colSource, error) {
	suffixes := spec.Suffixes
	if suffixes[0] == "" && suffixes[1] == "" {
		suffixes = DefaultSuffixes
	}

	// Right keys sharing their left key's name fold into the left column.
	shared := map[int]int{} // right col -> left col
	for n := range lk {
		if lk[n] == rk[n] {
			shared[right.Index(rk[n])] = left.Index(lk[n])
		}
	}
	// Differently named pairs coalesce into the left key on request.
	coalesce := map[int]int{} // left col -> right col
	for n := range lk {
		li, ri := left.Index(lk[n]), right.Index(rk[n])
		if lk[n] == rk[n] || spec.CoalesceKeys {
			coalesce[li] = ri
		}
	}

	// Left columns clashing with a surviving right column take suffixes[0].
	rightOut := map[string]bool{}
	for j, name := range right.names {
		if _, ok := shared[j]; !ok {
			rightOut[name] = true
		}
	}

	var names []string
	var mapping []colSource
	for j, name := range left.names {
		if rightOut[name] {
			name += suffixes[0]
		}
		cs := colSource{fromLeft: true, src: j, coalesce: -1}
		if ri, ok := coalesce[j]; ok {
			cs.coalesce = ri
		}
		names = append(names, name)
		mapping = append(mapping, cs)
	}
	for j, name := range right.names {
		if _, ok := shared[j]; ok {
			continue
		}
		if left.Has(name) {
			name += suffixes[1]
		}
		names = append(names, name)
		mapping = append(mapping, colSource{src: j, coalesce: -1})
	}

	// A suffixed name can still clash, e.g. left "a" becoming "a_x" beside a left "a_x".
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, nil, fmt.Errorf("%w: %q after applying join suffixes", ErrDuplicateColumn, n)
		}
		seen[n] = true
	}
	return names, mapping, nil
}

// compositeKey joins the canonical key strings of row's key cells. Each
// component is tagged so a nil cell cannot collide with any string. With
// skipNil, ok is false when any key cell is nil; otherwise nil keys match
// each other.
func compositeKey(row []any, idx []int, skipNil bool) (string, bool) {
	var b strings.Builder
	for n, j := range idx {
		if n > 0 {
			b.WriteByte(0x1f)
		}
		s, ok := KeyString(row[j])
		if !ok {
			if skipNil {
				return "", false
			}
			b.WriteByte(0)
			continue
		}
		b.WriteByte(1)
		b.WriteString(s)
	}
	return b.String(), true
}

// keyIndexes maps column names to positions in f.
func keyIndexes(f *Frame, cols []string) []int {
	idx := make([]int, len(cols))
	for n, c := range cols {
		idx[n] = f.Index(c)
	}
	return idx
}

// buildKeyIndex hashes every right row's composite key. With skipNil, rows
// with a nil key cell are left out. The key strings are returned so lookups
// can confirm a hash hit.
func buildKeyIndex(f *Frame, cols []string, skipNil bool) (map[uint64][]int, []string) {
	idx := keyIndexes(f, cols)
	index := make(map[uint64][]int, f.Len())
	keys := make([]string, f.Len())
	for i, row := range f.rows {
		key, ok := compositeKey(row, idx, skipNil)
		if !ok {
			continue
		}
		keys[i] = key
		h := xxh3.HashString(key)
		index[h] = append(index[h], i)
	}
	return index, keys
}

// buildJoinRow assembles one output row. A negative li or ri marks the
// missing side of an outer match.
func buildJoinRow(left, right *Frame, mapping []colSource, li, ri int) []any {
	row := make([]any, len(mapping))
	for n, m := range mapping {
		switch {
		case m.fromLeft && li >= 0:
			row[n] = left.rows[li][m.src]
		case m.fromLeft && ri >= 0 && m.coalesce >= 0:
			row[n] = right.rows[ri][m.coalesce]
		case !m.fromLeft && ri >= 0:
			row[n] = right.rows[ri][m.src]
		}
	}
	return row
}

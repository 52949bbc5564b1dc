package builtin

import (
	"fmt"
	"log"

	"evadoption/internal/frame"
)

// Require drops rows with an absent or blank value in any of Fields. These
// are rows that cannot be tied to a region and so cannot be imputed.
type Require struct {
	Fields []string
}

// Apply drops the rows in place. A field missing from f is an error.
func (r Require) Apply(f *frame.Frame) (*frame.Frame, error) {
	idx := make([]int, len(r.Fields))
	for n, c := range r.Fields {
		if idx[n] = f.Index(c); idx[n] < 0 {
			return nil, fmt.Errorf("require: %w: %q", frame.ErrColumnNotFound, c)
		}
	}
	removed := f.Filter(func(row []any) bool {
		for _, j := range idx {
			if frame.IsBlank(row[j]) {
				return false
			}
		}
		return true
	})
	log.Printf("require: fields=%q dropped=%d kept=%d", r.Fields, removed, f.Len())
	return f, nil
}

// Exclude drops rows whose Column renders as one of Values, such as the
// "World" aggregate that would double count every region.
type Exclude struct {
	Column string
	Values []string
}

// Apply drops the matching rows. Values compare by KeyString.
func (e Exclude) Apply(f *frame.Frame) (*frame.Frame, error) {
	j := f.Index(e.Column)
	if j < 0 {
		return nil, fmt.Errorf("exclude: %w: %q", frame.ErrColumnNotFound, e.Column)
	}
	drop := make(map[string]bool, len(e.Values))
	for _, v := range e.Values {
		drop[v] = true
	}
	removed := f.Filter(func(row []any) bool {
		s, ok := frame.KeyString(row[j])
		return !ok || !drop[s]
	})
	log.Printf("exclude: column=%q values=%q dropped=%d", e.Column, e.Values, removed)
	return f, nil
}

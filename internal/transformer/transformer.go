// Package transformer runs the ordered clean steps over the combined table.
package transformer

import (
	"fmt"
	"time"

	"evadoption/internal/frame"
)

// Transformer is one clean step. It may modify f in place and returns the
// frame the next step receives.
type Transformer interface {
	Apply(f *frame.Frame) (*frame.Frame, error)
}

// Func adapts a function to Transformer.
type Func func(f *frame.Frame) (*frame.Frame, error)

func (fn Func) Apply(f *frame.Frame) (*frame.Frame, error) { return fn(f) }

// Step is a named Transformer.
type Step struct {
	Kind string
	Transformer
}

// Result describes what one step did.
type Result struct {
	Index    int
	Kind     string
	RowsIn   int
	RowsOut  int
	ColsIn   int
	ColsOut  int
	Duration time.Duration
	Err      error
}

// Chain is an ordered list of steps.
type Chain []Step

// Apply runs every step in order and stops at the first error.
func (c Chain) Apply(f *frame.Frame) (*frame.Frame, error) {
	return c.ApplyObserved(f, nil)
}

// ApplyObserved is Apply with a callback after each step, including the
// failing one.
func (c Chain) ApplyObserved(f *frame.Frame, observe func(Result)) (*frame.Frame, error) {
	for i, s := range c {
		r := Result{Index: i, Kind: s.Kind, RowsIn: f.Len(), ColsIn: f.Width()}
		start := time.Now()
		out, err := s.Apply(f)
		r.Duration = time.Since(start)
		if err != nil {
			r.Err = err
			r.RowsOut, r.ColsOut = r.RowsIn, r.ColsIn
			if observe != nil {
				observe(r)
			}
			return nil, fmt.Errorf("clean[%d] %s: %w", i, s.Kind, err)
		}
		f = out
		r.RowsOut, r.ColsOut = f.Len(), f.Width()
		if observe != nil {
			observe(r)
		}
	}
	return f, nil
}

// Package merge folds the loaded sources into one combined table.
package merge

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"evadoption/internal/config"
	"evadoption/internal/frame"
)

// Table is a named input frame.
type Table struct {
	Name  string
	Frame *frame.Frame
}

// Step joins the table named Source into the running result.
type Step struct {
	Source string
	Spec   frame.JoinSpec
}

// StepResult is reported after every join.
type StepResult struct {
	Index    int
	Source   string
	Stats    frame.JoinStats
	Suffixed []string
	Duration time.Duration
	Err      error
}

// StepsFromConfig converts configured joins. Outer joins coalesce
// differently named keys unless coalesce_keys is false.
func StepsFromConfig(js []config.Join) ([]Step, error) {
	steps := make([]Step, 0, len(js))
	for i, j := range js {
		how, err := frame.ParseHow(j.How)
		if err != nil {
			return nil, fmt.Errorf("joins[%d]: %w", i, err)
		}
		spec := frame.JoinSpec{
			On:           j.On,
			LeftOn:       j.LeftOn,
			RightOn:      j.RightOn,
			How:          how,
			CoalesceKeys: how == frame.Outer,
			SkipNilKeys:  j.SkipNilKeys,
		}
		if j.CoalesceKeys != nil {
			spec.CoalesceKeys = *j.CoalesceKeys
		}
		if len(j.Suffixes) == 2 {
			spec.Suffixes = [2]string{j.Suffixes[0], j.Suffixes[1]}
		}
		steps = append(steps, Step{Source: j.Source, Spec: spec})
	}
	return steps, nil
}

// Run starts from the first table and applies steps in order. Columns that
// come out of a join with a suffix are logged; resolving them is left to
// the clean steps.
func Run(ctx context.Context, tables []Table, steps []Step, observe func(StepResult)) (*frame.Frame, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("merge: no tables")
	}
	byName := make(map[string]*frame.Frame, len(tables))
	for _, t := range tables {
		byName[t.Name] = t.Frame
	}
	// The first table is the base; joins[i] folds its source into it.
	out := tables[0].Frame
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		right, ok := byName[s.Source]
		if !ok {
			return nil, fmt.Errorf("merge: joins[%d]: unknown source %q", i, s.Source)
		}
		before := out.Names()
		start := time.Now()
		next, stats, err := frame.JoinWithStats(out, right, s.Spec)
		r := StepResult{Index: i, Source: s.Source, Stats: stats, Duration: time.Since(start), Err: err}
		// Failed joins are still reported so callers can record the step.
		if err != nil {
			if observe != nil {
				observe(r)
			}
			return nil, fmt.Errorf("merge: joins[%d] %s: %w", i, s.Source, err)
		}
		r.Suffixed = suffixed(before, next.Names(), s.Spec)
		log.Printf("join: step=%d source=%s how=%s left=%d right=%d matched=%d left_only=%d right_only=%d out=%d cols=%d",
			i, s.Source, s.Spec.How, stats.LeftRows, stats.RightRows, stats.Matched, stats.LeftOnly, stats.RightOnly, stats.Out, next.Width())
		if len(r.Suffixed) > 0 {
			log.Printf("join: step=%d source=%s suffixed columns=%q", i, s.Source, r.Suffixed)
		}
		if observe != nil {
			observe(r)
		}
		out = next
	}
	return out, nil
}

// suffixed lists output columns that did not exist before the join and end
// in one of the join suffixes.
func suffixed(before, after []string, spec frame.JoinSpec) []string {
	sfx := spec.Suffixes
	if sfx[0] == "" && sfx[1] == "" {
		sfx = frame.DefaultSuffixes
	}
	had := make(map[string]bool, len(before))
	for _, n := range before {
		had[n] = true
	}
	var out []string
	for _, n := range after {
		if had[n] {
			continue // already suffixed by an earlier join
		}
		if (sfx[0] != "" && strings.HasSuffix(n, sfx[0])) || (sfx[1] != "" && strings.HasSuffix(n, sfx[1])) {
			out = append(out, n)
		}
	}
	return out
}

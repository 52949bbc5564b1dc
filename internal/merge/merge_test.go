package merge

import (
	"context"
	"reflect"
	"testing"

	"evadoption/internal/config"
	"evadoption/internal/frame"
)

func mk(t *testing.T, names []string, rows ...[]any) *frame.Frame {
	t.Helper()
	f, err := frame.FromRows(names, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return f
}

// TestRunMixedKeySchemes chains a same-named key join and a join whose
// right side names its keys region/year. The result holds one row per
// distinct (Entity, Year) across all inputs.
func TestRunMixedKeySchemes(t *testing.T) {
	sales := mk(t, []string{"Entity", "Code", "Year", "Electric cars sold"},
		[]any{"Norway", "NOR", "2021", "10"},
		[]any{"World", "OWID_WRL", "2021", "100"},
	)
	stocks := mk(t, []string{"Entity", "Code", "Year", "Electric cars sold"},
		[]any{"Norway", "NOR", "2021", "11"},
		[]any{"Sweden", "SWE", "2021", "5"},
	)
	iea := mk(t, []string{"region", "year", "value"},
		[]any{"Norway", "2021", "0.8"},
		[]any{"Europe", "2021", "0.2"},
	)
	js := []config.Join{
		{Source: "stocks", On: []string{"Entity", "Code", "Year"}},
		{Source: "iea", LeftOn: []string{"Entity", "Year"}, RightOn: []string{"region", "year"}},
	}
	steps, err := StepsFromConfig(js)
	if err != nil {
		t.Fatalf("StepsFromConfig: %v", err)
	}
	var results []StepResult
	out, err := Run(context.Background(), []Table{{"sales", sales}, {"stocks", stocks}, {"iea", iea}}, steps, func(r StepResult) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"Entity", "Code", "Year", "Electric cars sold_x", "Electric cars sold_y", "region", "year", "value"}
	if !reflect.DeepEqual(out.Names(), want) {
		t.Fatalf("names=%v want %v", out.Names(), want)
	}
	// Norway, World, Sweden, Europe
	if out.Len() != 4 {
		t.Fatalf("len=%d want 4", out.Len())
	}
	regions, _ := out.Column("Entity")
	if !reflect.DeepEqual(regions, []any{"Norway", "World", "Sweden", "Europe"}) {
		t.Fatalf("Entity=%v", regions)
	}
	if out.Get(3, "Code") != nil {
		t.Fatalf("Europe has no code, got %v", out.Get(3, "Code"))
	}
	if len(results) != 2 || !reflect.DeepEqual(results[0].Suffixed, []string{"Electric cars sold_x", "Electric cars sold_y"}) {
		t.Fatalf("results=%+v", results)
	}
}

func TestStepsFromConfigCoalesceDefaults(t *testing.T) {
	off := false
	steps, err := StepsFromConfig([]config.Join{
		{Source: "a", On: []string{"k"}},
		{Source: "b", On: []string{"k"}, How: "left"},
		{Source: "c", On: []string{"k"}, CoalesceKeys: &off, Suffixes: []string{"_l", "_r"}},
	})
	if err != nil {
		t.Fatalf("StepsFromConfig: %v", err)
	}
	if !steps[0].Spec.CoalesceKeys || steps[1].Spec.CoalesceKeys || steps[2].Spec.CoalesceKeys {
		t.Fatalf("coalesce=%v %v %v", steps[0].Spec.CoalesceKeys, steps[1].Spec.CoalesceKeys, steps[2].Spec.CoalesceKeys)
	}
	if steps[2].Spec.Suffixes != [2]string{"_l", "_r"} {
		t.Fatalf("suffixes=%v", steps[2].Spec.Suffixes)
	}
	skip, err := StepsFromConfig([]config.Join{{Source: "a", On: []string{"k"}, SkipNilKeys: true}})
	if err != nil || !skip[0].Spec.SkipNilKeys || steps[0].Spec.SkipNilKeys {
		t.Fatalf("skip_nil_keys not carried: %+v %v", skip, err)
	}
	if _, err := StepsFromConfig([]config.Join{{Source: "a", How: "cross"}}); err == nil {
		t.Fatalf("expected join type error")
	}
}

func TestRunUnknownSource(t *testing.T) {
	base := mk(t, []string{"k"})
	_, err := Run(context.Background(), []Table{{"a", base}}, []Step{{Source: "zz", Spec: frame.JoinSpec{On: []string{"k"}}}}, nil)
	if err == nil {
		t.Fatalf("expected unknown source error")
	}
}

// TestRunCodelessRegionsStayOneRow keeps aggregate regions without a code to
// one row per (Entity, Year) through every join, so a later (Entity, Year)
// join matches them once.
func TestRunCodelessRegionsStayOneRow(t *testing.T) {
	sales := mk(t, []string{"Entity", "Code", "Year", "Electric cars sold"},
		[]any{"Europe", nil, "2020", "1000"},
		[]any{"Norway", "NOR", "2020", "10"},
	)
	stocks := mk(t, []string{"Entity", "Code", "Year", "Electric car stocks"},
		[]any{"Europe", nil, "2020", "5000"},
	)
	iea := mk(t, []string{"region", "year", "value"},
		[]any{"Europe", "2020", "0.2"},
	)
	steps, err := StepsFromConfig([]config.Join{
		{Source: "stocks", On: []string{"Entity", "Code", "Year"}},
		{Source: "iea", LeftOn: []string{"Entity", "Year"}, RightOn: []string{"region", "year"}},
	})
	if err != nil {
		t.Fatalf("StepsFromConfig: %v", err)
	}
	out, err := Run(context.Background(), []Table{{"sales", sales}, {"stocks", stocks}, {"iea", iea}}, steps, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("len=%d want 2 rows=%v", out.Len(), out.Rows())
	}
	want := []any{"Europe", nil, "2020", "1000", "5000", "Europe", "2020", "0.2"}
	if !reflect.DeepEqual(out.Row(0), want) {
		t.Fatalf("Europe row=%v want %v", out.Row(0), want)
	}
}

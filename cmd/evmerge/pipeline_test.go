package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"evadoption/internal/config"
	"evadoption/internal/frame"
	"evadoption/internal/loader"
	"evadoption/internal/merge"
	"evadoption/internal/metrics"
	"evadoption/internal/storage"
	"evadoption/internal/transformer/builtin"
)

// writeCSV writes lines to dir/name and returns the path.
func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func fileSource(name, path string) config.Source {
	return config.Source{Name: name, Kind: "file", File: config.SourceFile{Path: path}, Parser: config.Parser{Kind: "csv"}}
}

// evPipeline builds a four-source pipeline over small CSVs in dir.
func evPipeline(t *testing.T, dir string) config.Pipeline {
	t.Helper()
	sales := writeCSV(t, dir, "sales.csv",
		"Entity,Code,Year,Electric cars sold",
		"Norway,NOR,2020,76000",
		"Chile,CHL,2020,500",
		"World,OWID_WRL,2020,3000000",
		"Atlantis,,2020,5",
	)
	bev := writeCSV(t, dir, "bev.csv",
		"Entity,Code,Year,Battery-electric as a share of electric cars sold",
		"Norway,NOR,2020,70",
		"Kenya,KEN,2021,50",
	)
	stocks := writeCSV(t, dir, "stocks.csv",
		"Entity,Code,Year,Electric car stocks",
		"Norway,NOR,2020,340000",
		"Chile,CHL,2020,",
	)
	nonev := writeCSV(t, dir, "nonev.csv",
		"Entity,Code,Year,Non-electric car sales",
		"Norway,NOR,2020,30000",
		"Chile,CHL,2020,90000",
		"Kenya,KEN,2021,1000",
		"World,OWID_WRL,2020,60000000",
	)
	keys := []string{"Entity", "Code", "Year"}
	return config.Pipeline{
		Job: "ev_test",
		Sources: []config.Source{
			fileSource("sales", sales), fileSource("bev", bev),
			fileSource("stocks", stocks), fileSource("nonev", nonev),
		},
		Joins: []config.Join{
			{Source: "bev", On: keys},
			{Source: "stocks", On: keys},
			{Source: "nonev", On: keys},
		},
		Clean: []config.Transform{
			{Kind: "rename", Options: config.Options{
				"defaults": true,
				"columns":  map[string]any{"Electric cars sold": "EVs Sold"},
			}},
			{Kind: "normalize"},
			{Kind: "coerce", Options: config.Options{"auto": true, "types": map[string]any{"Year": "int"}}},
			{Kind: "impute", Options: config.Options{
				"numeric": []any{"BEV Shares", "EVs Sold", "Non-EV Sales", "EV Stocks"},
			}},
			{Kind: "require", Options: config.Options{"fields": []any{"Region", "Region Code"}}},
			{Kind: "exclude", Options: config.Options{"column": "Region", "values": []any{"World"}}},
			{Kind: "validate", Options: config.Options{
				"policy": "strict",
				"contract": map[string]any{
					"name": "ev_test",
					"fields": []any{
						map[string]any{"name": "Region", "type": "string", "required": true, "forbid": []any{"World"}},
						map[string]any{"name": "Region Code", "type": "string", "required": true},
						map[string]any{"name": "Year", "type": "int", "required": true},
						map[string]any{"name": "EVs Sold", "type": "number", "required": true},
					},
				},
			}},
		},
	}
}

func rowFor(t *testing.T, f *frame.Frame, region string) int {
	t.Helper()
	for i := 0; i < f.Len(); i++ {
		if f.Get(i, "Region") == region {
			return i
		}
	}
	t.Fatalf("region %q not in result", region)
	return -1
}

func TestMergeRowCountIsKeyUnion(t *testing.T) {
	p := evPipeline(t, t.TempDir())
	results, err := loadSources(context.Background(), p)
	if err != nil {
		t.Fatalf("loadSources: %v", err)
	}
	if len(results) != 4 || results[0].Name != "sales" {
		t.Fatalf("unexpected load results: %d", len(results))
	}
	tables := make([]merge.Table, len(results))
	for i, r := range results {
		tables[i] = merge.Table{Name: r.Name, Frame: r.Frame}
	}
	merged, err := mergeTables(context.Background(), "ev_test", tables, p.Joins)
	if err != nil {
		t.Fatalf("mergeTables: %v", err)
	}
	// Norway, Chile, World, Atlantis (2020) and Kenya (2021).
	if merged.Len() != 5 {
		t.Fatalf("merged rows %d want 5", merged.Len())
	}
}

// recordingBackend keeps every counter and histogram call.
type recordingBackend struct {
	mu       sync.Mutex
	counters []recorded
	hists    []recorded
}

type recorded struct {
	name   string
	value  float64
	labels metrics.Labels
}

func (r *recordingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, recorded{name, delta, l})
}

func (r *recordingBackend) ObserveHistogram(name string, v float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists = append(r.hists, recorded{name, v, l})
}

func (r *recordingBackend) Flush() error { return nil }

func TestMergeRecordsStepPerJoin(t *testing.T) {
	rec := &recordingBackend{}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(&recordingBackend{}) })

	p := evPipeline(t, t.TempDir())
	results, err := loadSources(context.Background(), p)
	if err != nil {
		t.Fatalf("loadSources: %v", err)
	}
	tables := make([]merge.Table, len(results))
	for i, r := range results {
		tables[i] = merge.Table{Name: r.Name, Frame: r.Frame}
	}
	if _, err := mergeTables(context.Background(), "ev_test", tables, p.Joins); err != nil {
		t.Fatalf("mergeTables: %v", err)
	}

	var steps []string
	var outs []float64
	for _, c := range rec.counters {
		switch {
		case c.name == metrics.StepTotal:
			if c.labels["job"] != "ev_test" || c.labels["status"] != "success" {
				t.Fatalf("unexpected step labels %v", c.labels)
			}
			steps = append(steps, c.labels["step"])
		case c.name == metrics.RowsTotal && c.labels["kind"] == "join_out":
			outs = append(outs, c.value)
		}
	}
	if want := []string{"join.bev", "join.stocks", "join.nonev"}; !reflect.DeepEqual(steps, want) {
		t.Fatalf("steps=%v want %v", steps, want)
	}
	// sales+bev adds Kenya; stocks adds nothing; nonev adds nothing.
	if want := []float64{5, 5, 5}; !reflect.DeepEqual(outs, want) {
		t.Fatalf("join_out=%v want %v", outs, want)
	}
	if len(rec.hists) != 3 {
		t.Fatalf("durations recorded=%d want 3", len(rec.hists))
	}
}

func TestRunPipelineCleansAndStores(t *testing.T) {
	dir := t.TempDir()
	p := evPipeline(t, dir)
	dsn := filepath.Join(dir, "ev.db")
	p.Storage = config.Storage{Kind: "sqlite", DB: config.DBConfig{DSN: dsn, Table: "ev_adoption", AutoCreateTable: true}}
	p.Export = config.Export{
		CSV:     filepath.Join(dir, "out", "ev.csv"),
		Parquet: filepath.Join(dir, "out", "ev.parquet"),
		XLSX:    filepath.Join(dir, "out", "ev.xlsx"),
	}
	p.Runtime.BatchSize = 2

	got, err := runPipeline(context.Background(), p, runOptions{JobName: "ev_test", RunID: "test"})
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	if got.Len() != 3 {
		t.Fatalf("cleaned rows %d want 3", got.Len())
	}
	for _, col := range []string{"BEV Shares", "EVs Sold", "Non-EV Sales", "EV Stocks"} {
		n, err := got.NullCount(col)
		if err != nil {
			t.Fatalf("NullCount(%s): %v", col, err)
		}
		if n != 0 {
			t.Fatalf("column %s has %d nulls after impute", col, n)
		}
	}
	for i := 0; i < got.Len(); i++ {
		if got.Get(i, "Region Code") == nil {
			t.Fatalf("row %d has no Region Code", i)
		}
		if got.Get(i, "Region") == "World" {
			t.Fatalf("row %d is the World aggregate", i)
		}
	}

	// BEV Shares mean over Norway(70) and Kenya(50).
	if v := got.Get(rowFor(t, got, "Chile"), "BEV Shares"); v != 60.0 {
		t.Fatalf("Chile BEV Shares = %v want 60", v)
	}
	// EVs Sold mean is taken before World and Atlantis are dropped.
	wantSold := (76000.0 + 500 + 3000000 + 5) / 4
	if v := got.Get(rowFor(t, got, "Kenya"), "EVs Sold"); v != wantSold {
		t.Fatalf("Kenya EVs Sold = %v want %v", v, wantSold)
	}
	if v := got.Get(rowFor(t, got, "Norway"), "Year"); v != int64(2020) {
		t.Fatalf("Norway Year = %#v want int64 2020", v)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "ev_adoption"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("stored rows %d want 3", n)
	}

	for _, path := range []string{p.Export.CSV, p.Export.Parquet, p.Export.XLSX} {
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Fatalf("export %s missing or empty: %v", path, err)
		}
	}
}

func TestRunPipelineStrictContractFails(t *testing.T) {
	p := evPipeline(t, t.TempDir())
	// Without the exclude step the World row survives and the contract forbids it.
	var clean []config.Transform
	for _, s := range p.Clean {
		if s.Kind != "exclude" {
			clean = append(clean, s)
		}
	}
	p.Clean = clean
	if _, err := runPipeline(context.Background(), p, runOptions{}); !errors.Is(err, builtin.ErrContractViolation) {
		t.Fatalf("got %v want contract violation", err)
	}
}

type captureRepo struct {
	cols   []string
	rows   int
	closed bool
}

func (c *captureRepo) CopyFrom(_ context.Context, cols []string, rows [][]any) (int64, error) {
	c.cols = cols
	c.rows += len(rows)
	return int64(len(rows)), nil
}
func (c *captureRepo) Exec(context.Context, string) error { return nil }
func (c *captureRepo) Close()                             { c.closed = true }

func TestRunPipelineUsesRepositorySeam(t *testing.T) {
	orig := newRepositoryFn
	defer func() { newRepositoryFn = orig }()

	repo := &captureRepo{}
	var gotCfg storage.Config
	newRepositoryFn = func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return repo, nil
	}

	p := evPipeline(t, t.TempDir())
	p.Storage = config.Storage{Kind: "postgres", DB: config.DBConfig{DSN: "postgres://unused", Table: "public.ev"}}
	if _, err := runPipeline(context.Background(), p, runOptions{}); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if gotCfg.Kind != "postgres" || gotCfg.Table != "public.ev" {
		t.Fatalf("unexpected storage config: %+v", gotCfg)
	}
	if repo.rows != 3 || !repo.closed {
		t.Fatalf("rows=%d closed=%v want 3,true", repo.rows, repo.closed)
	}
	if len(repo.cols) == 0 || repo.cols[0] != "Region" {
		t.Fatalf("unexpected columns %v", repo.cols)
	}
}

func TestRunPipelineLoadErrorStops(t *testing.T) {
	orig := loadSourcesFn
	defer func() { loadSourcesFn = orig }()

	boom := errors.New("disk gone")
	loadSourcesFn = func(context.Context, config.Pipeline) ([]loader.Result, error) { return nil, boom }
	if _, err := runPipeline(context.Background(), config.Pipeline{}, runOptions{}); !errors.Is(err, boom) {
		t.Fatalf("got %v want %v", err, boom)
	}
}

func TestBuildTransformers(t *testing.T) {
	chain, err := buildTransformers([]config.Transform{
		{Kind: "rename", Options: config.Options{"defaults": true}},
		{Kind: "dedupe", Options: config.Options{"keys": []any{"Region", "Year"}}},
	}, stepHooks{})
	if err != nil {
		t.Fatalf("buildTransformers: %v", err)
	}
	if len(chain) != 2 || chain[0].Kind != "rename" {
		t.Fatalf("unexpected chain %+v", chain)
	}
	if _, err := buildTransformers([]config.Transform{{Kind: "explode"}}, stepHooks{}); err == nil {
		t.Fatalf("want error for unknown step")
	}
}

func TestErrAggKeepsFirstSamples(t *testing.T) {
	a := newErrAgg(2)
	a.add("col a", "row 1")
	a.add("col a", "row 2")
	a.add("col b", "row 3")
	if a.count != 3 || len(a.first) != 2 || a.buckets["col a"] != 2 {
		t.Fatalf("unexpected agg state: count=%d first=%v buckets=%v", a.count, a.first, a.buckets)
	}
}

func TestPickHelpers(t *testing.T) {
	t.Setenv("EVMERGE_TEST_INT", "7")
	if got := getenvInt("EVMERGE_TEST_INT", 1); got != 7 {
		t.Fatalf("getenvInt = %d want 7", got)
	}
	if got := getenvInt("EVMERGE_TEST_MISSING", 3); got != 3 {
		t.Fatalf("getenvInt default = %d want 3", got)
	}
	if pickInt(0, 4) != 4 || pickInt(2, 4) != 2 {
		t.Fatalf("pickInt wrong")
	}
	if pickString("", "b") != "b" || pickString("a", "b") != "a" {
		t.Fatalf("pickString wrong")
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"evadoption/internal/config"
	"evadoption/internal/export"
	"evadoption/internal/frame"
	"evadoption/internal/loader"
	"evadoption/internal/merge"
	"evadoption/internal/metrics"
	"evadoption/internal/report"
	"evadoption/internal/storage"
	"evadoption/internal/transformer"
)

const (
	defaultLoadWorkers = 4
	// thisMany caps how many individual problems are logged per stage.
	thisMany = 3
)

// runOptions carries per-run identity and switches from the CLI.
type runOptions struct {
	JobName string
	RunID   string
	Verbose bool
}

// runStats are the row counts reported in the end-of-run summary.
type runStats struct {
	Sources     int
	Loaded      int64
	ParseErrors int64
	Merged      int64
	Cleaned     int64
	Dropped     int64
	Imputed     int64
	Violations  int64
	Stored      int64
	Exported    []string
}

// Function variables used as test seams.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	loadSourcesFn = loadSources
)

// runPipeline loads every source, folds them into one table, runs the clean
// chain and hands the result to each configured sink. It returns the
// cleaned table; the run's counts go to the summary log line.
func runPipeline(ctx context.Context, p config.Pipeline, opts runOptions) (*frame.Frame, error) {
	job := pickString(opts.JobName, jobName(p))
	var stats runStats
	defer func() { logGlobalSummary(&stats) }()

	// Load.
	start := time.Now()
	results, err := loadSourcesFn(ctx, p)
	metrics.RecordStep(job, "load", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	tables := make([]merge.Table, len(results))
	for i, r := range results {
		tables[i] = merge.Table{Name: r.Name, Frame: r.Frame}
		stats.Sources++
		stats.Loaded += int64(r.Frame.Len())
		stats.ParseErrors += int64(r.Skipped)
	}
	metrics.RecordRow(job, "loaded", stats.Loaded)
	metrics.RecordRow(job, "parse_errors", stats.ParseErrors)

	// Merge.
	start = time.Now()
	merged, err := mergeTables(ctx, job, tables, p.Joins)
	metrics.RecordStep(job, "merge", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	stats.Merged = int64(merged.Len())
	metrics.RecordRow(job, "merged", stats.Merged)

	// Missing counts before cleaning feed the xlsx missing sheet.
	before := merged.NullCounts()
	logMissing("merged", before, opts.Verbose)

	// Clean.
	// Coerce failures can be many; log a bounded sample per column.
	coerceAgg := newErrAgg(thisMany)
	chain, err := buildTransformers(p.Clean, stepHooks{
		onCoerceFail: func(col string, row int, raw any) {
			coerceAgg.add(fmt.Sprintf("column %q: value did not parse", col),
				fmt.Sprintf("column %q row %d: value %q did not parse", col, row, fmt.Sprint(raw)))
		},
		onImpute: func(n int) {
			stats.Imputed += int64(n)
		},
		onViolation: func() {
			stats.Violations++
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build clean steps: %w", err)
	}
	cleaned, err := chain.ApplyObserved(merged, func(r transformer.Result) {
		log.Printf("clean: step=%d kind=%s rows=%d->%d cols=%d->%d dur=%s",
			r.Index, r.Kind, r.RowsIn, r.RowsOut, r.ColsIn, r.ColsOut, r.Duration.Truncate(time.Microsecond))
		metrics.RecordStep(job, "clean."+r.Kind, r.Err, r.Duration)
		// Only shrinking steps count as drops.
		if d := r.RowsIn - r.RowsOut; d > 0 {
			stats.Dropped += int64(d)
		}
	})
	coerceAgg.log("coerce")
	if err != nil {
		return nil, err
	}
	stats.Cleaned = int64(cleaned.Len())
	metrics.RecordRow(job, "dropped", stats.Dropped)
	metrics.RecordRow(job, "imputed", stats.Imputed)
	logMissing("cleaned", cleaned.NullCounts(), opts.Verbose)

	// Sinks.
	if err := runSinks(ctx, p, cleaned, before, &stats, job); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// loadSources reads every configured source concurrently.
func loadSources(ctx context.Context, p config.Pipeline) ([]loader.Result, error) {
	specs, err := loader.SpecsFromConfig(p.Sources)
	if err != nil {
		return nil, err
	}
	// Env wins over config, config over the built-in default.
	workers := pickInt(getenvInt("EVMERGE_LOAD_WORKERS", 0), pickInt(p.Runtime.LoadWorkers, defaultLoadWorkers))
	log.Printf("load: sources=%d workers=%d", len(specs), workers)
	return loader.LoadAll(ctx, specs, workers)
}

// mergeTables folds tables with the configured joins, recording a metrics
// step and the output row count for every join.
func mergeTables(ctx context.Context, job string, tables []merge.Table, joins []config.Join) (*frame.Frame, error) {
	steps, err := merge.StepsFromConfig(joins)
	if err != nil {
		return nil, err
	}
	return merge.Run(ctx, tables, steps, func(r merge.StepResult) {
		metrics.RecordStep(job, "join."+r.Source, r.Err, r.Duration)
		if r.Err == nil {
			metrics.RecordRow(job, "join_out", int64(r.Stats.Out))
		}
	})
}

// runSinks writes the cleaned table to storage, files and the report. All
// configured sinks run; the first failure is returned.
func runSinks(ctx context.Context, p config.Pipeline, f *frame.Frame, before []frame.ColumnNulls, stats *runStats, job string) error {
	var firstErr error
	record := func(step string, start time.Time, err error) {
		metrics.RecordStep(job, step, err, time.Since(start))
		if err != nil {
			log.Printf("sink: %s failed: %v", step, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", step, err)
			}
		}
	}

	if k := p.Storage.Kind; k != "" && k != "none" {
		start := time.Now()
		n, err := storeFrame(ctx, p, f)
		stats.Stored = n
		metrics.RecordRow(job, "stored", n)
		record("storage", start, err)
	}

	files := []struct {
		step, path string
		write      func(string) error
	}{
		{"export.csv", p.Export.CSV, func(path string) error { return export.WriteCSV(path, f) }},
		{"export.parquet", p.Export.Parquet, func(path string) error { return export.WriteParquet(path, f, p.Export.Compression) }},
		{"export.xlsx", p.Export.XLSX, func(path string) error { return export.WriteXLSX(path, f, before) }},
	}
	for _, x := range files {
		if x.path == "" {
			continue
		}
		start := time.Now()
		err := x.write(x.path)
		if err == nil {
			stats.Exported = append(stats.Exported, x.path)
			log.Printf("export: path=%s rows=%d cols=%d", x.path, f.Len(), f.Width())
		}
		record(x.step, start, err)
	}

	if p.Report.Dir != "" {
		start := time.Now()
		res, err := report.Write(p.Report.Dir, f, p.Report.TopN)
		stats.Exported = append(stats.Exported, res.Files...)
		record("report", start, err)
	}
	return firstErr
}

// storeFrame opens the configured backend, creates the table when asked
// and bulk-loads every row.
func storeFrame(ctx context.Context, p config.Pipeline, f *frame.Frame) (int64, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    p.Storage.Kind,
		DSN:     p.Storage.DB.DSN,
		Table:   p.Storage.DB.Table,
		Columns: f.Names(),
	})
	if err != nil {
		return 0, fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if p.Storage.DB.AutoCreateTable {
		log.Printf("storage: auto-create table=%s kind=%s", p.Storage.DB.Table, p.Storage.Kind)
		if err := storage.EnsureTable(ctx, p.Storage.Kind, repo, p.Storage.DB.Table, f); err != nil {
			return 0, fmt.Errorf("ensure table: %w", err)
		}
	}
	batch := pickInt(p.Runtime.BatchSize, storage.DefaultBatchSize)
	return storage.LoadFrame(ctx, repo, f, batch)
}

// logMissing prints per-column absent-value counts. Columns without gaps
// are listed only in verbose mode.
func logMissing(stage string, counts []frame.ColumnNulls, verbose bool) {
	total := 0
	for _, c := range counts {
		total += c.Nulls
		if c.Nulls > 0 || verbose {
			log.Printf("missing: stage=%s column=%q nulls=%d", stage, c.Column, c.Nulls)
		}
	}
	log.Printf("missing: stage=%s columns=%d total_nulls=%d", stage, len(counts), total)
}

func logGlobalSummary(s *runStats) {
	log.Printf(
		"summary: sources=%d loaded=%d parse_errors=%d merged=%d dropped=%d imputed=%d violations=%d cleaned=%d stored=%d files=%d",
		s.Sources, s.Loaded, s.ParseErrors, s.Merged, s.Dropped, s.Imputed, s.Violations, s.Cleaned, s.Stored, len(s.Exported),
	)
}

// errAgg counts repeated problems and keeps the first few messages.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

// add counts one problem under bucket and keeps sample while under limit.
func (a *errAgg) add(bucket, sample string) {
	a.mu.Lock()
	a.buckets[bucket]++
	if a.count < a.limit {
		a.first = append(a.first, sample)
	}
	a.count++
	a.mu.Unlock()
}

// log prints the first messages and the most frequent buckets.
func (a *errAgg) log(stage string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	for _, m := range a.first {
		log.Printf("%s: %s", stage, m)
	}
	type kv struct {
		msg string
		n   int
	}
	top := make([]kv, 0, len(a.buckets))
	for m, n := range a.buckets {
		top = append(top, kv{m, n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].n != top[j].n {
			return top[i].n > top[j].n
		}
		return top[i].msg < top[j].msg
	})
	if len(top) > a.limit {
		top = top[:a.limit]
	}
	for _, t := range top {
		log.Printf("%s: count=%d %s", stage, t.n, t.msg)
	}
	log.Printf("%s: total=%d distinct=%d", stage, a.count, len(a.buckets))
}

// getenvInt reads an integer env var, falling back to def.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt returns a when positive, otherwise b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// pickString returns a when non-empty, otherwise b.
func pickString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"evadoption/internal/frame"
)

// DefaultTopN is used when the pipeline leaves report.top_n unset.
const DefaultTopN = 10

// Result lists what Write produced.
type Result struct {
	Summary  Summary
	Files    []string
	Duration time.Duration
}

// Write builds the aggregates and renders the charts and summary workbook
// into dir.
func Write(dir string, f *frame.Frame, topN int) (Result, error) {
	start := time.Now()
	if topN <= 0 {
		topN = DefaultTopN
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	s, err := Build(f, topN)
	if err != nil {
		return Result{}, err
	}
	files, err := renderCharts(dir, s, topN)
	if err != nil {
		return Result{Summary: s, Files: files}, err
	}
	summary := filepath.Join(dir, FileSummary)
	if err := writeSummary(summary, s); err != nil {
		return Result{Summary: s, Files: files}, err
	}
	files = append(files, summary)

	res := Result{Summary: s, Files: files, Duration: time.Since(start)}
	log.Printf("report: dir=%s regions=%d points=%d files=%d dur=%s",
		dir, len(s.TotalEVsSold), len(s.Scatter), len(files), res.Duration.Truncate(time.Millisecond))
	return res, nil
}

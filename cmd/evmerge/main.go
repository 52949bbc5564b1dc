// Command evmerge loads the EV adoption source tables, merges them into one
// combined table, cleans it and writes the result to the configured sinks.
//
// Usage:
//
//	evmerge -config configs/pipelines/ev_adoption.json
//	evmerge -config configs/pipelines/ev_adoption_postgres.yaml -metrics-backend pushgateway
//	evmerge -config pipeline.json -validate
//
// Config problems are printed before anything runs; errors exit 1. Every
// run gets a uuid run id that prefixes its log lines and labels its metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"evadoption/internal/config"
	"evadoption/internal/metrics"
	"evadoption/internal/metrics/datadog"
	"evadoption/internal/metrics/prompush"

	// Register every storage backend; the pipeline file picks one.
	_ "evadoption/internal/storage/all"
)

// main loads the pipeline file, validates it, installs the metrics backend
// and runs load, merge, clean and the configured sinks.
func main() {
	var (
		cfgPath        string
		metricsBackend string
		pushGatewayURL string
		dogstatsdAddr  string
		validate       bool
	)
	flag.StringVar(&cfgPath, "config", "configs/pipelines/ev_adoption.json", "pipeline file (.json, .yaml or .yml)")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddr, "dogstatsd-addr", "", "DogStatsD address (env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the pipeline file and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	// Load and validate before touching any source or sink.
	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("pipeline is invalid: %s", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("pipeline is valid: %s", cfgPath)
		os.Exit(0)
	}

	// The short run id prefix keeps interleaved logs of parallel runs apart.
	runID := uuid.NewString()
	job := jobName(p)
	log.SetPrefix("[" + runID[:8] + "] ")

	if flush := installMetrics(job, runID, metricsBackend, pushGatewayURL, dogstatsdAddr, *verbose); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	log.Printf("pipeline: job=%s run_id=%s sources=%d joins=%d clean=%d storage=%q",
		job, runID, len(p.Sources), len(p.Joins), len(p.Clean), p.Storage.Kind)

	opts := runOptions{JobName: job, RunID: runID, Verbose: *verbose}
	if _, err := runPipeline(ctx, p, opts); err != nil {
		metrics.RecordStep(job, "pipeline", err, time.Since(start))
		log.Printf("pipeline failed: %v", err)
		// Flush before os.Exit; deferred calls do not run past it.
		if ferr := metrics.Flush(); ferr != nil {
			log.Printf("metrics: flush error: %v", ferr)
		}
		os.Exit(1)
	}
	metrics.RecordStep(job, "pipeline", nil, time.Since(start))
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// installMetrics resolves the backend flag → env → none and installs it.
// It returns the flush to defer, or nil when metrics are off.
func installMetrics(job, runID, backendName, gwURL, dsdAddr string, verbose bool) func() {
	backendName = pickString(backendName, os.Getenv("METRICS_BACKEND"))

	var (
		b   metrics.Backend
		err error
	)
	switch backendName {
	case "pushgateway":
		url := pickString(gwURL, pickString(os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091"))
		b, err = prompush.NewBackend(job, url, runID)
		if err == nil {
			log.Printf("metrics: backend=pushgateway url=%s job=%s", url, job)
		}
	case "datadog":
		addr := pickString(dsdAddr, pickString(os.Getenv("DOGSTATSD_ADDR"), "127.0.0.1:8125"))
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "evmerge.",
			GlobalTags: []string{"job:" + job, "run_id:" + runID},
		})
		if err == nil {
			log.Printf("metrics: backend=datadog addr=%s job=%s", addr, job)
		}
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}
		return nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return nil
	}
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
		return nil
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// jobName is the pipeline's job, used as the metrics job label.
func jobName(p config.Pipeline) string {
	return pickString(p.Job, "ev_adoption")
}

// fatalf prints to stderr and exits 1 without the log prefix.
func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
//
// A batch run ends before any scraper would see it, so the backend collects
// into a private client_golang registry and pushes once on Flush:
//
//   - evmerge_step_total and evmerge_step_duration_seconds are labelled by
//     step (load, join.<source>, clean.<kind>, storage, export.*, report)
//     and status;
//   - evmerge_rows_total is labelled by kind (loaded, join_out, merged,
//     dropped, imputed, stored).
//
// The pipeline job name is the Pushgateway job, so the job label is not
// repeated on the series. The run id is the run_id grouping key, which
// keeps concurrent runs from overwriting each other.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"evadoption/internal/metrics"
)

// Backend collects metrics into a private registry and pushes them on Flush.
type Backend struct {
	gatewayURL string
	jobName    string
	runID      string
	reg        *prometheus.Registry

	// Collectors registered on reg.
	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.SummaryVec
	rowCounter   *prometheus.CounterVec
}

// NewBackend builds a backend that pushes under job jobName, grouped by
// runID when it is non-empty.
func NewBackend(jobName, gatewayURL, runID string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "evmerge"
	}
	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.StepTotal,
		Help: "Pipeline stage executions by step and status.",
	}, []string{"step", "status"})
	stepDuration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:       metrics.StepDurationSeconds,
		Help:       "Pipeline stage duration in seconds by step and status.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"step", "status"})
	rowCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.RowsTotal,
		Help: "Row counts by kind (loaded, join_out, merged, dropped, imputed, stored).",
	}, []string{"kind"})

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		runID:        runID,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
	}, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	if b.runID != "" {
		p = p.Grouping("run_id", b.runID)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

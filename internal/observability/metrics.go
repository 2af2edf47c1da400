// Package observability exposes prometheus metrics for the permit core.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the metrics registry and collectors.
var Module = fx.Provide(NewMetrics)

type Metrics struct {
	registry *prometheus.Registry

	jobRuns       *prometheus.CounterVec
	jobErrors     *prometheus.CounterVec
	jobItemErrors *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec

	penaltiesApplied prometheus.Counter
	recalcDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripermit_scheduler_job_runs_total",
			Help: "Scheduled job invocations.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripermit_scheduler_job_errors_total",
			Help: "Scheduled job failures.",
		}, []string{"job"}),
		jobItemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripermit_scheduler_job_item_errors_total",
			Help: "Per-item failures skipped inside a batch job.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripermit_scheduler_job_duration_seconds",
			Help:    "Scheduled job wall time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		penaltiesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripermit_penalties_applied_total",
			Help: "Assessments that received surcharge/interest lines.",
		}),
		recalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripermit_penalty_recalc_duration_seconds",
			Help:    "Penalty recalculation wall time.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.jobRuns,
		m.jobErrors,
		m.jobItemErrors,
		m.jobDuration,
		m.penaltiesApplied,
		m.recalcDuration,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncJobRun(job string)       { m.jobRuns.WithLabelValues(job).Inc() }
func (m *Metrics) IncJobError(job string)     { m.jobErrors.WithLabelValues(job).Inc() }
func (m *Metrics) IncJobItemError(job string) { m.jobItemErrors.WithLabelValues(job).Inc() }

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) IncPenaltyApplied() { m.penaltiesApplied.Inc() }

func (m *Metrics) ObserveRecalcDuration(d time.Duration) {
	m.recalcDuration.Observe(d.Seconds())
}

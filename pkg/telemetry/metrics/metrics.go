// Package metrics exposes Prometheus instrumentation for policy
// evaluation and module lifecycle events.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcome labels.
const (
	OutcomeSatisfied = "satisfied"
	OutcomeConflict  = "conflict"
	OutcomeOpen      = "open"
	OutcomeComplex   = "complex"
	OutcomeError     = "error"
)

// EvaluationMetrics tracks metrics for policy evaluation.
//
// Metrics:
//   - callisto_policy_evaluations_total: Evaluations by policy and outcome
//   - callisto_policy_evaluation_duration_seconds: Evaluation duration
//   - callisto_policy_checker_hits_total: Decisions served by a compiled checker
//   - callisto_policy_reloads_total: Module reloads by status
//   - callisto_policy_registry_version: Version of the active module registry
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	checkerHitsTotal   *prometheus.CounterVec
	reloadsTotal       *prometheus.CounterVec
	registryVersion    prometheus.Gauge
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(namespace, subsystem string, registry *prometheus.Registry) *EvaluationMetrics {
	m := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"policy", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of policy evaluation in seconds",
				// Evaluations are expected to be fast (< 10ms).
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"policy"},
		),

		checkerHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checker_hits_total",
				Help:      "Total number of decisions served by a compiled checker",
			},
			[]string{"policy"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reloads_total",
				Help:      "Total number of module reloads by status",
			},
			[]string{"status"},
		),

		registryVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "registry_version",
				Help:      "Version of the active module registry",
			},
		),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.checkerHitsTotal,
		m.reloadsTotal,
		m.registryVersion,
	)

	return m
}

// RecordEvaluation records one policy evaluation.
func (m *EvaluationMetrics) RecordEvaluation(policy, outcome string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(policy, outcome).Inc()
	m.evaluationDuration.WithLabelValues(policy).Observe(duration.Seconds())
}

// RecordCheckerHit records a decision answered by a compiled checker
// without a full evaluation.
func (m *EvaluationMetrics) RecordCheckerHit(policy string) {
	m.checkerHitsTotal.WithLabelValues(policy).Inc()
}

// RecordReload records a module reload attempt.
func (m *EvaluationMetrics) RecordReload(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.reloadsTotal.WithLabelValues(status).Inc()
}

// SetRegistryVersion publishes the active registry version.
func (m *EvaluationMetrics) SetRegistryVersion(version int) {
	m.registryVersion.Set(float64(version))
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather finds a metric family by name in the registry.
func gather(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %q not registered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestEvaluationMetrics_RecordEvaluation(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics("callisto", "policy", registry)

	m.RecordEvaluation("access/is-admin", OutcomeSatisfied, 50*time.Microsecond)
	m.RecordEvaluation("access/is-admin", OutcomeSatisfied, 70*time.Microsecond)
	m.RecordEvaluation("access/is-admin", OutcomeOpen, 10*time.Microsecond)

	mf := gather(t, registry, "callisto_policy_evaluations_total")
	counts := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		counts[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
	}
	if counts[OutcomeSatisfied] != 2 || counts[OutcomeOpen] != 1 {
		t.Errorf("counts = %v", counts)
	}

	hist := gather(t, registry, "callisto_policy_evaluation_duration_seconds")
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("histogram samples = %d", got)
	}
}

func TestEvaluationMetrics_CheckerHits(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics("callisto", "policy", registry)

	m.RecordCheckerHit("limits/max-level")
	m.RecordCheckerHit("limits/max-level")

	mf := gather(t, registry, "callisto_policy_checker_hits_total")
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("hits = %v", got)
	}
}

func TestEvaluationMetrics_Reloads(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics("callisto", "policy", registry)

	m.RecordReload(nil)
	m.RecordReload(errors.New("parse failure"))
	m.RecordReload(nil)

	mf := gather(t, registry, "callisto_policy_reloads_total")
	counts := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		counts[labelValue(metric, "status")] = metric.GetCounter().GetValue()
	}
	if counts["success"] != 2 || counts["failure"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestEvaluationMetrics_RegistryVersion(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics("callisto", "policy", registry)

	m.SetRegistryVersion(7)

	mf := gather(t, registry, "callisto_policy_registry_version")
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("version = %v", got)
	}
}

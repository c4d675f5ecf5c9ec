package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/source"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

func accessModule() module.ModuleDef {
	return module.ModuleDef{
		Namespace: "access",
		Policies: map[string]any{
			"is-admin": []any{":=", ":doc/role", "admin"},
			"max-level": module.PolicySpec{
				Expr:   []any{":<=", ":doc/level", ":param/max"},
				Params: map[string]any{"max": 10.0},
			},
		},
	}
}

// failingSource always errors.
type failingSource struct{}

func (failingSource) Load(ctx context.Context) ([]module.ModuleDef, error) {
	return nil, errors.New("source unavailable")
}

func TestManager_Load(t *testing.T) {
	m := New(Config{
		Sources: []Source{source.NewMemorySource(accessModule())},
	})

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Registry().Has("access") {
		t.Error("module not registered")
	}
}

func TestManager_LoadFailureKeepsRegistry(t *testing.T) {
	mem := source.NewMemorySource(accessModule())
	m := New(Config{Sources: []Source{mem}})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	active := m.Registry()

	mem.SetDefs([]module.ModuleDef{
		{Namespace: "bad", Policies: map[string]any{"p": []any{1.0}}},
	})
	if err := m.Load(context.Background()); err == nil {
		t.Fatal("expected load failure")
	}
	if m.Registry() != active {
		t.Error("failed load swapped the registry")
	}
}

func TestManager_LoadSourceError(t *testing.T) {
	m := New(Config{Sources: []Source{failingSource{}}})
	if err := m.Load(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
}

func TestManager_Evaluate(t *testing.T) {
	m := New(Config{Sources: []Source{source.NewMemorySource(accessModule())}})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	t.Run("satisfied", func(t *testing.T) {
		res, err := m.Evaluate("access/is-admin", map[string]any{"role": "admin"}, EvalOptions{})
		if err != nil || !res.IsSatisfied() {
			t.Errorf("res = %v, err = %v", res, err)
		}
	})

	t.Run("conflict", func(t *testing.T) {
		res, err := m.Evaluate("access/is-admin", map[string]any{"role": "guest"}, EvalOptions{})
		if err != nil || !res.HasConflicts() {
			t.Errorf("res = %v, err = %v", res, err)
		}
	})

	t.Run("open", func(t *testing.T) {
		res, err := m.Evaluate("access/is-admin", map[string]any{}, EvalOptions{})
		if err != nil || !res.IsOpen() {
			t.Errorf("res = %v, err = %v", res, err)
		}
	})

	t.Run("module parameter defaults apply", func(t *testing.T) {
		res, err := m.Evaluate("access/max-level", map[string]any{"level": 7.0}, EvalOptions{})
		if err != nil || !res.IsSatisfied() {
			t.Errorf("res = %v, err = %v", res, err)
		}
	})

	t.Run("explicit params override defaults", func(t *testing.T) {
		res, err := m.Evaluate("access/max-level", map[string]any{"level": 7.0}, EvalOptions{
			Params: map[string]any{"max": 5.0},
		})
		if err != nil || !res.HasConflicts() {
			t.Errorf("res = %v, err = %v", res, err)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		if _, err := m.Evaluate("access/ghost", nil, EvalOptions{}); err == nil {
			t.Error("unknown policy accepted")
		}
	})

	t.Run("malformed name", func(t *testing.T) {
		for _, name := range []string{"is-admin", "/x", "ns/", ""} {
			if _, err := m.Evaluate(name, nil, EvalOptions{}); err == nil {
				t.Errorf("name %q accepted", name)
			}
		}
	})
}

func TestManager_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	em := metrics.NewEvaluationMetrics("callisto", "policy", registry)

	mem := source.NewMemorySource(accessModule())
	m := New(Config{Sources: []Source{mem}, Metrics: em})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.Evaluate("access/is-admin", map[string]any{"role": "admin"}, EvalOptions{}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	seen := map[string]bool{}
	for _, mf := range families {
		seen[mf.GetName()] = true
	}
	if !seen["callisto_policy_evaluations_total"] || !seen["callisto_policy_reloads_total"] {
		t.Errorf("metric families = %v", seen)
	}
}

func TestOutcome(t *testing.T) {
	m := New(Config{Sources: []Source{source.NewMemorySource(accessModule())}})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{"satisfied", map[string]any{"role": "admin"}, metrics.OutcomeSatisfied},
		{"conflict", map[string]any{"role": "guest"}, metrics.OutcomeConflict},
		{"open", map[string]any{}, metrics.OutcomeOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Evaluate("access/is-admin", tt.doc, EvalOptions{})
			if got := Outcome(res, err); got != tt.want {
				t.Errorf("Outcome = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("error", func(t *testing.T) {
		if got := Outcome(nil, errors.New("boom")); got != metrics.OutcomeError {
			t.Errorf("Outcome = %q", got)
		}
	})
}

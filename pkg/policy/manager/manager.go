// Package manager composes module sources, the registry loader, hot
// reload and metrics into one policy lifecycle object.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"mercator-hq/callisto/pkg/policy/collection"
	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/residual"
	"mercator-hq/callisto/pkg/policy/unify"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Source provides module definitions to load into the registry.
type Source interface {
	Load(ctx context.Context) ([]module.ModuleDef, error)
}

// Config contains configuration for the Manager.
type Config struct {
	// Sources provide module definitions, loaded in order.
	Sources []Source

	// Operators resolves comparison operators during evaluation. Nil
	// means the builtin set.
	Operators *operator.Context

	// Collections resolves quantifier and aggregation operations. Nil
	// means the builtin set.
	Collections *collection.Registry

	// MaxDepth bounds policy reference recursion. Zero means the
	// evaluator default.
	MaxDepth int

	// Metrics receives evaluation and reload metrics. Optional.
	Metrics *metrics.EvaluationMetrics

	// Logger is the structured logger. Nil means slog.Default.
	Logger *slog.Logger
}

// Manager owns the active module registry and evaluates policies
// against it. Reloads swap the registry atomically; in-flight
// evaluations keep the registry they started with.
type Manager struct {
	sources  []Source
	ops      *operator.Context
	colls    *collection.Registry
	maxDepth int
	metrics  *metrics.EvaluationMetrics
	logger   *slog.Logger

	registry atomic.Pointer[module.Registry]
}

// New creates a Manager. Call Load before evaluating.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sources:  cfg.Sources,
		ops:      cfg.Operators,
		colls:    cfg.Collections,
		maxDepth: cfg.MaxDepth,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "policy.manager"),
	}
	m.registry.Store(module.NewRegistry())
	return m
}

// Registry returns the active registry.
func (m *Manager) Registry() *module.Registry {
	return m.registry.Load()
}

// Load collects definitions from all sources and swaps in a freshly
// loaded registry. On failure the active registry is left untouched.
func (m *Manager) Load(ctx context.Context) error {
	var defs []module.ModuleDef
	for _, src := range m.sources {
		loaded, err := src.Load(ctx)
		if err != nil {
			m.recordReload(err)
			return fmt.Errorf("loading module definitions: %w", err)
		}
		defs = append(defs, loaded...)
	}

	reg, err := module.LoadModules(module.NewRegistry(), defs)
	if err != nil {
		m.recordReload(err)
		return fmt.Errorf("registering modules: %w", err)
	}

	m.registry.Store(reg)
	m.recordReload(nil)
	if m.metrics != nil {
		m.metrics.SetRegistryVersion(reg.Version())
	}

	m.logger.Info("module registry swapped",
		"modules", len(reg.Namespaces()),
		"version", reg.Version(),
	)
	return nil
}

func (m *Manager) recordReload(err error) {
	if m.metrics != nil {
		m.metrics.RecordReload(err)
	}
	if err != nil {
		m.logger.Error("module reload failed", "error", err)
	}
}

// EvalOptions carries the per-evaluation context.
type EvalOptions struct {
	// Params bind policy parameters, overriding module defaults.
	Params map[string]any

	// Self and Event populate the corresponding accessor namespaces.
	Self  map[string]any
	Event map[string]any
}

// Evaluate runs a policy, addressed as "namespace/name", against a
// document. Module parameter defaults apply under explicit params.
func (m *Manager) Evaluate(policy string, doc map[string]any, opts EvalOptions) (residual.Residual, error) {
	ns, name, ok := splitPolicyName(policy)
	if !ok {
		return nil, fmt.Errorf("policy name %q must have the form namespace/name", policy)
	}

	reg := m.registry.Load()
	p, found := reg.ResolvePolicy(ns, name)
	if !found {
		return nil, fmt.Errorf("policy %q not found", policy)
	}

	params := make(map[string]any, len(p.Params)+len(opts.Params))
	for k, v := range p.Params {
		if v != nil {
			params[k] = v
		}
	}
	for k, v := range opts.Params {
		params[k] = v
	}

	start := time.Now()
	res, err := unify.Unify(p.AST, doc, &unify.Options{
		Operators:   m.ops,
		Collections: m.colls,
		Registry:    reg,
		Params:      params,
		Self:        opts.Self,
		Event:       opts.Event,
		MaxDepth:    m.maxDepth,
	})

	if m.metrics != nil {
		m.metrics.RecordEvaluation(policy, Outcome(res, err), time.Since(start))
	}
	return res, err
}

// Outcome classifies an evaluation result into a metrics label.
func Outcome(res residual.Residual, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case res.IsSatisfied():
		return metrics.OutcomeSatisfied
	case res.HasConflicts():
		return metrics.OutcomeConflict
	case res.HasComplex():
		return metrics.OutcomeComplex
	default:
		return metrics.OutcomeOpen
	}
}

// splitPolicyName splits "namespace/name" at the first slash.
func splitPolicyName(policy string) (string, string, bool) {
	idx := strings.Index(policy, "/")
	if idx <= 0 || idx == len(policy)-1 {
		return "", "", false
	}
	return policy[:idx], policy[idx+1:], true
}

// Package recorder builds decision records from evaluation results and
// writes them to a store asynchronously.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/decision"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Config contains configuration for the recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder drops every
	// evaluation silently.
	Enabled bool

	// Buffer is the async write channel size. Default: 1000
	Buffer int

	// WriteTimeout bounds each store write. Default: 5s
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Evaluation is the input to Record: one policy evaluation and its
// result.
type Evaluation struct {
	// Policy is the evaluated policy, "namespace/name".
	Policy string

	// RegistryVersion is the module registry version in effect.
	RegistryVersion int

	// Document is the evaluated document. Only its hash is stored.
	Document map[string]any

	// Residual is the evaluation result.
	Residual residual.Residual

	// Err is the evaluation fault, if any.
	Err error

	// Duration is the evaluation wall time.
	Duration time.Duration
}

// Recorder writes decision records to a store without blocking the
// evaluation path. Records queue on a channel; a background worker
// drains it. When the queue is full, records drop and a counter
// increments.
type Recorder struct {
	store   decision.Store
	config  *Config
	records chan *decision.Record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
	logger  *slog.Logger
}

// New creates a recorder and starts its background worker.
func New(store decision.Store, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:   store,
		config:  config,
		records: make(chan *decision.Record, config.Buffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "decision.recorder"),
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues one evaluation for storage and returns immediately.
func (r *Recorder) Record(eval Evaluation) {
	if !r.config.Enabled {
		return
	}

	record := buildRecord(eval)
	select {
	case r.records <- record:
	default:
		dropped := r.dropped.Add(1)
		r.logger.Warn("decision record dropped, queue full",
			"policy", eval.Policy,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns the number of records dropped due to a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the worker after draining queued records.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case record := <-r.records:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *decision.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Store(ctx, record); err != nil {
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"policy", record.Policy,
			"error", err,
		)
		return
	}
	r.logger.Debug("decision recorded",
		"record_id", record.ID,
		"policy", record.Policy,
		"outcome", record.Outcome,
	)
}

// buildRecord assembles the stored record from an evaluation.
func buildRecord(eval Evaluation) *decision.Record {
	record := &decision.Record{
		ID:              uuid.NewString(),
		Time:            time.Now(),
		Policy:          eval.Policy,
		RegistryVersion: eval.RegistryVersion,
		DocumentHash:    HashDocument(eval.Document),
		Outcome:         Classify(eval.Residual, eval.Err),
		Duration:        eval.Duration,
	}

	if eval.Err != nil {
		record.Error = eval.Err.Error()
		return record
	}
	if eval.Residual.IsSatisfied() {
		return record
	}

	record.Residual = eval.Residual.String()
	record.Paths = eval.Residual.Paths()
	record.Witnesses = collectWitnesses(eval.Residual)
	return record
}

// Classify maps an evaluation result onto a decision outcome.
func Classify(res residual.Residual, err error) string {
	switch {
	case err != nil:
		return decision.OutcomeError
	case res.IsSatisfied():
		return decision.OutcomeSatisfied
	case res.HasConflicts():
		return decision.OutcomeConflict
	case res.HasComplex():
		return decision.OutcomeComplex
	default:
		return decision.OutcomeOpen
	}
}

// collectWitnesses extracts the conflicting document values from a
// residual, keyed by path.
func collectWitnesses(res residual.Residual) []decision.Witness {
	var witnesses []decision.Witness
	for _, key := range res.Paths() {
		for _, term := range res[key] {
			if term.Kind != residual.TermConflict {
				continue
			}
			witnesses = append(witnesses, decision.Witness{
				Path:     key,
				Op:       string(term.Constraint.Op),
				Expected: term.Constraint.Value,
				Actual:   term.Witness,
			})
		}
	}
	return witnesses
}

// Package retention prunes the decision log by age and by record
// count, optionally on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/callisto/pkg/decision"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// Days is how long records are kept. Zero disables age pruning.
	Days int

	// Schedule is a cron expression for scheduled pruning. Empty
	// disables the scheduler.
	Schedule string

	// MaxRecords caps the number of stored records. Zero means no
	// cap; beyond it the oldest records go first.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		Days:     90,
		Schedule: "0 3 * * *",
	}
}

// Pruner enforces the retention policy on a decision store.
type Pruner struct {
	store     decision.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner.
func NewPruner(store decision.Store, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		store:  store,
		config: config,
		logger: logger.With("component", "decision.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune runs both phases and returns the total number of records
// deleted: first records older than the retention period, then the
// oldest records beyond the count cap.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("decision log pruned",
			"deleted", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.Days)
	return p.store.Delete(ctx, &decision.Query{EndTime: &cutoff})
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, nil)
	if err != nil {
		return 0, err
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}
	excess := int(count - p.config.MaxRecords)

	// The oldest records beyond the cap set the deletion cutoff.
	oldest, err := p.store.Query(ctx, &decision.Query{
		SortOrder: "asc",
		Limit:     excess,
	})
	if err != nil {
		return 0, err
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].Time
	return p.store.Delete(ctx, &decision.Query{EndTime: &cutoff})
}

// Start starts the cron scheduler, if a schedule is configured.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled pruning time, if any.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}

package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/compliance/pkg/config"
)

// RetentionConfig controls which archived reports the pruner removes.
type RetentionConfig struct {
	// RetentionDays removes reports older than this many days.
	// 0 keeps reports forever.
	RetentionDays int

	// MaxRecords keeps at most this many reports, removing the oldest.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is the cron expression used by the Scheduler.
	PruneSchedule string
}

// RetentionFromConfig extracts the retention settings of an archive config.
func RetentionFromConfig(cfg config.ArchiveConfig) RetentionConfig {
	return RetentionConfig{
		RetentionDays: cfg.RetentionDays,
		MaxRecords:    cfg.MaxRecords,
		PruneSchedule: cfg.PruneSchedule,
	}
}

// Pruner enforces retention on an archive.
type Pruner struct {
	storage Storage
	config  RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a pruner for storage.
func NewPruner(storage Storage, cfg RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "archive.retention"),
		now:     time.Now,
	}
}

// Config returns the retention settings.
func (p *Pruner) Config() RetentionConfig {
	return p.config
}

// Prune deletes reports older than the retention period, then the oldest
// reports beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, p.retentionError(fmt.Errorf("prune by age: %w", err))
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, p.retentionError(fmt.Errorf("prune by count: %w", err))
		}
		total += deleted
	}

	if total == 0 {
		p.logger.Debug("no reports pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("archive pruning completed",
			"deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

// PruneOlderThan deletes reports recorded before cutoff regardless of the
// configured retention.
func (p *Pruner) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return p.storage.Delete(ctx, &Query{Before: &cutoff})
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	p.logger.Debug("pruning by age", "cutoff", cutoff)
	return p.PruneOlderThan(ctx, cutoff)
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &Query{})
	if err != nil {
		return 0, err
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords
	oldest, err := p.storage.List(ctx, &Query{OldestFirst: true, Limit: int(excess)})
	if err != nil {
		return 0, err
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	ids := make([]string, len(oldest))
	for i, r := range oldest {
		ids[i] = r.ID
	}
	p.logger.Info("report count exceeds limit, pruning oldest",
		"count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", len(ids),
	)
	return p.storage.Delete(ctx, &Query{IDs: ids})
}

func (p *Pruner) retentionError(err error) error {
	return &RetentionError{
		RetentionDays: p.config.RetentionDays,
		MaxRecords:    p.config.MaxRecords,
		Cause:         err,
	}
}

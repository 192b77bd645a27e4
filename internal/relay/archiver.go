package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/config"
)

// Pruner is the store slice the archiver needs.
type Pruner interface {
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver prunes delivered outbox rows past the retention window so the
// hot table stays small. Pending and dead-lettered rows are left alone;
// dead-letters are an operator concern, never garbage.
type Archiver struct {
	store     Pruner
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
}

func NewArchiver(store Pruner, cfg *config.Config, logger *zap.Logger) *Archiver {
	return &Archiver{
		store:     store,
		logger:    logger.Named("outbox.archiver"),
		interval:  cfg.ArchiveInterval,
		retention: cfg.ArchiveRetention,
	}
}

func (a *Archiver) Run(ctx context.Context) {
	if err := a.prune(ctx); err != nil {
		a.logger.Error("archive_initial_prune_failed", zap.Error(err))
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.prune(ctx); err != nil {
				a.logger.Error("archive_prune_failed", zap.Error(err))
			}
		}
	}
}

func (a *Archiver) prune(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-a.retention)
	pruned, err := a.store.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		metricArchived.Add(float64(pruned))
		a.logger.Info("outbox_rows_pruned",
			zap.Int64("rows", pruned),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

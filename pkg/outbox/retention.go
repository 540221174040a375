package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/mfigueredo/vendora-backend/pkg/logger"
)

const defaultRetention = 7 * 24 * time.Hour

type retentionRepository interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

// RetentionJob prunes published outbox rows past the retention horizon.
// It runs under the cron worker's scheduler.
type RetentionJob struct {
	repo      retentionRepository
	retention time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

func NewRetentionJob(repo retentionRepository, retention time.Duration, logg *logger.Logger, now func() time.Time) (*RetentionJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &RetentionJob{repo: repo, retention: retention, logg: logg, now: now}, nil
}

func (j *RetentionJob) Name() string {
	return "outbox-retention"
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(cutoff)
	if err != nil {
		return fmt.Errorf("pruning outbox: %w", err)
	}
	if j.logg != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"deleted": deleted,
			"cutoff":  cutoff,
		})
		j.logg.Info(logCtx, "outbox retention finished")
	}
	return nil
}

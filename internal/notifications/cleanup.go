package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/mfigueredo/vendora-backend/pkg/logger"
)

const defaultRetention = 90 * 24 * time.Hour

// CleanupJob prunes read notifications past the retention window.
type CleanupJob struct {
	repo      Repository
	retention time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewCleanupJob builds the retention job for cron registration.
func NewCleanupJob(repo Repository, retention time.Duration, logg *logger.Logger, now func() time.Time) (*CleanupJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &CleanupJob{repo: repo, retention: retention, logg: logg, now: now}, nil
}

// Name identifies the job in logs and metrics.
func (j *CleanupJob) Name() string { return "notification-cleanup" }

// Run deletes read notifications older than the retention window.
func (j *CleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	if j.logg != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{"deleted": deleted})
		j.logg.Info(logCtx, "notification cleanup finished")
	}
	return nil
}

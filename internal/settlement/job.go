package settlement

import (
	"context"
	"fmt"

	"github.com/mfigueredo/vendora-backend/pkg/logger"
)

// Job adapts the sweeper to the cron worker's job contract.
type Job struct {
	sweeper *Sweeper
	logg    *logger.Logger
}

// NewJob wraps a sweeper for cron registration.
func NewJob(sweeper *Sweeper, logg *logger.Logger) (*Job, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &Job{sweeper: sweeper, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *Job) Name() string { return "settlement-sweep" }

// Run executes one sweep batch.
func (j *Job) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx)
	if j.logg != nil && result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"scanned":  result.Scanned,
			"released": result.Released,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
		})
		j.logg.Info(logCtx, "settlement sweep finished")
	}
	return err
}

package task

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const orphanSweepJobName = "orphan_sweep"

// ErrMissingSweeper reports an OrphanSweep built without a store.
var ErrMissingSweeper = errors.New("task: orphan sweeper is required")

// OrphanSweeper removes testimonials whose space no longer exists.
type OrphanSweeper interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// OrphanSweep cleans up testimonials left behind when a submission raced a
// space deletion.
type OrphanSweep struct {
	sweeper OrphanSweeper
	logger  *zap.Logger
}

// NewOrphanSweep builds the job.
func NewOrphanSweep(sweeper OrphanSweeper, logger *zap.Logger) (*OrphanSweep, error) {
	if sweeper == nil {
		return nil, ErrMissingSweeper
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrphanSweep{sweeper: sweeper, logger: logger}, nil
}

// Name identifies the job in logs.
func (sweep *OrphanSweep) Name() string {
	return orphanSweepJobName
}

// Run deletes orphaned testimonials once.
func (sweep *OrphanSweep) Run(ctx context.Context) error {
	removed, sweepErr := sweep.sweeper.DeleteOrphans(ctx)
	if sweepErr != nil {
		return sweepErr
	}
	if removed > 0 {
		sweep.logger.Info("orphaned_testimonials_removed", zap.Int64("count", removed))
	}
	return nil
}

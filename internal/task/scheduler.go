package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSchedulerInterval = time.Hour

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a Job on a fixed interval until stopped. Trigger requests an
// extra run without waiting for the next tick.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *zap.Logger
	trigger  chan struct{}

	lifecycleMutex sync.Mutex
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewScheduler builds a Scheduler. A non-positive interval falls back to one hour.
func NewScheduler(interval time.Duration, job Job, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the scheduling goroutine. Calling Start twice is a no-op.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler == nil || scheduler.job == nil {
		return
	}
	scheduler.lifecycleMutex.Lock()
	defer scheduler.lifecycleMutex.Unlock()
	if scheduler.cancel != nil {
		return
	}
	loopContext, cancel := context.WithCancel(ctx)
	scheduler.cancel = cancel
	scheduler.done = make(chan struct{})
	go scheduler.loop(loopContext, scheduler.done)
}

// Trigger asks for a run as soon as the loop is free.
func (scheduler *Scheduler) Trigger() {
	if scheduler == nil {
		return
	}
	select {
	case scheduler.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (scheduler *Scheduler) Stop() {
	if scheduler == nil {
		return
	}
	scheduler.lifecycleMutex.Lock()
	cancel, done := scheduler.cancel, scheduler.done
	scheduler.cancel, scheduler.done = nil, nil
	scheduler.lifecycleMutex.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (scheduler *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduler.trigger:
		case <-ticker.C:
		}
		scheduler.run(ctx)
	}
}

func (scheduler *Scheduler) run(ctx context.Context) {
	if scheduler.job == nil || ctx.Err() != nil {
		return
	}
	started := time.Now()
	if runErr := scheduler.job.Run(ctx); runErr != nil {
		scheduler.logger.Warn("scheduled_job_failed", zap.String("job", scheduler.job.Name()), zap.Error(runErr))
		return
	}
	scheduler.logger.Debug("scheduled_job_finished", zap.String("job", scheduler.job.Name()), zap.Duration("dur", time.Since(started)))
}

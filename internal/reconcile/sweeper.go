// Package reconcile schedules the periodic sweep that folds gateway-side
// transfer auto-releases back into local state.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const defaultInterval = time.Hour

// Sweeper owns the gocron scheduler around the reconciliation operation.
type Sweeper struct {
	service   *payments.Service
	logger    *zap.Logger
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewSweeper builds an idle sweeper. A non-positive interval falls back to
// the hourly default.
func NewSweeper(service *payments.Service, logger *zap.Logger, interval time.Duration) (*Sweeper, error) {
	if service == nil {
		return nil, fmt.Errorf("reconcile sweeper requires a payments service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Sweeper{
		service:   service,
		logger:    logger,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start registers the sweep job and begins running it on the interval.
func (sweeper *Sweeper) Start(ctx context.Context) error {
	_, err := sweeper.scheduler.NewJob(
		gocron.DurationJob(sweeper.interval),
		gocron.NewTask(func() {
			sweeper.RunOnce(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule reconciliation job: %w", err)
	}
	sweeper.scheduler.Start()
	sweeper.logger.Info("reconciliation sweep scheduled", zap.Duration("interval", sweeper.interval))
	return nil
}

// RunOnce executes a single sweep immediately.
func (sweeper *Sweeper) RunOnce(ctx context.Context) {
	result, err := sweeper.service.ReconcileHeldTransfers(ctx, time.Now().UTC().Unix())
	if err != nil {
		sweeper.logger.Warn("reconciliation sweep failed", zap.Error(err))
		return
	}
	if result.Scanned > 0 {
		sweeper.logger.Info("reconciliation sweep complete",
			zap.Int("scanned", result.Scanned),
			zap.Int("folded", result.Folded),
		)
	}
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (sweeper *Sweeper) Stop() error {
	return sweeper.scheduler.Shutdown()
}

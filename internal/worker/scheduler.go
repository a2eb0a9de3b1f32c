package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/podreach/publisher/internal/dispatch"
	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/store"
)

// Scheduler triggers a publish run on a fixed interval, the unattended
// counterpart to the operator's HTTP trigger.
//
// The dispatcher's own run gate keeps ticks from overlapping: a tick that
// lands while a previous run is still draining its inter-item delays just
// skips. No work is lost — the items stay pending for the next tick.
type Scheduler struct {
	dispatcher *dispatch.Dispatcher
	store      store.QueueStore
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger

	// onDepths publishes queue-depth gauges after each tick; nil = no-op.
	onDepths func(map[domain.Status]int)
}

func NewScheduler(
	dispatcher *dispatch.Dispatcher,
	qs store.QueueStore,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
	onDepths func(map[domain.Status]int),
) *Scheduler {
	if onDepths == nil {
		onDepths = func(map[domain.Status]int) {}
	}
	return &Scheduler{
		dispatcher: dispatcher,
		store:      qs,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		onDepths:   onDepths,
	}
}

// Run ticks every interval and triggers a publish run.
// Stops cleanly when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("publish scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("publish scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary, err := s.dispatcher.Run(ctx, s.batchSize)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.logger.Debug("previous publish run still active, skipping tick")
	case err != nil:
		s.logger.Error("scheduled publish run failed", zap.Error(err))
	case summary.Processed > 0:
		s.logger.Info("scheduled publish run done",
			zap.Int("processed", summary.Processed),
			zap.Int("successful", summary.Successful),
			zap.Int("failed", summary.Failed),
		)
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		s.logger.Warn("queue depth refresh failed", zap.Error(err))
		return
	}
	s.onDepths(counts)
}

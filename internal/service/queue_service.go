package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/store"
)

// QueueService is the write path for the upstream approval workflow and the
// read path for the dashboard. It validates and persists; it never mutates
// items after insertion — only the dispatcher does that.
type QueueService struct {
	store  store.QueueStore
	logger *zap.Logger
}

func NewQueueService(qs store.QueueStore, logger *zap.Logger) *QueueService {
	return &QueueService{store: qs, logger: logger}
}

// Enqueue validates and persists one approved reply as a pending queue item.
func (s *QueueService) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.QueueItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item := &domain.QueueItem{
		ID:          uuid.New().String(),
		TargetID:    req.TargetID,
		EpisodeID:   req.EpisodeID,
		PayloadText: req.PayloadText,
		Status:      domain.StatusPending,
		Priority:    req.Priority,
		AddedAt:     time.Now().UTC(),
	}

	if err := s.store.Enqueue(ctx, item); err != nil {
		if err == domain.ErrDuplicateTarget {
			return nil, err
		}
		return nil, fmt.Errorf("persist queue item: %w", err)
	}

	s.logger.Info("reply queued",
		zap.String("id", item.ID),
		zap.String("target_id", item.TargetID),
		zap.Int("priority", item.Priority),
	)
	return item, nil
}

func (s *QueueService) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	return s.store.GetByID(ctx, id)
}

func (s *QueueService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QueueItem, int, error) {
	return s.store.List(ctx, filter)
}

func (s *QueueService) Counts(ctx context.Context) (map[domain.Status]int, error) {
	return s.store.CountByStatus(ctx)
}

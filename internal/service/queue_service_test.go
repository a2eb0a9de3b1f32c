package service_test

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/service"
	"github.com/podreach/publisher/internal/store"
)

func newService() (*service.QueueService, *store.MemoryQueueStore) {
	s := store.NewMemoryQueueStore()
	return service.NewQueueService(s, zap.NewNop()), s
}

var validReq = domain.EnqueueRequest{
	TargetID:    "1887432190",
	PayloadText: "We covered exactly this in episode 42, worth a listen!",
	Priority:    1,
}

func TestQueueService_Enqueue(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected a non-empty ID")
	}
	if item.Status != domain.StatusPending {
		t.Fatalf("expected status=pending, got %s", item.Status)
	}

	stored, err := s.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("item not persisted: %v", err)
	}
	if stored.PayloadText != validReq.PayloadText {
		t.Fatal("payload text mismatch")
	}
}

func TestQueueService_Enqueue_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.EnqueueRequest)
		wantErr error
	}{
		{"missing target", func(r *domain.EnqueueRequest) { r.TargetID = "" }, domain.ErrInvalidTarget},
		{"empty payload", func(r *domain.EnqueueRequest) { r.PayloadText = "" }, domain.ErrInvalidPayload},
		{"payload too long", func(r *domain.EnqueueRequest) { r.PayloadText = strings.Repeat("x", 281) }, domain.ErrInvalidPayload},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validReq
			tc.mutate(&req)
			_, err := svc.Enqueue(ctx, req)
			if err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestQueueService_Enqueue_MaxLengthPayloadAccepted(t *testing.T) {
	svc, _ := newService()

	req := validReq
	req.PayloadText = strings.Repeat("y", 280)
	if _, err := svc.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("280-char payload must be valid, got %v", err)
	}
}

func TestQueueService_Enqueue_DuplicateTarget(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Enqueue(ctx, validReq); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	_, err := svc.Enqueue(ctx, validReq)
	if err != domain.ErrDuplicateTarget {
		t.Fatalf("expected ErrDuplicateTarget, got %v", err)
	}
}

func TestQueueService_GetByID_NotFound(t *testing.T) {
	svc, _ := newService()
	_, err := svc.GetByID(context.Background(), "does-not-exist")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/store"
)

func pendingItem(id, target string, priority int, addedAt time.Time) *domain.QueueItem {
	return &domain.QueueItem{
		ID:          id,
		TargetID:    target,
		PayloadText: "Great episode, thanks for the mention!",
		Status:      domain.StatusPending,
		Priority:    priority,
		AddedAt:     addedAt,
	}
}

func TestClaimNext_OrderAndStatus(t *testing.T) {
	s := store.NewMemoryQueueStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of service order on purpose.
	_ = s.Enqueue(ctx, pendingItem("a", "t-a", 0, base.Add(2*time.Minute)))
	_ = s.Enqueue(ctx, pendingItem("b", "t-b", 5, base.Add(3*time.Minute)))
	_ = s.Enqueue(ctx, pendingItem("c", "t-c", 5, base.Add(1*time.Minute)))

	claimed, err := s.ClaimNext(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed items, got %d", len(claimed))
	}
	// Priority 5 first, older one leading.
	if claimed[0].ID != "c" || claimed[1].ID != "b" {
		t.Fatalf("unexpected claim order: %s, %s", claimed[0].ID, claimed[1].ID)
	}
	for _, item := range claimed {
		if item.Status != domain.StatusProcessing {
			t.Fatalf("claimed item %s not marked processing: %s", item.ID, item.Status)
		}
	}

	// The unclaimed item must still be pending.
	left, _ := s.GetByID(ctx, "a")
	if left.Status != domain.StatusPending {
		t.Fatalf("expected item a to stay pending, got %s", left.Status)
	}
}

// TestClaimNext_NoDoubleClaim simulates concurrent dispatcher runs and
// verifies no item is ever returned by more than one claim.
func TestClaimNext_NoDoubleClaim(t *testing.T) {
	s := store.NewMemoryQueueStore()
	ctx := context.Background()
	base := time.Now().UTC()

	const total = 200
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("item-%03d", i)
		_ = s.Enqueue(ctx, pendingItem(id, "target-"+id, i%3, base.Add(time.Duration(i)*time.Second)))
	}

	const claimers = 8
	results := make([][]*domain.QueueItem, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				claimed, err := s.ClaimNext(ctx, 7)
				if err != nil || len(claimed) == 0 {
					return
				}
				results[i] = append(results[i], claimed...)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	claimedTotal := 0
	for _, r := range results {
		for _, item := range r {
			seen[item.ID]++
			claimedTotal++
		}
	}
	if claimedTotal != total {
		t.Fatalf("expected %d items claimed overall, got %d", total, claimedTotal)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("item %s claimed %d times", id, n)
		}
	}
}

func TestEnqueue_DuplicateLiveTarget(t *testing.T) {
	s := store.NewMemoryQueueStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Enqueue(ctx, pendingItem("one", "tweet-1", 0, now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Enqueue(ctx, pendingItem("two", "tweet-1", 0, now))
	if err != domain.ErrDuplicateTarget {
		t.Fatalf("expected ErrDuplicateTarget, got %v", err)
	}

	// A terminal row for the same target does not block a new enqueue.
	_ = s.Complete(ctx, "one", domain.Metadata{}, now)
	if err := s.Enqueue(ctx, pendingItem("three", "tweet-1", 0, now)); err != nil {
		t.Fatalf("expected enqueue after terminal row to succeed, got %v", err)
	}
}

func TestRequeue_OnlyFromProcessing(t *testing.T) {
	s := store.NewMemoryQueueStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Enqueue(ctx, pendingItem("x", "t-x", 0, now))
	claimed, _ := s.ClaimNext(ctx, 1)
	if len(claimed) != 1 {
		t.Fatal("expected one claimed item")
	}

	_ = s.Requeue(ctx, "x")
	item, _ := s.GetByID(ctx, "x")
	if item.Status != domain.StatusPending {
		t.Fatalf("expected pending after requeue, got %s", item.Status)
	}

	// Requeue on a terminal row is a no-op.
	_, _ = s.ClaimNext(ctx, 1)
	_ = s.Complete(ctx, "x", domain.Metadata{}, now)
	_ = s.Requeue(ctx, "x")
	item, _ = s.GetByID(ctx, "x")
	if item.Status != domain.StatusCompleted {
		t.Fatalf("requeue must not resurrect a completed item, got %s", item.Status)
	}
}

func TestReleaseAndFail_PersistMetadata(t *testing.T) {
	s := store.NewMemoryQueueStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Enqueue(ctx, pendingItem("m", "t-m", 0, now))
	_, _ = s.ClaimNext(ctx, 1)

	cat := domain.CategoryRateLimited
	retry := true
	retryAfter := now.Add(10 * time.Minute)
	errText := "429 too many requests"
	meta := domain.Metadata{
		LastError:      &errText,
		ErrorCategory:  &cat,
		ShouldRetry:    &retry,
		NextRetryAfter: &retryAfter,
	}

	_ = s.Release(ctx, "m", meta, 1)
	item, _ := s.GetByID(ctx, "m")
	if item.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}
	if item.RetryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", item.RetryCount)
	}
	if item.Metadata.NextRetryAfter == nil || !item.Metadata.NextRetryAfter.Equal(retryAfter) {
		t.Fatalf("expected next_retry_after persisted, got %v", item.Metadata.NextRetryAfter)
	}
	if item.Metadata.ErrorCategory == nil || *item.Metadata.ErrorCategory != domain.CategoryRateLimited {
		t.Fatalf("expected rate_limited category, got %v", item.Metadata.ErrorCategory)
	}
}

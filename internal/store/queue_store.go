package store

import (
	"context"
	"time"

	"github.com/podreach/publisher/internal/domain"
)

// QueueStore defines all persistence operations for the publish queue.
// The pgx implementation is in pg_queue_store.go.
// Tests use the in-memory implementation (memory_queue_store.go).
//
// ClaimNext is the load-bearing contract: selecting pending rows and
// flipping them to processing must be a single atomic operation so two
// concurrent dispatcher runs can never claim the same item.
type QueueStore interface {
	Enqueue(ctx context.Context, item *domain.QueueItem) error
	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.QueueItem, int, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)

	// ClaimNext atomically selects up to limit pending items ordered by
	// (priority DESC, added_at ASC) and marks them processing.
	ClaimNext(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// Complete marks a processing item terminally completed.
	Complete(ctx context.Context, id string, meta domain.Metadata, processedAt time.Time) error

	// Fail marks a processing item terminally failed.
	Fail(ctx context.Context, id string, meta domain.Metadata, retryCount int, processedAt time.Time) error

	// Release rolls a processing item back to pending with updated
	// diagnostic metadata and retry count (retryable failure path).
	Release(ctx context.Context, id string, meta domain.Metadata, retryCount int) error

	// Requeue rolls a processing item back to pending untouched
	// (claimed but never attempted, e.g. after an early halt).
	Requeue(ctx context.Context, id string) error
}

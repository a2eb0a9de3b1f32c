package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/podreach/publisher/internal/domain"
)

// MemoryQueueStore is a mutex-guarded, in-memory QueueStore used in unit
// tests. Claim atomicity is provided by the store-wide lock, so it honours
// the same no-double-claim contract as the PostgreSQL implementation.
type MemoryQueueStore struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem

	// Optional error overrides — set in tests to simulate failure paths.
	ClaimErr   error
	EnqueueErr error
}

func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{items: make(map[string]*domain.QueueItem)}
}

func (m *MemoryQueueStore) Enqueue(_ context.Context, item *domain.QueueItem) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.TargetID == item.TargetID && !existing.Status.Terminal() {
			return domain.ErrDuplicateTarget
		}
	}
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *MemoryQueueStore) GetByID(_ context.Context, id string) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MemoryQueueStore) List(_ context.Context, f domain.ListFilter) ([]*domain.QueueItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.QueueItem
	for _, item := range m.items {
		if f.Status != nil && item.Status != *f.Status {
			continue
		}
		clone := *item
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AddedAt.After(result[j].AddedAt)
	})
	return result, len(result), nil
}

func (m *MemoryQueueStore) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, item := range m.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (m *MemoryQueueStore) ClaimNext(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*domain.QueueItem
	for _, item := range m.items {
		if item.Status == domain.StatusPending {
			pending = append(pending, item)
		}
	}
	sortByClaimOrder(pending)

	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.QueueItem, len(pending))
	for i, item := range pending {
		item.Status = domain.StatusProcessing
		clone := *item
		claimed[i] = &clone
	}
	return claimed, nil
}

func (m *MemoryQueueStore) Complete(_ context.Context, id string, meta domain.Metadata, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusCompleted
		item.ProcessedAt = &processedAt
		item.Metadata = meta
	}
	return nil
}

func (m *MemoryQueueStore) Fail(_ context.Context, id string, meta domain.Metadata, retryCount int, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusFailed
		item.ProcessedAt = &processedAt
		item.Metadata = meta
		item.RetryCount = retryCount
	}
	return nil
}

func (m *MemoryQueueStore) Release(_ context.Context, id string, meta domain.Metadata, retryCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusPending
		item.Metadata = meta
		item.RetryCount = retryCount
	}
	return nil
}

func (m *MemoryQueueStore) Requeue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok && item.Status == domain.StatusProcessing {
		item.Status = domain.StatusPending
	}
	return nil
}

// sortByClaimOrder orders items by (priority DESC, added_at ASC), the
// service order for pending work.
func sortByClaimOrder(items []*domain.QueueItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
}

// compile-time check that both implementations satisfy QueueStore
var _ QueueStore = (*MemoryQueueStore)(nil)
var _ QueueStore = (*pgQueueStore)(nil)

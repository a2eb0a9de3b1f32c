package audit

import (
	"context"
	"sync"
)

// MemorySink is an in-memory Sink used in unit tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []*Entry

	// RecordErr simulates an unavailable audit store.
	RecordErr error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(_ context.Context, entry *Entry) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *MemorySink) Recent(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Entry
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		clone := *m.entries[i]
		result = append(result, &clone)
	}
	return result, nil
}

var _ Sink = (*MemorySink)(nil)
var _ Sink = (*pgSink)(nil)

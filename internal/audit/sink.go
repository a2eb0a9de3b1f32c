package audit

import (
	"context"
	"time"

	"github.com/podreach/publisher/internal/domain"
)

// Entry is the append-only record of one dispatcher run.
type Entry struct {
	ID           string              `json:"id"`
	RanAt        time.Time           `json:"ran_at"`
	BatchSize    int                 `json:"batch_size"`
	Processed    int                 `json:"processed"`
	Successful   int                 `json:"successful"`
	Failed       int                 `json:"failed"`
	Remaining    int                 `json:"remaining"`
	StoppedEarly bool                `json:"stopped_early"`
	HaltReason   domain.HaltReason   `json:"halt_reason,omitempty"`
	Outcomes     []domain.ItemResult `json:"outcomes"`
}

// Sink records batch outcomes for operational visibility. Record is
// side-effect only: a sink failure is logged by the caller and never rolls
// back queue state already committed.
type Sink interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}

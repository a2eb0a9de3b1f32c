package domain

import "time"

// Status tracks the lifecycle of a queued reply.
//
// Transitions are monotonic except for the processing -> pending rollback
// used when an attempt fails but remains retryable:
//
//	pending -> processing -> {completed | failed | pending}
//
// completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorCategory is the fixed taxonomy every posting outcome maps onto.
type ErrorCategory string

const (
	CategorySuccess         ErrorCategory = "success"
	CategoryRateLimited     ErrorCategory = "rate_limited"
	CategoryReplyRestricted ErrorCategory = "reply_restricted"
	CategoryTweetDeleted    ErrorCategory = "tweet_deleted"
	CategoryDuplicate       ErrorCategory = "duplicate_content"
	CategoryAuthError       ErrorCategory = "auth_error"
	CategoryUnexpected      ErrorCategory = "unexpected"
)

// HaltReason explains why a dispatcher run stopped before exhausting
// its claimed items.
type HaltReason string

const (
	HaltRateLimited      HaltReason = "rate_limited"
	HaltBreakerTripped   HaltReason = "circuit_breaker_tripped"
	HaltDeadlineExceeded HaltReason = "deadline_exceeded"
)

// Metadata is the structured diagnostic blob persisted alongside an item.
// Stored as a single jsonb column so new fields never need a migration.
type Metadata struct {
	LastError      *string        `json:"last_error,omitempty"`
	ErrorCategory  *ErrorCategory `json:"error_category,omitempty"`
	ShouldRetry    *bool          `json:"should_retry,omitempty"`
	NextRetryAfter *time.Time     `json:"next_retry_after,omitempty"`
}

// QueueItem is one approved reply pending or having attempted publication.
// PayloadText is immutable once queued; edits happen upstream before enqueue.
type QueueItem struct {
	ID          string     `json:"id"`
	TargetID    string     `json:"target_id"`
	EpisodeID   *string    `json:"episode_id,omitempty"`
	PayloadText string     `json:"payload_text"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	AddedAt     time.Time  `json:"added_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
	Metadata    Metadata   `json:"metadata"`
}

// EnqueueRequest is the inbound payload from the approval workflow.
type EnqueueRequest struct {
	TargetID    string  `json:"target_id"`
	EpisodeID   *string `json:"episode_id,omitempty"`
	PayloadText string  `json:"payload_text"`
	Priority    int     `json:"priority"`
}

// maxPayloadLen mirrors the platform's reply length limit.
const maxPayloadLen = 280

func (r *EnqueueRequest) Validate() error {
	if r.TargetID == "" {
		return ErrInvalidTarget
	}
	if r.PayloadText == "" || len([]rune(r.PayloadText)) > maxPayloadLen {
		return ErrInvalidPayload
	}
	return nil
}

// ListFilter holds query parameters for paginated queue listing.
type ListFilter struct {
	Status *Status
	Page   int
	Limit  int
}

// ItemResult is the per-item line in a batch summary.
type ItemResult struct {
	ID         string        `json:"id"`
	TargetID   string        `json:"targetId"`
	Status     Status        `json:"status"`
	StatusCode int           `json:"statusCode"`
	Category   ErrorCategory `json:"category"`
	Error      string        `json:"error,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// BatchSummary is the outcome of one dispatcher run.
//
// Processed counts every item an attempt was made for, including a
// rate-limited final item. Remaining counts items that were claimed but
// rolled back to pending without an attempt.
type BatchSummary struct {
	Message      string       `json:"message"`
	Processed    int          `json:"processed"`
	TotalInQueue int          `json:"totalInQueue"`
	Successful   int          `json:"successful"`
	Failed       int          `json:"failed"`
	Remaining    int          `json:"remaining"`
	StoppedEarly bool         `json:"stoppedEarly"`
	HaltReason   HaltReason   `json:"haltReason,omitempty"`
	Results      []ItemResult `json:"results"`
}

package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidTarget    = errors.New("target_id must not be empty")
	ErrInvalidPayload   = errors.New("payload_text must be between 1 and 280 characters")
	ErrDuplicateTarget  = errors.New("conflict: a non-terminal item for this target already exists")
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")
	ErrRunInProgress    = errors.New("a publish run is already in progress")
	ErrStoreUnavailable = errors.New("queue store unavailable")
)

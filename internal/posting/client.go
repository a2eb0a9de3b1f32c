package posting

import (
	"context"

	"github.com/podreach/publisher/internal/credentials"
)

// Outcome is the structured result of one posting attempt. Categorizable
// failures (auth, gone, duplicate, rate limit) come back as an Outcome, not
// as a Go error: the HTTP status and the provider's error code are what the
// classifier keys on. Only transport-level problems surface as errors.
type Outcome struct {
	// StatusCode is the HTTP status of the provider response.
	StatusCode int
	// PostID is the identifier of the created reply on success.
	PostID string
	// ErrorCode is the provider's structured error code, 0 when absent.
	ErrorCode int
	// Detail is the provider's human-readable failure text.
	Detail string
}

// Success reports a 2xx outcome.
func (o *Outcome) Success() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

// Client abstracts the external social-platform posting API.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Client interface {
	Post(ctx context.Context, creds credentials.Credentials, targetID, text string) (*Outcome, error)
}

package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Credentials is the token set presented to the posting API.
type Credentials struct {
	AccessToken  string
	AccessSecret string
}

// refreshRequest is the JSON body posted to the token service.
type refreshRequest struct {
	AccessToken string `json:"access_token"`
}

// refreshResponse maps the token service's 200 OK response body.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}

// Provider holds the current posting credentials and refreshes them from an
// external token service once they grow older than a caller-supplied maximum.
//
// Refresh is best-effort: posting with slightly stale but still-valid tokens
// beats aborting a batch, so a failed refresh logs a warning and keeps the
// last-known credentials.
type Provider struct {
	mu         sync.Mutex
	creds      Credentials
	issuedAt   time.Time
	refreshURL string
	httpClient *http.Client
	logger     *zap.Logger

	// now is swapped in tests to control credential age without sleeping.
	now func() time.Time
}

// NewProvider seeds the provider with environment-supplied credentials.
// refreshURL may be empty, in which case EnsureFresh is a no-op and the
// initial credentials are used for the lifetime of the process.
func NewProvider(initial Credentials, refreshURL string, timeout time.Duration, logger *zap.Logger) *Provider {
	p := &Provider{
		creds:      initial,
		refreshURL: refreshURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
	p.issuedAt = p.now()
	return p
}

// Current returns the current token set.
func (p *Provider) Current() Credentials {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creds
}

// Age returns how long ago the current credentials were issued.
func (p *Provider) Age() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Sub(p.issuedAt)
}

// EnsureFresh refreshes the credentials when they are older than maxAge.
// Returns true when a refresh round-trip was performed and succeeded.
func (p *Provider) EnsureFresh(ctx context.Context, maxAge time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refreshURL == "" {
		return false
	}
	if p.now().Sub(p.issuedAt) <= maxAge {
		return false
	}

	fresh, err := p.refresh(ctx)
	if err != nil {
		p.logger.Warn("credential refresh failed, keeping last-known tokens",
			zap.Error(err),
			zap.Duration("age", p.now().Sub(p.issuedAt)),
		)
		return false
	}

	p.creds = fresh
	p.issuedAt = p.now()
	p.logger.Info("credentials refreshed")
	return true
}

// refresh performs the blocking token-service round trip.
// The http.Client timeout bounds it independently of the batch deadline.
func (p *Provider) refresh(ctx context.Context) (Credentials, error) {
	body, err := json.Marshal(refreshRequest{AccessToken: p.creds.AccessToken})
	if err != nil {
		return Credentials{}, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.refreshURL, bytes.NewReader(body))
	if err != nil {
		return Credentials{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("unexpected token service status: %d", resp.StatusCode)
	}

	var refreshed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return Credentials{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return Credentials{}, fmt.Errorf("token service returned empty access token")
	}

	return Credentials{
		AccessToken:  refreshed.AccessToken,
		AccessSecret: refreshed.AccessSecret,
	}, nil
}

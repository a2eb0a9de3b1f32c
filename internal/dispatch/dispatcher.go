package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/podreach/publisher/internal/audit"
	"github.com/podreach/publisher/internal/classify"
	"github.com/podreach/publisher/internal/credentials"
	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/posting"
	"github.com/podreach/publisher/internal/ratewindow"
	"github.com/podreach/publisher/internal/store"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the dispatcher metrics-agnostic.
type Hooks struct {
	OnPosted func(latency time.Duration)
	OnFailed func(category domain.ErrorCategory)
	OnHalt   func(reason domain.HaltReason)
}

// Config holds the tunables of the publishing loop. Zero values fall back
// to defaults in New; ItemDelay zero genuinely means no pacing (tests).
type Config struct {
	// ItemDelay is the spacing between consecutive posting calls. It keeps
	// the process under the provider's burst limit and dominates batch
	// wall-clock time.
	ItemDelay time.Duration
	// BreakerThreshold is the number of consecutive non-permanent failures
	// after which the run halts.
	BreakerThreshold int
	// MaxRetries bounds retryCount; an item failing beyond it fails
	// terminally regardless of category.
	MaxRetries int
	// CredentialMaxAge triggers a token refresh mid-batch.
	CredentialMaxAge time.Duration
	// MaxBatchDuration is the cooperative batch deadline.
	MaxBatchDuration time.Duration
}

// Dispatcher drains human-approved replies from the queue and posts them
// under the provider's shared rate limit, guaranteeing each item is posted
// at most once.
//
// One run is strictly sequential: the provider's burst limit makes parallel
// posting counterproductive, so correctness here means spacing, not
// throughput. Concurrent runs are safe (the store's claim is atomic) but
// pointless; the run gate turns them into ErrRunInProgress.
type Dispatcher struct {
	store   store.QueueStore
	client  posting.Client
	creds   *credentials.Provider
	windows ratewindow.Estimator
	sink    audit.Sink
	logger  *zap.Logger
	hooks   Hooks
	cfg     Config

	running sync.Mutex

	// now is swapped in tests to drive the batch deadline without sleeping.
	now func() time.Time
}

func New(
	qs store.QueueStore,
	client posting.Client,
	creds *credentials.Provider,
	windows ratewindow.Estimator,
	sink audit.Sink,
	logger *zap.Logger,
	hooks Hooks,
	cfg Config,
) *Dispatcher {
	if hooks.OnPosted == nil {
		hooks.OnPosted = func(time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.ErrorCategory) {}
	}
	if hooks.OnHalt == nil {
		hooks.OnHalt = func(domain.HaltReason) {}
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CredentialMaxAge <= 0 {
		cfg.CredentialMaxAge = 90 * time.Second
	}
	if cfg.MaxBatchDuration <= 0 {
		cfg.MaxBatchDuration = 8 * time.Minute
	}
	return &Dispatcher{
		store:   qs,
		client:  client,
		creds:   creds,
		windows: windows,
		sink:    sink,
		logger:  logger,
		hooks:   hooks,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run claims up to batchSize pending items and attempts to publish them in
// claim order. It returns an error only when the queue store itself is
// unavailable (or the input is invalid); every posting failure is converted
// to a queue-state transition and reported in the summary instead.
func (d *Dispatcher) Run(ctx context.Context, batchSize int) (*domain.BatchSummary, error) {
	if batchSize <= 0 {
		return nil, domain.ErrInvalidBatchSize
	}
	if !d.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer d.running.Unlock()

	start := d.now()
	deadline := start.Add(d.cfg.MaxBatchDuration)

	totalInQueue := 0
	if counts, err := d.store.CountByStatus(ctx); err != nil {
		d.logger.Warn("queue depth lookup failed", zap.Error(err))
	} else {
		totalInQueue = counts[domain.StatusPending]
	}

	items, err := d.store.ClaimNext(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	summary := &domain.BatchSummary{
		TotalInQueue: totalInQueue,
		Results:      make([]domain.ItemResult, 0, len(items)),
	}

	// Every item consumes one pacing token. A fresh limiter starts with a
	// full bucket, so the first item posts immediately and each subsequent
	// one waits out the inter-item delay. ItemDelay <= 0 disables pacing.
	limiter := rate.NewLimiter(rate.Every(d.cfg.ItemDelay), 1)

	consecutiveFailures := 0

	for i, item := range items {
		if d.now().After(deadline) {
			d.halt(ctx, summary, domain.HaltDeadlineExceeded, items[i:])
			break
		}
		if consecutiveFailures >= d.cfg.BreakerThreshold {
			d.halt(ctx, summary, domain.HaltBreakerTripped, items[i:])
			break
		}

		d.creds.EnsureFresh(ctx, d.cfg.CredentialMaxAge)

		if err := limiter.Wait(ctx); err != nil {
			// Context cancelled while pacing; treat like the deadline.
			d.halt(ctx, summary, domain.HaltDeadlineExceeded, items[i:])
			break
		}

		result, haltAfter := d.attempt(ctx, item, &consecutiveFailures, summary)
		summary.Processed++
		summary.Results = append(summary.Results, result)

		if haltAfter != "" {
			d.halt(ctx, summary, haltAfter, items[i+1:])
			break
		}
	}

	summary.Message = summaryMessage(summary)

	d.record(ctx, start, batchSize, summary)

	d.logger.Info("publish run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Int("remaining", summary.Remaining),
		zap.Bool("stopped_early", summary.StoppedEarly),
		zap.String("halt_reason", string(summary.HaltReason)),
		zap.Duration("elapsed", d.now().Sub(start)),
	)

	return summary, nil
}

// attempt posts one item, classifies the outcome, and commits the resulting
// state transition. It never returns an error: transport failures become
// unexpected outcomes, and store write failures are logged — the loop must
// not crash mid-batch.
func (d *Dispatcher) attempt(
	ctx context.Context,
	item *domain.QueueItem,
	consecutiveFailures *int,
	summary *domain.BatchSummary,
) (domain.ItemResult, domain.HaltReason) {
	log := d.logger.With(
		zap.String("item_id", item.ID),
		zap.String("target_id", item.TargetID),
	)

	postStart := time.Now()
	outcome, err := d.client.Post(ctx, d.creds.Current(), item.TargetID, item.PayloadText)
	latency := time.Since(postStart)
	if err != nil {
		// Transport-level failure (timeout, refused connection). No HTTP
		// status to classify, so it lands in the unexpected bucket.
		log.Warn("posting call failed", zap.Error(err))
		outcome = &posting.Outcome{Detail: err.Error()}
	}

	category, permanent := classify.Classify(outcome)
	now := d.now()

	result := domain.ItemResult{
		ID:         item.ID,
		TargetID:   item.TargetID,
		StatusCode: outcome.StatusCode,
		Category:   category,
	}

	switch {
	case classify.CountsAsSuccess(category):
		meta := domain.Metadata{}
		if category == domain.CategoryDuplicate {
			// Already live elsewhere: terminal success, but keep the
			// category visible for the dashboard.
			meta = failureMetadata(category, outcome.Detail, false, nil)
			result.Message = "duplicate content, already posted"
		} else {
			result.Message = "posted as " + outcome.PostID
		}
		if err := d.store.Complete(ctx, item.ID, meta, now); err != nil {
			log.Error("failed to mark item completed", zap.Error(err))
		}
		*consecutiveFailures = 0
		summary.Successful++
		result.Status = domain.StatusCompleted
		d.hooks.OnPosted(latency)
		log.Info("reply published",
			zap.String("post_id", outcome.PostID),
			zap.Duration("latency", latency),
		)
		return result, ""

	case category == domain.CategoryRateLimited:
		// The quota is shared process-wide: every further attempt in this
		// run would fail identically, so halt instead of sleep-and-retry.
		retryAfter := d.windows.NextResetAt(now)
		meta := failureMetadata(category, outcome.Detail, true, &retryAfter)
		if err := d.store.Release(ctx, item.ID, meta, item.RetryCount); err != nil {
			log.Error("failed to roll back rate-limited item", zap.Error(err))
		}
		result.Status = domain.StatusPending
		result.Error = outcome.Detail
		result.Message = "rate limited, window resets at " + retryAfter.Format(time.RFC3339)
		d.hooks.OnFailed(category)
		log.Warn("provider rate limit hit", zap.Time("window_resets_at", retryAfter))
		return result, domain.HaltRateLimited

	case permanent:
		meta := failureMetadata(category, outcome.Detail, false, nil)
		if err := d.store.Fail(ctx, item.ID, meta, item.RetryCount, now); err != nil {
			log.Error("failed to mark item failed", zap.Error(err))
		}
		summary.Failed++
		result.Status = domain.StatusFailed
		result.Error = outcome.Detail
		d.hooks.OnFailed(category)
		log.Warn("permanent posting failure",
			zap.String("category", string(category)),
			zap.Int("status_code", outcome.StatusCode),
		)
		return result, ""

	default:
		// Retryable, non-rate-limit failure. Counts toward the breaker.
		*consecutiveFailures++
		newCount := item.RetryCount + 1
		result.Error = outcome.Detail

		if item.RetryCount >= d.cfg.MaxRetries {
			meta := failureMetadata(category, outcome.Detail, false, nil)
			if err := d.store.Fail(ctx, item.ID, meta, newCount, now); err != nil {
				log.Error("failed to mark item failed", zap.Error(err))
			}
			summary.Failed++
			result.Status = domain.StatusFailed
			result.Message = "retries exhausted"
			log.Warn("retries exhausted", zap.Int("retry_count", newCount))
		} else {
			meta := failureMetadata(category, outcome.Detail, true, nil)
			if err := d.store.Release(ctx, item.ID, meta, newCount); err != nil {
				log.Error("failed to roll back retryable item", zap.Error(err))
			}
			result.Status = domain.StatusPending
			log.Warn("retryable posting failure",
				zap.Int("retry_count", newCount),
				zap.Int("consecutive_failures", *consecutiveFailures),
			)
		}
		d.hooks.OnFailed(category)
		return result, ""
	}
}

// halt marks the run stopped early and rolls every unattempted claimed item
// back to pending untouched.
func (d *Dispatcher) halt(ctx context.Context, summary *domain.BatchSummary, reason domain.HaltReason, unattempted []*domain.QueueItem) {
	summary.StoppedEarly = true
	summary.HaltReason = reason
	summary.Remaining = len(unattempted)

	for _, item := range unattempted {
		if err := d.store.Requeue(ctx, item.ID); err != nil {
			d.logger.Error("failed to roll back unattempted item",
				zap.String("item_id", item.ID), zap.Error(err))
		}
	}

	d.hooks.OnHalt(reason)
	d.logger.Warn("publish run halted",
		zap.String("reason", string(reason)),
		zap.Int("unattempted", len(unattempted)),
	)
}

// record appends the run to the audit sink. Sink failures are logged and
// swallowed: queue state is already committed and must not be rolled back.
func (d *Dispatcher) record(ctx context.Context, start time.Time, batchSize int, summary *domain.BatchSummary) {
	entry := &audit.Entry{
		ID:           uuid.New().String(),
		RanAt:        start,
		BatchSize:    batchSize,
		Processed:    summary.Processed,
		Successful:   summary.Successful,
		Failed:       summary.Failed,
		Remaining:    summary.Remaining,
		StoppedEarly: summary.StoppedEarly,
		HaltReason:   summary.HaltReason,
		Outcomes:     summary.Results,
	}
	if err := d.sink.Record(ctx, entry); err != nil {
		d.logger.Warn("audit record failed", zap.Error(err))
	}
}

func summaryMessage(s *domain.BatchSummary) string {
	msg := fmt.Sprintf("processed %d items: %d successful, %d failed", s.Processed, s.Successful, s.Failed)
	if s.StoppedEarly {
		msg += fmt.Sprintf(", halted early (%s)", s.HaltReason)
	}
	return msg
}

func failureMetadata(category domain.ErrorCategory, detail string, shouldRetry bool, retryAfter *time.Time) domain.Metadata {
	meta := domain.Metadata{
		ErrorCategory:  &category,
		ShouldRetry:    &shouldRetry,
		NextRetryAfter: retryAfter,
	}
	if detail != "" {
		meta.LastError = &detail
	}
	return meta
}

// Package ratewindow models the posting provider's fixed-width rate-limit
// windows. The provider resets its quota at fixed boundaries (quarter-hour
// marks for the current platform), so the only useful client-side estimate
// after a 429 is "when does the next window open".
package ratewindow

import "time"

// DefaultWidth matches the platform's current reset cadence.
const DefaultWidth = 15 * time.Minute

// Estimator computes window boundaries. Pure value type, no I/O.
type Estimator struct {
	Width time.Duration
}

// NextResetAt returns the first window boundary strictly after now.
// The estimate is persisted on rate-limited items for operators; it does not
// gate scheduling — the dispatcher halts instead of sleeping until reset.
func (e Estimator) NextResetAt(now time.Time) time.Time {
	width := e.Width
	if width <= 0 {
		width = DefaultWidth
	}
	return now.Truncate(width).Add(width)
}

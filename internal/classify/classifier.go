// Package classify maps posting outcomes onto the fixed error taxonomy and
// decides whether a failure is permanent (retrying cannot fix it) or
// retryable.
package classify

import (
	"strings"

	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/posting"
)

// Provider error codes observed on the posting API.
const (
	codeAuthCouldNotAuthenticate = 32
	codeTweetDeleted             = 144
	codeRateLimitExceeded        = 88
	codeInvalidOrExpiredToken    = 89
	codeDuplicateStatus          = 187
	codeReplyRestricted          = 385
)

// Classify maps a posting outcome to (category, permanent).
//
// Structured signals are preferred: the HTTP status first, then the
// provider's numeric error code. Substring matching on the failure text is a
// last resort — it is fragile against provider copy changes and only used to
// split the 403 family, where the platform reuses one status code for
// duplicates and reply restrictions.
func Classify(o *posting.Outcome) (domain.ErrorCategory, bool) {
	if o.Success() {
		return domain.CategorySuccess, false
	}

	switch o.ErrorCode {
	case codeRateLimitExceeded:
		return domain.CategoryRateLimited, false
	case codeAuthCouldNotAuthenticate, codeInvalidOrExpiredToken:
		return domain.CategoryAuthError, true
	case codeTweetDeleted:
		return domain.CategoryTweetDeleted, true
	case codeDuplicateStatus:
		return domain.CategoryDuplicate, true
	case codeReplyRestricted:
		return domain.CategoryReplyRestricted, true
	}

	switch o.StatusCode {
	case 429:
		return domain.CategoryRateLimited, false
	case 401:
		return domain.CategoryAuthError, true
	case 404, 410:
		return domain.CategoryTweetDeleted, true
	case 409:
		return domain.CategoryDuplicate, true
	case 403:
		return classifyForbidden(o.Detail)
	}

	return domain.CategoryUnexpected, false
}

// classifyForbidden splits the 403 family by failure text when no structured
// code was available.
func classifyForbidden(detail string) (domain.ErrorCategory, bool) {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "duplicate"):
		return domain.CategoryDuplicate, true
	case strings.Contains(lower, "not allowed to reply"),
		strings.Contains(lower, "restricted who can reply"),
		strings.Contains(lower, "conversation is locked"):
		return domain.CategoryReplyRestricted, true
	case strings.Contains(lower, "suspended"),
		strings.Contains(lower, "not authorized"),
		strings.Contains(lower, "unauthorized"):
		return domain.CategoryAuthError, true
	}
	return domain.CategoryUnexpected, false
}

// CountsAsSuccess reports whether a category counts toward the successful
// tally of a batch. A duplicate means the content is already live, which is
// the outcome the operator wanted.
func CountsAsSuccess(cat domain.ErrorCategory) bool {
	return cat == domain.CategorySuccess || cat == domain.CategoryDuplicate
}

package classify_test

import (
	"testing"

	"github.com/podreach/publisher/internal/classify"
	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/posting"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		outcome   posting.Outcome
		category  domain.ErrorCategory
		permanent bool
	}{
		{"created", posting.Outcome{StatusCode: 201, PostID: "123"}, domain.CategorySuccess, false},
		{"plain ok", posting.Outcome{StatusCode: 200}, domain.CategorySuccess, false},

		{"429 status", posting.Outcome{StatusCode: 429}, domain.CategoryRateLimited, false},
		{"code 88 wins over status", posting.Outcome{StatusCode: 403, ErrorCode: 88}, domain.CategoryRateLimited, false},

		{"401 status", posting.Outcome{StatusCode: 401}, domain.CategoryAuthError, true},
		{"code 32", posting.Outcome{StatusCode: 403, ErrorCode: 32}, domain.CategoryAuthError, true},
		{"code 89", posting.Outcome{StatusCode: 403, ErrorCode: 89}, domain.CategoryAuthError, true},

		{"404 status", posting.Outcome{StatusCode: 404}, domain.CategoryTweetDeleted, true},
		{"410 status", posting.Outcome{StatusCode: 410}, domain.CategoryTweetDeleted, true},
		{"code 144", posting.Outcome{StatusCode: 403, ErrorCode: 144}, domain.CategoryTweetDeleted, true},

		{"409 status", posting.Outcome{StatusCode: 409}, domain.CategoryDuplicate, true},
		{"code 187", posting.Outcome{StatusCode: 403, ErrorCode: 187}, domain.CategoryDuplicate, true},
		{"403 duplicate text fallback", posting.Outcome{StatusCode: 403, Detail: "You are not allowed to create a Tweet with duplicate content."}, domain.CategoryDuplicate, true},

		{"code 385", posting.Outcome{StatusCode: 403, ErrorCode: 385}, domain.CategoryReplyRestricted, true},
		{"403 restricted text fallback", posting.Outcome{StatusCode: 403, Detail: "You are not allowed to reply to this Tweet."}, domain.CategoryReplyRestricted, true},
		{"403 locked conversation", posting.Outcome{StatusCode: 403, Detail: "This conversation is locked."}, domain.CategoryReplyRestricted, true},

		{"403 suspended account", posting.Outcome{StatusCode: 403, Detail: "Your account is suspended."}, domain.CategoryAuthError, true},

		{"bare 403", posting.Outcome{StatusCode: 403, Detail: "Forbidden."}, domain.CategoryUnexpected, false},
		{"500", posting.Outcome{StatusCode: 500}, domain.CategoryUnexpected, false},
		{"503", posting.Outcome{StatusCode: 503, Detail: "Over capacity"}, domain.CategoryUnexpected, false},
		{"transport failure", posting.Outcome{StatusCode: 0, Detail: "connection refused"}, domain.CategoryUnexpected, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cat, permanent := classify.Classify(&tc.outcome)
			if cat != tc.category {
				t.Fatalf("category = %s, want %s", cat, tc.category)
			}
			if permanent != tc.permanent {
				t.Fatalf("permanent = %v, want %v", permanent, tc.permanent)
			}
		})
	}
}

func TestCountsAsSuccess(t *testing.T) {
	if !classify.CountsAsSuccess(domain.CategorySuccess) {
		t.Fatal("success must count as success")
	}
	if !classify.CountsAsSuccess(domain.CategoryDuplicate) {
		t.Fatal("duplicate_content must count as success")
	}
	for _, cat := range []domain.ErrorCategory{
		domain.CategoryRateLimited,
		domain.CategoryReplyRestricted,
		domain.CategoryTweetDeleted,
		domain.CategoryAuthError,
		domain.CategoryUnexpected,
	} {
		if classify.CountsAsSuccess(cat) {
			t.Fatalf("%s must not count as success", cat)
		}
	}
}

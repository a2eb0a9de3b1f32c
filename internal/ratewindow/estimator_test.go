package ratewindow_test

import (
	"testing"
	"time"

	"github.com/podreach/publisher/internal/ratewindow"
)

func TestNextResetAt(t *testing.T) {
	e := ratewindow.Estimator{Width: 15 * time.Minute}

	tests := []struct {
		name string
		now  string
		want string
	}{
		{"mid window", "2026-03-01T12:07:33Z", "2026-03-01T12:15:00Z"},
		{"just after boundary", "2026-03-01T12:15:01Z", "2026-03-01T12:30:00Z"},
		{"exactly on boundary", "2026-03-01T12:30:00Z", "2026-03-01T12:45:00Z"},
		{"last window of the hour", "2026-03-01T12:59:59Z", "2026-03-01T13:00:00Z"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now, _ := time.Parse(time.RFC3339, tc.now)
			want, _ := time.Parse(time.RFC3339, tc.want)
			got := e.NextResetAt(now)
			if !got.Equal(want) {
				t.Fatalf("NextResetAt(%s) = %s, want %s", tc.now, got, want)
			}
		})
	}
}

func TestNextResetAt_DefaultWidth(t *testing.T) {
	var e ratewindow.Estimator // zero value falls back to the default width

	now, _ := time.Parse(time.RFC3339, "2026-03-01T09:01:00Z")
	want, _ := time.Parse(time.RFC3339, "2026-03-01T09:15:00Z")
	if got := e.NextResetAt(now); !got.Equal(want) {
		t.Fatalf("NextResetAt = %s, want %s", got, want)
	}
}

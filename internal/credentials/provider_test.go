package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeClock returns a controllable now func and an advance helper.
func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	current := start
	return func() time.Time { return current },
		func(d time.Duration) { current = current.Add(d) }
}

func TestEnsureFresh_SkipsWhenYoung(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	p := NewProvider(Credentials{AccessToken: "tok"}, srv.URL, time.Second, zap.NewNop())
	now, _ := fakeClock(time.Now())
	p.now = now
	p.issuedAt = now()

	if p.EnsureFresh(context.Background(), 90*time.Second) {
		t.Fatal("expected no refresh for young credentials")
	}
	if calls != 0 {
		t.Fatalf("expected no token service call, got %d", calls)
	}
}

func TestEnsureFresh_RefreshesWhenStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-tok","access_secret":"fresh-sec"}`))
	}))
	defer srv.Close()

	p := NewProvider(Credentials{AccessToken: "stale-tok"}, srv.URL, time.Second, zap.NewNop())
	now, advance := fakeClock(time.Now())
	p.now = now
	p.issuedAt = now()

	advance(2 * time.Minute)

	if !p.EnsureFresh(context.Background(), 90*time.Second) {
		t.Fatal("expected a refresh for stale credentials")
	}
	if got := p.Current().AccessToken; got != "fresh-tok" {
		t.Fatalf("expected fresh-tok, got %q", got)
	}
	if p.Age() != 0 {
		t.Fatalf("expected age reset after refresh, got %s", p.Age())
	}
}

func TestEnsureFresh_KeepsLastKnownOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(Credentials{AccessToken: "known-good"}, srv.URL, time.Second, zap.NewNop())
	now, advance := fakeClock(time.Now())
	p.now = now
	p.issuedAt = now()

	advance(5 * time.Minute)

	if p.EnsureFresh(context.Background(), 90*time.Second) {
		t.Fatal("expected refresh to report failure")
	}
	if got := p.Current().AccessToken; got != "known-good" {
		t.Fatalf("expected last-known credentials to survive, got %q", got)
	}
}

func TestEnsureFresh_NoopWithoutRefreshURL(t *testing.T) {
	p := NewProvider(Credentials{AccessToken: "env-tok"}, "", time.Second, zap.NewNop())
	now, advance := fakeClock(time.Now())
	p.now = now
	p.issuedAt = now()

	advance(time.Hour)

	if p.EnsureFresh(context.Background(), time.Second) {
		t.Fatal("expected no refresh when no refresh URL is configured")
	}
	if got := p.Current().AccessToken; got != "env-tok" {
		t.Fatalf("expected env credentials, got %q", got)
	}
}

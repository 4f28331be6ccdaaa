package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedLimiter struct {
	admit bool
	wait  time.Duration
}

func (f *fixedLimiter) Admit() (bool, time.Duration) {
	return f.admit, f.wait
}

func TestRateLimitMiddlewareRefusesWithRetryAfter(t *testing.T) {
	t.Parallel()

	middleware := rateLimitMiddleware(&fixedLimiter{wait: 2300 * time.Millisecond}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	middleware.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lookup?target=1", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After 3, got %q", got)
	}
}

func TestRateLimitMiddlewareAdmits(t *testing.T) {
	t.Parallel()

	var called bool
	middleware := rateLimitMiddleware(&fixedLimiter{admit: true}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	middleware.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/table", nil))

	if !called {
		t.Fatalf("expected handler to execute when limiter admits")
	}
}

func TestTokenBucketReportsDelay(t *testing.T) {
	t.Parallel()

	bucket := newTokenBucket(0, 0)
	if ok, _ := bucket.Admit(); !ok {
		t.Fatalf("expected first request to be admitted")
	}
	ok, wait := bucket.Admit()
	if ok {
		t.Fatalf("expected second request to be refused")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("expected wait within one token interval, got %v", wait)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		0:                       "1",
		10 * time.Millisecond:   "1",
		time.Second:             "1",
		1500 * time.Millisecond: "2",
	}
	for wait, want := range cases {
		if got := retryAfterSeconds(wait); got != want {
			t.Fatalf("retryAfterSeconds(%v) = %q, want %q", wait, got, want)
		}
	}
}

package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// solveLimiter admits requests that may trigger a table solve. When a request
// is refused it reports how long the caller should wait.
type solveLimiter interface {
	Admit() (bool, time.Duration)
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucket(ratePerSecond float64, burst int) *tokenBucket {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (b *tokenBucket) Admit() (bool, time.Duration) {
	res := b.limiter.Reserve()
	if !res.OK() {
		return false, time.Second
	}
	delay := res.Delay()
	if delay == 0 {
		return true, 0
	}
	// Give the token back; the caller is told to come back later instead.
	res.Cancel()
	return false, delay
}

func rateLimitMiddleware(limiter solveLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := limiter.Admit()
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		writeError(w, http.StatusTooManyRequests, "Too many requests",
			"table lookups are rate limited, retry after "+wait.Round(time.Millisecond).String())
	})
}

func retryAfterSeconds(wait time.Duration) string {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

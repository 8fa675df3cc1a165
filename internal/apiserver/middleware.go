package apiserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type requestIDKey struct{}

// requestIDMiddleware stamps every request with a freshly generated
// uuid request ID, independent of chi's own middleware.RequestID (a
// short incrementing string, not useful to external clients), stores it
// under this gateway's own context key so handlers can read it back
// with requestIDFrom, and echoes it in the X-Request-Id header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// rateLimiter is an in-process stand-in for the real KV-backed ingress
// limiter, keyed by the caller's API key header and sized per the
// configured rate-limit tier overrides.
type rateLimiter struct {
	defaultRPM int
	tierRPM    map[string]int

	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
}

func newRateLimiter(defaultRPM int, tierRPM map[string]int) *rateLimiter {
	return &rateLimiter{
		defaultRPM: defaultRPM,
		tierRPM:    tierRPM,
		buckets:    make(map[string]*rate.Limiter),
	}
}

func (l *rateLimiter) allow(key, tier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		rpm := l.defaultRPM
		if tier != "" {
			if override, ok := l.tierRPM[tier]; ok {
				rpm = override
			}
		}
		if rpm <= 0 {
			rpm = l.defaultRPM
		}
		b = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
		l.buckets[key] = b
	}
	return b.Allow()
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if key == "" {
			key = "anonymous"
		}
		tier := r.Header.Get("X-Api-Tier")
		if !l.allow(key, tier) {
			respondError(w, requestIDFrom(r.Context()), http.StatusTooManyRequests, CodeRateLimitExceeded, errTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errTooManyRequests = &simpleError{"rate limit exceeded"}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/models"
)

// DefaultLimiterTTL is how long an idle client's limiter is kept.
const DefaultLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter limits requests per client IP with a token bucket.
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	ttl         time.Duration
	lastCleanup time.Time
	logger      logging.Logger
}

// NewRateLimiter allows requestsPerSecond per client with the given burst.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond float64, burst int, logger logging.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = logging.Named("ratelimit")
	}
	return &RateLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(requestsPerSecond),
		burst:       burst,
		ttl:         DefaultLimiterTTL,
		lastCleanup: time.Now(),
		logger:      logger,
	}
}

// Enabled reports whether the limiter rejects anything.
func (rl *RateLimiter) Enabled() bool {
	return rl.rate > 0
}

// Allow takes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}
	return rl.getLimiter(key).Allow()
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rl.ttl {
		rl.cleanup(now)
	}

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup drops limiters idle for longer than ttl. Callers hold mu.
func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.ttl)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if !rl.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			rl.logger.WithContext(r.Context()).Warn("Rate limit exceeded",
				logging.Field{Key: "client", Value: key},
				logging.Field{Key: "path", Value: r.URL.Path},
			)
			retryAfter := 1
			if rl.rate < 1 {
				retryAfter = int(1/float64(rl.rate)) + 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(models.ConnectorResponse{
				Status:  models.StatusError,
				Message: "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

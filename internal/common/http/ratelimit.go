package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	"github.com/AlibekovAA/defis-users/internal/common/httpmetrics"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	cleanup  *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		cleanup:  time.NewTicker(constants.RateLimitCleanupInterval),
		done:     make(chan struct{}),
	}

	go rl.cleanupLimiters()

	return rl
}

func (rl *RateLimiter) cleanupLimiters() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.cleanup.C:
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				// a full bucket means the client has been idle
				if limiter.Tokens() >= float64(rl.burst) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanup.Stop()
		close(rl.done)
	})
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		limiter, exists = rl.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[key] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits requests per key. A nil keyFn keys by client IP.
func (rl *RateLimiter) Middleware(limiterType string, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = GetClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(keyFn(r)) {
				metrics.RateLimitBlocked.WithLabelValues(limiterType, httpmetrics.NormalizePath(r.URL.Path)).Inc()
				w.Header().Set("Retry-After", "1")
				WriteErrorEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil, TraceIDFromContext(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RouteLimiters holds separate budgets for reads and writes.
type RouteLimiters struct {
	Read  *RateLimiter
	Write *RateLimiter
}

func NewRouteLimiters() *RouteLimiters {
	return &RouteLimiters{
		Read:  NewRateLimiter(constants.RateLimitReadRequestsPerSecond, constants.RateLimitReadBurst),
		Write: NewRateLimiter(constants.RateLimitWriteRequestsPerSecond, constants.RateLimitWriteBurst),
	}
}

func (rl *RouteLimiters) Stop() {
	rl.Read.Stop()
	rl.Write.Stop()
}

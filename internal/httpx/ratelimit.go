package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client address.
// Buckets idle for longer than ExpiresIn are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	expiresIn time.Duration
	lastSweep time.Time
	visitors  map[string]*visitor
	now       func() time.Time
}

func NewRateLimiter(perSec float64, burst int, expiresIn time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:     rate.Limit(perSec),
		burst:     burst,
		expiresIn: expiresIn,
		visitors:  map[string]*visitor{},
		now:       time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.expiresIn {
		for k, v := range rl.visitors {
			if now.Sub(v.seen) > rl.expiresIn {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResp{Message: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

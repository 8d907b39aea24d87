package taskdispatch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyRateLimiter manages a per-api-key token bucket so a single credential
// cannot be used to flood the agent queue, the "rate-limited" condition
// §4.H's credential resolution step must detect.
type keyRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
	burst     int
}

func newKeyRateLimiter(perMinute, burst int) *keyRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	return &keyRateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
		burst:     burst,
	}
}

// allow reports whether apiKeyID is still within its rate budget, creating
// its limiter lazily on first use.
func (k *keyRateLimiter) allow(apiKeyID string) bool {
	k.mu.Lock()
	limiter, ok := k.limiters[apiKeyID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(k.perMinute)), k.burst)
		k.limiters[apiKeyID] = limiter
	}
	k.mu.Unlock()
	return limiter.Allow()
}

/*
Package limiter provides connection rate limiting based on client IP addresses.

It uses the token bucket algorithm (rate.Limiter) to bound how often a single
IP may open new sessions, and runs a cleanup goroutine that periodically
removes inactive limiters to prevent unbounded memory growth.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupInterval is how often stale per-IP limiters are swept.
	cleanupInterval = 10 * time.Minute

	// staleAfter is how long an IP may stay idle before its limiter is dropped.
	staleAfter = 30 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter implements a connection rate limiter keyed by client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates a limiter allowing r events per second with bursts
// of b, and starts the background sweep of inactive entries.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
	}

	go i.cleanupLoop()

	return i
}

// Allow reports whether the given IP may open a new connection right now,
// consuming one token if so.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, ok := i.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.r, i.b)}
		i.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

func (i *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		for ip, v := range i.visitors {
			if time.Since(v.lastSeen) > staleAfter {
				delete(i.visitors, ip)
			}
		}
		i.mu.Unlock()
	}
}

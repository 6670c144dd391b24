package utils

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// minIdleTTL is the shortest time a client's bucket is kept after its last request.
const minIdleTTL = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
// Buckets idle long enough to have refilled completely are dropped.
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows perSecond requests per client with the given burst.
// A non-positive perSecond disables limiting.
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	idleTTL := minIdleTTL
	if perSecond > 0 {
		refill := time.Duration(float64(burst) / perSecond * float64(time.Second)).Round(time.Second)
		if refill > idleTTL {
			idleTTL = refill
		}
	}
	return &IPRateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Enabled reports whether the limiter rejects anything at all.
func (l *IPRateLimiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Allow reports whether a request from key may proceed now.
func (l *IPRateLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}
	client, ok := l.limiters[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = client
	}
	client.lastSeen = now
	l.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

// sweepLocked drops buckets that have been idle for at least idleTTL.
// A dropped bucket was full, so recreating it later changes nothing for the client.
func (l *IPRateLimiter) sweepLocked(now time.Time) {
	for key, client := range l.limiters {
		if now.Sub(client.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Clients returns the number of client buckets currently tracked.
func (l *IPRateLimiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimitMiddleware rejects requests with 429 once the client IP exhausts its bucket.
func RateLimitMiddleware(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			GinTooManyRequests(c, "Too many requests, slow down.")
			return
		}
		c.Next()
	}
}

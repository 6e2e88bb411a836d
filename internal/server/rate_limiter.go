package server

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"beltche-mcp/pkg/logging"
)

// IPRateLimiter gives each client address a token bucket that refills
// maxRequests tokens per window and holds at most maxRequests.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter

	limit  rate.Limit
	burst  int
	window time.Duration
	now    func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter allowing maxRequests per window per client.
func NewIPRateLimiter(maxRequests int, window time.Duration) *IPRateLimiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
		window:   window,
		now:      time.Now,
	}
}

// Allow reports whether ip may make a request now and consumes a token if so.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = cl
	}
	cl.lastSeen = now

	if !cl.limiter.AllowN(now, 1) {
		logging.Warn("HTTP", "Rate limit exceeded for %s", ip)
		return false
	}
	return true
}

// RetryAfterSeconds is the time for one token to refill, rounded up.
func (l *IPRateLimiter) RetryAfterSeconds() int {
	return int(math.Ceil(l.window.Seconds() / float64(l.burst)))
}

// Cleanup forgets clients that have been idle for a full window; their
// buckets would be full again anyway. It returns the number removed.
func (l *IPRateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for ip, cl := range l.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked clients.
func (l *IPRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// clientIP returns the request's client address. Behind one trusted proxy
// that is the last X-Forwarded-For entry.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

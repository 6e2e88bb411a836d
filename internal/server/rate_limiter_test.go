package server

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func itoa(n int) string { return strconv.Itoa(n) }

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	assert.False(t, l.Allow("10.0.0.1"))

	// other clients have their own budget
	assert.True(t, l.Allow("10.0.0.2"))

	// one token refills every window/maxRequests
	now = now.Add(21 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	assert.Equal(t, 20, l.RetryAfterSeconds())
}

func TestIPRateLimiterCleanup(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(30 * time.Second)
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Size())

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Size())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/mcp", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7")

	assert.Equal(t, "192.0.2.10", clientIP(req, false))
	assert.Equal(t, "198.51.100.7", clientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "192.0.2.10", clientIP(req, true))
}

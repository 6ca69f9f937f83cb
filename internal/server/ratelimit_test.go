package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a rateLimiter without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(config RateLimitConfig) (*rateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(config)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_BasicRateLimit(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{MaxAttempts: 3, Window: time.Second, BlockAfter: 10, BlockTime: time.Second})
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		assert.True(t, rl.check(ip).Allowed, "attempt %d should be allowed", i+1)
	}

	v := rl.check(ip)
	assert.False(t, v.Allowed)
	assert.False(t, v.Blocked)
	assert.Equal(t, "rate limit exceeded", v.Reason)
	assert.Equal(t, time.Second, v.RetryAfter)
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(RateLimitConfig{MaxAttempts: 2, Window: 50 * time.Millisecond})
	ip := "192.168.1.2"

	assert.True(t, rl.check(ip).Allowed)
	assert.True(t, rl.check(ip).Allowed)
	assert.False(t, rl.check(ip).Allowed)

	clock.advance(60 * time.Millisecond)
	assert.True(t, rl.check(ip).Allowed)
}

func TestRateLimiter_FailureBlocking(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{MaxAttempts: 20, Window: time.Minute, BlockAfter: 3, BlockTime: time.Minute})
	ip := "192.168.1.3"

	for i := 0; i < 3; i++ {
		rl.recordFailure(ip)
	}

	v := rl.check(ip)
	assert.False(t, v.Allowed)
	assert.True(t, v.Blocked)
	assert.Equal(t, "too many failed attempts", v.Reason)
	assert.Equal(t, time.Minute, v.RetryAfter)
}

func TestRateLimiter_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{MaxAttempts: 20, Window: time.Minute, BlockAfter: 5, BlockTime: time.Second})
	ip := "192.168.1.4"

	for i := 0; i < 4; i++ {
		rl.recordFailure(ip)
	}
	rl.recordSuccess(ip)
	for i := 0; i < 4; i++ {
		rl.recordFailure(ip)
	}

	assert.True(t, rl.check(ip).Allowed, "failures were reset")
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{MaxAttempts: 2, Window: time.Minute})

	assert.True(t, rl.check("10.0.0.1").Allowed)
	assert.True(t, rl.check("10.0.0.1").Allowed)
	assert.False(t, rl.check("10.0.0.1").Allowed)
	assert.True(t, rl.check("10.0.0.2").Allowed)
}

func TestRateLimiter_ExponentialBackoff(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(RateLimitConfig{MaxAttempts: 100, Window: time.Minute, BlockAfter: 2, BlockTime: 10 * time.Second})
	ip := "192.168.1.30"

	rl.recordFailure(ip)
	rl.recordFailure(ip)
	v := rl.check(ip)
	require.True(t, v.Blocked)
	assert.Equal(t, 10*time.Second, v.RetryAfter)

	clock.advance(10 * time.Second)
	assert.True(t, rl.check(ip).Allowed)

	rl.recordFailure(ip)
	rl.recordFailure(ip)
	v = rl.check(ip)
	require.True(t, v.Blocked)
	assert.Equal(t, 20*time.Second, v.RetryAfter)
}

func TestRateLimiter_BlockCapped(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{BlockAfter: 1, BlockTime: time.Hour, MaxBlock: 3 * time.Hour})
	ip := "192.168.1.31"

	for i := 0; i < 10; i++ {
		rl.recordFailure(ip)
	}
	assert.Equal(t, 3*time.Hour, rl.check(ip).RetryAfter)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(RateLimitConfig{MaxAttempts: 2, Window: time.Second, BlockAfter: 2, BlockTime: time.Second})
	ip := "192.168.1.20"

	rl.check(ip)
	rl.recordFailure(ip)
	rl.recordFailure(ip)

	clock.advance(2 * time.Second)
	rl.cleanup()

	assert.Empty(t, rl.attempts)
	assert.Empty(t, rl.blocked)
	assert.Empty(t, rl.failures)
	assert.True(t, rl.check(ip).Allowed)
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remoteIP string
		expected string
	}{
		{"X-Forwarded-For single IP", map[string]string{"X-Forwarded-For": "203.0.113.50"}, "10.0.0.1:12345", "203.0.113.50"},
		{"X-Forwarded-For multiple IPs", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, "10.0.0.1:12345", "203.0.113.50"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.51"}, "10.0.0.1:12345", "203.0.113.51"},
		{"X-Forwarded-For wins", map[string]string{"X-Forwarded-For": "203.0.113.50", "X-Real-IP": "203.0.113.51"}, "10.0.0.1:12345", "203.0.113.50"},
		{"remote address", map[string]string{}, "10.0.0.1:12345", "10.0.0.1"},
		{"remote address without port", map[string]string{}, "10.0.0.1", "10.0.0.1"},
		{"whitespace", map[string]string{"X-Forwarded-For": "  203.0.113.50  "}, "10.0.0.1:12345", "203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			req.RemoteAddr = tt.remoteIP
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			assert.Equal(t, tt.expected, extractIP(req))
		})
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRateLimitConfig()
	assert.Equal(t, 5, config.MaxAttempts)
	assert.Equal(t, time.Minute, config.Window)
	assert.Equal(t, 10, config.BlockAfter)
	assert.Equal(t, 5*time.Minute, config.BlockTime)
	assert.Equal(t, 24*time.Hour, config.MaxBlock)
	assert.Equal(t, config, RateLimitConfig{}.withDefaults())
}

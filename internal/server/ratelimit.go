package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thruflo/rain/internal/logging"
)

// RateLimitConfig limits token verification per client IP. Each uncached
// token costs one argon2 hash, so verifications are counted per window and
// repeated failures block the client with a doubling duration.
type RateLimitConfig struct {
	MaxAttempts int           // verifications per window (default: 5)
	Window      time.Duration // sliding window (default: 1 minute)
	BlockAfter  int           // failures before blocking (default: 10)
	BlockTime   time.Duration // first block duration, doubled per block (default: 5 minutes)
	MaxBlock    time.Duration // cap on the block duration (default: 24 hours)
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 5,
		Window:      time.Minute,
		BlockAfter:  10,
		BlockTime:   5 * time.Minute,
		MaxBlock:    24 * time.Hour,
	}
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.BlockAfter <= 0 {
		c.BlockAfter = d.BlockAfter
	}
	if c.BlockTime <= 0 {
		c.BlockTime = d.BlockTime
	}
	if c.MaxBlock <= 0 {
		c.MaxBlock = d.MaxBlock
	}
	return c
}

// rateLimiter is a sliding window limiter with exponential blocking.
type rateLimiter struct {
	mu     sync.Mutex
	config RateLimitConfig
	now    func() time.Time
	log    *logging.Logger

	attempts map[string][]time.Time // verification times per IP
	failures map[string]int         // consecutive failures per IP
	blocked  map[string]time.Time   // block expiry per IP
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		config:   config.withDefaults(),
		now:      time.Now,
		log:      logging.With("component", "ratelimit"),
		attempts: make(map[string][]time.Time),
		failures: make(map[string]int),
		blocked:  make(map[string]time.Time),
	}
}

// verdict is the outcome of a rate limit check.
type verdict struct {
	Allowed    bool
	RetryAfter time.Duration
	Blocked    bool   // rejected for repeated failures rather than volume
	Reason     string // human-readable reason for rejection
}

// check reports whether ip may verify a token now, and records the attempt
// when it may.
func (rl *rateLimiter) check(ip string) verdict {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	if expiry, ok := rl.blocked[ip]; ok {
		if now.Before(expiry) {
			return verdict{RetryAfter: expiry.Sub(now), Blocked: true, Reason: "too many failed attempts"}
		}
		delete(rl.blocked, ip)
	}

	recent := rl.prune(ip, now)
	if len(recent) >= rl.config.MaxAttempts {
		retry := recent[0].Add(rl.config.Window).Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return verdict{RetryAfter: retry, Reason: "rate limit exceeded"}
	}

	rl.attempts[ip] = append(recent, now)
	return verdict{Allowed: true}
}

// prune drops attempts outside the window and returns the rest.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	windowStart := now.Add(-rl.config.Window)
	kept := rl.attempts[ip][:0]
	for _, ts := range rl.attempts[ip] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = kept
	return kept
}

// recordSuccess clears the failure history of ip.
func (rl *rateLimiter) recordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.failures, ip)
	delete(rl.blocked, ip)
}

// recordFailure counts a failed verification, blocking ip once failures
// reach BlockAfter. Each further BlockAfter failures doubles the block.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.failures[ip]++
	fails := rl.failures[ip]
	if fails < rl.config.BlockAfter {
		return
	}

	blocks := (fails - rl.config.BlockAfter) / rl.config.BlockAfter
	d := rl.config.BlockTime
	for i := 0; i < blocks && d < rl.config.MaxBlock; i++ {
		d *= 2
	}
	if d > rl.config.MaxBlock {
		d = rl.config.MaxBlock
	}

	rl.blocked[ip] = rl.now().Add(d)
	rl.log.Warn("client blocked", "ip", ip, "duration", d, "failures", fails)
}

// cleanup removes expired state. Failure counts survive while the IP is
// blocked or still has attempts in the window.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip := range rl.attempts {
		rl.prune(ip, now)
	}
	for ip, expiry := range rl.blocked {
		if !now.Before(expiry) {
			delete(rl.blocked, ip)
		}
	}
	for ip := range rl.failures {
		_, blocked := rl.blocked[ip]
		_, active := rl.attempts[ip]
		if !blocked && !active {
			delete(rl.failures, ip)
		}
	}
}

// extractIP returns the client IP, preferring proxy headers.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

package testutil

import (
	"context"
	"testing"
	"time"
)

const (
	// DefaultTimeout bounds a test's remote operations when the test has no
	// deadline of its own.
	DefaultTimeout = 30 * time.Second

	// DefaultTestBuffer is the buffer time subtracted from test deadline
	// to allow for cleanup operations before the test times out.
	DefaultTestBuffer = 5 * time.Second
)

// ContextWithTestDeadline creates a context that respects the test's deadline.
// It subtracts DefaultTestBuffer from the test deadline to allow time for
// cleanup. If the test has no deadline, or the adjusted deadline is already
// past, it falls back to the provided fallback duration.
//
// Usage:
//
//	ctx, cancel := testutil.ContextWithTestDeadline(t, time.Minute)
//	defer cancel()
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjusted := deadline.Add(-DefaultTestBuffer)
		if time.Until(adjusted) > 0 {
			return context.WithDeadline(context.Background(), adjusted)
		}
	}
	return context.WithTimeout(context.Background(), fallback)
}

// Context returns a context for remote operations bounded by
// DefaultTimeout or the test deadline, cancelled at test cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := ContextWithTestDeadline(t, DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

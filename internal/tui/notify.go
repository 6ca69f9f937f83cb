package tui

import (
	"sync"
	"time"

	"github.com/thruflo/rain/internal/syncer"
)

// Defaults for Toasts.
const (
	DefaultToastTTL = 4 * time.Second
	maxToasts       = 4
)

// Ringer sounds an audible alert. Terminal implements it.
type Ringer interface {
	RingBell()
}

// Toasts holds transient notifications shown in the corner of the editor
// until they expire. It implements syncer.Notifier.
type Toasts struct {
	mu    sync.Mutex
	ttl   time.Duration
	items []syncer.Notification
	bell  Ringer
	now   func() time.Time
}

// NewToasts creates a Toasts with the given time to live. Errors ring bell
// when it is non-nil.
func NewToasts(ttl time.Duration, bell Ringer) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{ttl: ttl, bell: bell, now: time.Now}
}

// Notify adds a toast. Only the newest few are kept.
func (t *Toasts) Notify(n syncer.Notification) {
	if n.At.IsZero() {
		n.At = t.now()
	}

	t.mu.Lock()
	t.items = append(t.items, n)
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
	t.mu.Unlock()

	if n.Level == syncer.LevelError && t.bell != nil {
		t.bell.RingBell()
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (t *Toasts) Active(now time.Time) []syncer.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.items[:0]
	for _, n := range t.items {
		if now.Sub(n.At) < t.ttl {
			kept = append(kept, n)
		}
	}
	t.items = kept

	out := make([]syncer.Notification, len(kept))
	copy(out, kept)
	return out
}

// Info adds an informational toast stamped now.
func (t *Toasts) Info(title, message string) {
	t.Notify(syncer.Notification{Level: syncer.LevelInfo, Title: title, Message: message})
}

// Error adds an error toast stamped now.
func (t *Toasts) Error(title, message string) {
	t.Notify(syncer.Notification{Level: syncer.LevelError, Title: title, Message: message})
}

var (
	_ syncer.Notifier = (*Toasts)(nil)
	_ Ringer          = (*Terminal)(nil)
)

// Package syncer keeps the remote copy of an open session approximately
// current. A Scheduler is advanced by the control loop's tick: it uploads a
// snapshot once per interval through a single-slot mailbox, so at most one
// upload is ever outstanding, and reports failures to a Notifier.
package syncer

import (
	"context"
	"time"

	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/mailbox"
	"github.com/thruflo/rain/internal/store"
)

// Defaults for Config.
const (
	DefaultInterval = time.Second
	DefaultTimeout  = 10 * time.Second
)

// SnapshotFunc captures the current session by value.
type SnapshotFunc func() store.Snapshot

// Config holds scheduler timing.
type Config struct {
	// Interval is the minimum time between upload attempts, measured from
	// attempt to attempt.
	Interval time.Duration
	// Timeout bounds each upload.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Stats counts scheduler activity.
type Stats struct {
	Dispatched  int
	Succeeded   int
	Failed      int
	Skipped     int // due intervals passed while an upload was outstanding
	LastError   error
	LastSuccess time.Time
}

// Scheduler uploads snapshots on a fixed cadence. Tick, SyncNow and Stats
// must be called from the control loop goroutine.
type Scheduler struct {
	store    store.Store
	token    string
	snapshot SnapshotFunc
	notifier Notifier
	cfg      Config
	log      *logging.Logger

	slot        mailbox.Slot[error]
	lastAttempt time.Time
	stats       Stats
}

// New creates a Scheduler. The first upload is due one interval after now.
func New(st store.Store, token string, snapshot SnapshotFunc, notifier Notifier, cfg Config, now time.Time) *Scheduler {
	if notifier == nil {
		notifier = Discard
	}
	return &Scheduler{
		store:       st,
		token:       token,
		snapshot:    snapshot,
		notifier:    notifier,
		cfg:         cfg.withDefaults(),
		log:         logging.With("component", "syncer"),
		lastAttempt: now,
	}
}

// Tick collects a finished upload, if any, and starts a new one when the
// slot is idle and an interval has passed since the last attempt.
func (s *Scheduler) Tick(now time.Time) {
	if s.slot.InFlight() {
		err, status := s.slot.Poll()
		if status == mailbox.StillPending {
			if s.due(now) {
				s.stats.Skipped++
			}
			return
		}
		s.collect(err, now)
	}

	if s.due(now) {
		s.dispatch(now)
	}
}

func (s *Scheduler) due(now time.Time) bool {
	return now.Sub(s.lastAttempt) >= s.cfg.Interval
}

func (s *Scheduler) collect(err error, now time.Time) {
	if err == nil {
		s.stats.Succeeded++
		s.stats.LastSuccess = now
		s.log.Debug("session synced")
		return
	}

	s.stats.Failed++
	s.stats.LastError = err
	s.log.Warn("session sync failed", "error", err)
	s.notifier.Notify(Notification{
		Level:   LevelError,
		Title:   "Sync failed",
		Message: describe(err),
		At:      now,
	})
}

func (s *Scheduler) dispatch(now time.Time) {
	snap := s.snapshot()
	st, token, timeout := s.store, s.token, s.cfg.Timeout

	s.slot.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return st.Upsert(ctx, token, snap)
	})

	s.lastAttempt = now
	s.stats.Dispatched++
	s.log.Debug("session sync dispatched", "id", snap.ID)
}

// SyncNow makes the next Tick due regardless of the interval. An upload
// already outstanding is still waited for.
func (s *Scheduler) SyncNow() {
	s.lastAttempt = time.Time{}
}

// InFlight reports whether an upload is outstanding.
func (s *Scheduler) InFlight() bool {
	return s.slot.InFlight()
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// describe turns a store error into a short user-facing message.
func describe(err error) string {
	switch {
	case store.IsDomain(err):
		return "server rejected the session: " + err.Error()
	case store.IsTransport(err):
		return "server unreachable: " + err.Error()
	case store.IsProtocol(err):
		return "bad server response: " + err.Error()
	default:
		return err.Error()
	}
}

// Package mailbox provides a single-slot handoff between a control loop that
// must never block and background goroutines that compute results for it.
//
// A Slot tracks at most one outstanding operation. Dispatching again replaces
// the tracked operation: the earlier goroutine keeps running, but whatever it
// delivers lands in a channel nobody reads any more. There is no cancellation.
package mailbox

// Status is the outcome of a Poll.
type Status int

const (
	// NotInFlight means nothing has been dispatched since the last delivery.
	NotInFlight Status = iota
	// StillPending means a dispatch is outstanding and has not delivered yet.
	StillPending
	// Delivered means the outstanding dispatch delivered a value.
	Delivered
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case NotInFlight:
		return "not_in_flight"
	case StillPending:
		return "still_pending"
	case Delivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Producer is the write half handed to a background goroutine.
// It holds only the delivery channel, never the Slot.
type Producer[T any] struct {
	ch chan T
}

// Deliver hands v to the slot that created this producer. It never blocks.
// Only the first delivery is kept; later ones are dropped.
func (p Producer[T]) Deliver(v T) {
	if p.ch == nil {
		return
	}
	select {
	case p.ch <- v:
	default:
	}
}

// Slot is a capacity-one mailbox owned by a single consumer.
// The zero value is an idle slot ready for use.
//
// Slot methods are meant to be called from the owning goroutine only;
// Producers may be used from any goroutine.
type Slot[T any] struct {
	ch chan T
}

// Dispatch starts tracking a new operation and returns its producer.
// Any previously tracked operation is orphaned.
func (s *Slot[T]) Dispatch() Producer[T] {
	ch := make(chan T, 1)
	s.ch = ch
	return Producer[T]{ch: ch}
}

// Go dispatches and runs fn on a new goroutine, delivering its result.
func (s *Slot[T]) Go(fn func() T) {
	p := s.Dispatch()
	go func() {
		p.Deliver(fn())
	}()
}

// Poll checks for a delivered value without blocking.
// A Delivered result returns the slot to idle.
func (s *Slot[T]) Poll() (T, Status) {
	var zero T
	if s.ch == nil {
		return zero, NotInFlight
	}

	select {
	case v := <-s.ch:
		s.ch = nil
		return v, Delivered
	default:
		return zero, StillPending
	}
}

// InFlight reports whether an operation is tracked and not yet collected.
func (s *Slot[T]) InFlight() bool {
	return s.ch != nil
}

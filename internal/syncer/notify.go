package syncer

import "time"

// Level is the severity of a Notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a transient, user-visible message.
type Notification struct {
	Level   Level
	Title   string
	Message string
	At      time.Time
}

// Notifier receives notifications. Notify is called from the control loop
// and must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

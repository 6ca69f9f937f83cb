// Package dirty provides an edge-triggered change flag for tick-driven loops.
package dirty

// Tracker records that something changed since the last check.
// The zero value is clean.
type Tracker struct {
	changed bool
}

// MarkChanged records a mutation. Safe to call any number of times.
func (t *Tracker) MarkChanged() {
	t.changed = true
}

// Changed reports whether a mutation is pending without consuming it.
func (t *Tracker) Changed() bool {
	return t.changed
}

// IfChanged runs action once if a mutation is pending and reports whether it ran.
// The flag is cleared before action runs, so mutations made by action are
// picked up by the next call.
func (t *Tracker) IfChanged(action func()) bool {
	if !t.changed {
		return false
	}
	t.changed = false
	action()
	return true
}

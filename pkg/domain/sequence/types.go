// Package sequence defines the per-territory round-robin rotation state
// the selector (C8) reads and the lead store advances under
// compare-and-set (spec.md §4.5, §4.8).
package sequence

import "time"

// Cursor is the per-territory rotation state.
type Cursor struct {
	Territory       string
	LastAssignedID  string // agency id; empty if no assignment has happened yet
	LastAssignedAt  time.Time
	Counter         int64
}

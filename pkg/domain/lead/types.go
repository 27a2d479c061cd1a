// Package lead defines the canonical lead record produced by the
// ingestion pipeline (schema mapping → validation → dedup → persistence)
// and transitioned by the assignment coordinator and lifecycle controller.
package lead

import "time"

// Status is the lifecycle state of a lead (spec.md §3, §4.10).
type Status string

const (
	StatusNew                 Status = "new"
	StatusAssigned            Status = "assigned"
	StatusAccepted            Status = "accepted"
	StatusRejected            Status = "rejected"
	StatusPendingReassignment Status = "pending_reassignment"
	StatusUnassigned          Status = "unassigned"
	StatusArchived            Status = "archived"
)

// Contact is the normalized contact identity of a lead.
type Contact struct {
	Name  string
	Email string // lowercased, trimmed; empty if not provided
	Phone string // digits only, truncated to 20 chars; empty if not provided
}

// HasIdentity reports whether the contact carries at least one of the
// identifiers the deduplicator (C4) keys on.
func (c Contact) HasIdentity() bool {
	return c.Email != "" || c.Phone != ""
}

// Lead is a canonical lead record.
type Lead struct {
	ID               string
	PortalID         string
	Contact          Contact
	Territory        string // 5-digit postal code, or "city, state" fallback
	Industry         string
	Status           Status
	CreatedAt        time.Time
	Extra            map[string]string // opaque extra-fields bag; never indexed or compared
	AssignedAgencyID string            // empty when no agency currently holds the lead
}

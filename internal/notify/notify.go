// Package notify implements the outbound notification capabilities
// SPEC_FULL.md §9 adds around assignment: pushing an accept/reject
// prompt to the receiving agency's mobile app, and escalating to an
// operations channel when a lead exhausts rotation with no eligible
// agency (spec.md §4.6's NoEligibleAgency case).
//
// Grounded on the teacher's capability-injection discipline throughout
// internal/ (e.g. internal/approval.Requester/Submitter): callers depend
// on a narrow interface, never a concrete client, so the ingestion
// pipeline and batch distributor can be tested with a recording fake
// instead of a live mobile push gateway or Slack workspace.
package notify

import "context"

// AssignmentNotifier pushes an assignment to the receiving agency's
// mobile app (spec.md §4.9).
type AssignmentNotifier interface {
	NotifyAssigned(ctx context.Context, agencyID, leadID string) error
}

// OpsNotifier escalates operational conditions that need a human to look
// — most notably "no eligible agency" (spec.md §4.6) and "no eligible
// agency after exclusion" (spec.md §4.10) — to a channel ops monitors.
type OpsNotifier interface {
	NotifyNoEligibleAgency(ctx context.Context, leadID, territory, industry string) error
	NotifyUnassignedAfterReject(ctx context.Context, leadID, territory string) error
}

// Package lifecycle implements the lifecycle controller (C10): the
// component that applies agency-initiated accept/reject transitions to
// an assignment, and on reject, triggers re-routing.
//
// Grounded on the teacher's internal/approval package
// (quantumlife-canon-core/internal/approval/interface.go), which splits
// a governance workflow into narrow capability interfaces (Store,
// Requester, Submitter, Verifier) composed into one Manager, and
// validates every mutation against typed sentinel errors
// (ErrApprovalExpired, ErrDuplicateApproval, ErrCircleNotAuthorized,
// ...) rather than generic failures. This controller follows the same
// shape: Reader/Mutator capability interfaces composed into one
// Controller, and every transition checked against
// pkg/errors.ErrAssignmentNotPending / ErrAgencyMismatch /
// ErrLeadNotFound before any write happens.
package lifecycle

import (
	"context"
	"time"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/lead"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
	"github.com/leadbroker/broker/pkg/idgen"
)

// AssignmentReader reads the current state of an assignment.
type AssignmentReader interface {
	GetAssignment(ctx context.Context, assignmentID string) (*assignment.Assignment, error)
}

// AssignmentMutator applies a status transition to an assignment.
type AssignmentMutator interface {
	UpdateAssignmentStatus(ctx context.Context, assignmentID string, status assignment.Status, at time.Time, rejectionReason string) error
}

// LeadMutator applies a status transition to a lead.
type LeadMutator interface {
	UpdateLeadStatus(ctx context.Context, leadID string, status lead.Status) error
	GetLead(ctx context.Context, leadID string) (*lead.Lead, error)
}

// AuditRecorder appends an audit entry carrying its own content hash.
type AuditRecorder interface {
	Append(ctx context.Context, e *audit.Entry) error
}

// RotationCandidateSource provides the candidate list for a reassignment
// attempt, already eligibility- and capacity-filtered.
type RotationCandidateSource interface {
	Candidates(ctx context.Context, territory, industry string) ([]capacity.Candidate, error)
}

// Clock is the minimal time source the controller needs.
type Clock interface {
	Now() time.Time
}

// ActiveAssignmentLookup finds a lead's current pending-or-accepted
// assignment, if any. Implemented by the lead store (C5); used by
// Reassign to supersede the prior assignment before creating a new one.
type ActiveAssignmentLookup interface {
	FindActiveAssignmentByLead(ctx context.Context, leadID string) (*assignment.Assignment, error)
}

// Controller applies agency decisions to assignments.
type Controller struct {
	assignments       AssignmentReader
	mutate            AssignmentMutator
	leads             LeadMutator
	auditLog          AuditRecorder
	candidates        RotationCandidateSource
	coordinator       *assign.Coordinator
	activeAssignments ActiveAssignmentLookup
	ids               idgen.Generator
	clk               Clock
}

// New creates a Controller.
func New(
	assignments AssignmentReader,
	mutate AssignmentMutator,
	leads LeadMutator,
	auditLog AuditRecorder,
	candidates RotationCandidateSource,
	coordinator *assign.Coordinator,
	activeAssignments ActiveAssignmentLookup,
	ids idgen.Generator,
	clk Clock,
) *Controller {
	return &Controller{
		assignments:       assignments,
		mutate:            mutate,
		leads:             leads,
		auditLog:          auditLog,
		candidates:        candidates,
		coordinator:       coordinator,
		activeAssignments: activeAssignments,
		ids:               ids,
		clk:               clk,
	}
}

// verifyPending loads the assignment and checks it is pending and owned
// by the given agency, per spec.md §4.10's precondition for both accept
// and reject.
func (c *Controller) verifyPending(ctx context.Context, assignmentID, agencyID string) (*assignment.Assignment, error) {
	a, err := c.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, broker_errors.Wrap(err, "get assignment")
	}
	if a == nil {
		return nil, broker_errors.ErrLeadNotFound
	}
	if a.AgencyID != agencyID {
		return nil, broker_errors.ErrAgencyMismatch
	}
	if a.Status != assignment.StatusPending {
		return nil, broker_errors.ErrAssignmentNotPending
	}
	return a, nil
}

// Accept transitions a pending assignment to accepted and the lead to
// accepted, per spec.md §4.10.
func (c *Controller) Accept(ctx context.Context, assignmentID, agencyID string) error {
	a, err := c.verifyPending(ctx, assignmentID, agencyID)
	if err != nil {
		return err
	}

	now := c.clk.Now()
	if err := c.mutate.UpdateAssignmentStatus(ctx, a.ID, assignment.StatusAccepted, now, ""); err != nil {
		return broker_errors.Wrap(err, "update assignment status")
	}
	if err := c.leads.UpdateLeadStatus(ctx, a.LeadID, lead.StatusAccepted); err != nil {
		return broker_errors.Wrap(err, "update lead status")
	}

	c.audit(ctx, audit.ActionAssignmentAccepted, a.LeadID, "agency_id="+agencyID)
	return nil
}

// Reject transitions a pending assignment to rejected, marks the lead
// pending_reassignment, and attempts one round of re-routing excluding
// the rejecting agency (spec.md §4.10: "the system attempts to route the
// lead to the next eligible agency in rotation, excluding the one that
// just rejected it" — no automatic re-entry into a later batch-distribute
// run if this immediate re-route also fails; see SPEC_FULL.md §13).
func (c *Controller) Reject(ctx context.Context, assignmentID, agencyID, reason string) error {
	a, err := c.verifyPending(ctx, assignmentID, agencyID)
	if err != nil {
		return err
	}

	now := c.clk.Now()
	if err := c.mutate.UpdateAssignmentStatus(ctx, a.ID, assignment.StatusRejected, now, reason); err != nil {
		return broker_errors.Wrap(err, "update assignment status")
	}
	if err := c.leads.UpdateLeadStatus(ctx, a.LeadID, lead.StatusPendingReassignment); err != nil {
		return broker_errors.Wrap(err, "update lead status")
	}
	c.audit(ctx, audit.ActionAssignmentRejected, a.LeadID, "agency_id="+agencyID+" reason="+reason)

	ld, err := c.leads.GetLead(ctx, a.LeadID)
	if err != nil || ld == nil {
		return broker_errors.Wrap(err, "reload lead for re-route")
	}

	candidates, err := c.candidates.Candidates(ctx, ld.Territory, ld.Industry)
	if err != nil {
		return broker_errors.Wrap(err, "load rotation candidates for re-route")
	}

	result := c.coordinator.Assign(ctx, assign.Request{
		LeadID:    ld.ID,
		Territory: ld.Territory,
		Excluded:  map[string]bool{agencyID: true},
		Method:    assignment.MethodReassignment,
	}, candidates)

	if result.Settlement != assign.SettlementSettled {
		if err := c.leads.UpdateLeadStatus(ctx, ld.ID, lead.StatusUnassigned); err != nil {
			return broker_errors.Wrap(err, "update lead status to unassigned")
		}
		c.audit(ctx, audit.ActionLeadUnassigned, ld.ID, "reason=no_eligible_after_exclusion")
		return nil
	}

	if err := c.leads.UpdateLeadStatus(ctx, ld.ID, lead.StatusAssigned); err != nil {
		return broker_errors.Wrap(err, "update lead status after re-route")
	}
	c.audit(ctx, audit.ActionReRouted, ld.ID, "agency_id="+result.Assignment.AgencyID)
	return nil
}

// Reassign implements the admin-triggered manual reassignment (C10): it
// supersedes any assignment currently pending or accepted on the lead,
// then assigns the lead to targetAgencyID via the same two-phase
// coordinator pipeline used for automatic routing, tagged
// assignment.MethodManual so the audit trail and assignment record
// distinguish it from rotation-driven assignment.
func (c *Controller) Reassign(ctx context.Context, leadID, targetAgencyID string) error {
	ld, err := c.leads.GetLead(ctx, leadID)
	if err != nil {
		return broker_errors.Wrap(err, "get lead")
	}
	if ld == nil {
		return broker_errors.ErrLeadNotFound
	}

	active, err := c.activeAssignments.FindActiveAssignmentByLead(ctx, leadID)
	if err != nil {
		return broker_errors.Wrap(err, "find active assignment")
	}
	if active != nil {
		if active.AgencyID == targetAgencyID {
			return nil
		}
		if err := c.mutate.UpdateAssignmentStatus(ctx, active.ID, assignment.StatusReassigned, c.clk.Now(), ""); err != nil {
			return broker_errors.Wrap(err, "supersede prior assignment")
		}
	}

	result := c.coordinator.Assign(ctx, assign.Request{
		LeadID:    ld.ID,
		Territory: ld.Territory,
		Method:    assignment.MethodManual,
	}, []capacity.Candidate{{AgencyID: targetAgencyID}})

	if result.Settlement != assign.SettlementSettled {
		return result.Error
	}

	if err := c.leads.UpdateLeadStatus(ctx, ld.ID, lead.StatusAssigned); err != nil {
		return broker_errors.Wrap(err, "update lead status after manual reassignment")
	}
	c.audit(ctx, audit.ActionReassigned, ld.ID, "agency_id="+targetAgencyID+" method=manual")
	return nil
}

func (c *Controller) audit(ctx context.Context, action audit.Action, target, payload string) {
	entry := audit.NewEntry("lifecycle", action, target, payload, c.clk.Now())
	entry.ID = c.ids.NewID()
	_ = c.auditLog.Append(ctx, entry)
}

// Package batch implements the scheduled batch-distribute sweep
// SPEC_FULL.md §9 adds: leads sitting in StatusNew or
// StatusPendingReassignment with no active assignment (an ingestion or a
// reject's re-route that stopped on an error before the lead was assigned
// or marked unassigned) get one more attempt each time the sweep runs, in
// case an agency's quota freed up or a new subscription started covering
// the territory since. Leads already in StatusUnassigned are not swept.
//
// Grounded on the teacher's internal/interruptions/engine.go, which
// walks a backlog and re-applies the same per-item pipeline (dedup, then
// quota) it uses for live events — the batch sweep here re-applies the
// same eligibility → capacity → coordinator pipeline internal/ingest
// uses inline, just against backlog leads instead of a fresh webhook.
package batch

import (
	"context"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/eligibility"
	"github.com/leadbroker/broker/internal/notify"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/lead"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// BacklogReader lists leads eligible for a re-attempt: new or
// pending_reassignment, with no active assignment.
type BacklogReader interface {
	ListUnassignedLeads(ctx context.Context) ([]lead.Lead, error)
}

// LeadStatusWriter updates a lead's status after a sweep attempt.
type LeadStatusWriter interface {
	UpdateLeadStatus(ctx context.Context, leadID string, status lead.Status) error
}

// LeadReader loads a single lead by id, for the admin-triggered
// single-lead distribute endpoint (SPEC_FULL.md §10's
// POST /admin/leads/{id}/distribute).
type LeadReader interface {
	GetLead(ctx context.Context, leadID string) (*lead.Lead, error)
}

// Distributor runs the batch-distribute sweep (spec.md §4.8's rotation,
// applied to backlog leads on a schedule rather than inline).
type Distributor struct {
	backlog     BacklogReader
	leadReader  LeadReader
	leads       LeadStatusWriter
	resolver    *eligibility.Resolver
	capacity    *capacity.Filter
	coordinator *assign.Coordinator
	assigned    notify.AssignmentNotifier
	ops         notify.OpsNotifier
}

// New creates a Distributor.
func New(
	backlog BacklogReader,
	leadReader LeadReader,
	leads LeadStatusWriter,
	resolver *eligibility.Resolver,
	capacityFilter *capacity.Filter,
	coordinator *assign.Coordinator,
	assignedNotifier notify.AssignmentNotifier,
	opsNotifier notify.OpsNotifier,
) *Distributor {
	return &Distributor{
		backlog:     backlog,
		leadReader:  leadReader,
		leads:       leads,
		resolver:    resolver,
		capacity:    capacityFilter,
		coordinator: coordinator,
		assigned:    assignedNotifier,
		ops:         opsNotifier,
	}
}

// Result summarizes one sweep.
type Result struct {
	Attempted int
	Assigned  int
	Skipped   int
	Errors    []error
}

// RunOnce performs one sweep over the current backlog. Called on a
// schedule by cmd/leadbroker-batch via github.com/robfig/cron (SPEC_FULL.md
// §8); exposed as a plain method so the cron wiring and the sweep logic
// stay independently testable. limit caps how many backlog leads are
// attempted in this sweep (SPEC_FULL.md §10's batch-distribute {limit});
// limit <= 0 means no cap.
func (d *Distributor) RunOnce(ctx context.Context, limit int) Result {
	var res Result

	backlog, err := d.backlog.ListUnassignedLeads(ctx)
	if err != nil {
		res.Errors = append(res.Errors, broker_errors.Wrap(err, "list unassigned leads"))
		return res
	}

	if limit > 0 && len(backlog) > limit {
		backlog = backlog[:limit]
	}

	for _, l := range backlog {
		d.attempt(ctx, l, &res)
	}

	return res
}

// DistributeOne runs the sweep pipeline against a single lead, for the
// admin-triggered POST /admin/leads/{id}/distribute endpoint.
func (d *Distributor) DistributeOne(ctx context.Context, leadID string) (Result, error) {
	var res Result

	l, err := d.leadReader.GetLead(ctx, leadID)
	if err != nil {
		return res, broker_errors.Wrap(err, "get lead")
	}
	if l == nil {
		return res, broker_errors.ErrLeadNotFound
	}

	d.attempt(ctx, *l, &res)
	return res, nil
}

// attempt runs the eligibility → capacity → coordinator pipeline against
// one backlog lead, recording the outcome on res. On NoEligibleAgency —
// no candidates survive eligibility/capacity filtering, or the
// coordinator fails to settle — the lead is persisted as unassigned
// (spec.md §4.9) rather than silently left in its current status.
func (d *Distributor) attempt(ctx context.Context, l lead.Lead, res *Result) {
	res.Attempted++

	candidates, err := d.resolver.Resolve(ctx, l.Territory, l.Industry)
	if err != nil {
		res.Errors = append(res.Errors, broker_errors.Wrap(err, "resolve eligibility"))
		return
	}

	capCandidates := make([]capacity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		capCandidates = append(capCandidates, capacity.Candidate{AgencyID: c.Agency.ID, Subscription: c.Subscription})
	}
	filtered, err := d.capacity.Apply(ctx, capCandidates)
	if err != nil {
		res.Errors = append(res.Errors, broker_errors.Wrap(err, "apply capacity filter"))
		return
	}

	if len(filtered) == 0 {
		if err := d.leads.UpdateLeadStatus(ctx, l.ID, lead.StatusUnassigned); err != nil {
			res.Errors = append(res.Errors, broker_errors.Wrap(err, "update lead status to unassigned"))
			return
		}
		res.Skipped++
		return
	}

	result := d.coordinator.Assign(ctx, assign.Request{
		LeadID:    l.ID,
		Territory: l.Territory,
		Method:    assignment.MethodAuto,
	}, filtered)

	if result.Settlement != assign.SettlementSettled {
		if err := d.leads.UpdateLeadStatus(ctx, l.ID, lead.StatusUnassigned); err != nil {
			res.Errors = append(res.Errors, broker_errors.Wrap(err, "update lead status to unassigned"))
			return
		}
		res.Skipped++
		return
	}

	if err := d.leads.UpdateLeadStatus(ctx, l.ID, lead.StatusAssigned); err != nil {
		res.Errors = append(res.Errors, broker_errors.Wrap(err, "update lead status after sweep assignment"))
		return
	}
	if d.assigned != nil {
		_ = d.assigned.NotifyAssigned(ctx, result.Assignment.AgencyID, l.ID)
	}
	res.Assigned++
}

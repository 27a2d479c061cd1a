// Package ingest wires C2 through C5 plus C6/C7/C9 into the single
// webhook-reception pipeline spec.md §2 describes end to end, for a portal
// already authenticated by internal/httpapi: map and normalize the
// payload, validate it, check for a
// duplicate, persist the lead, resolve eligible agencies, filter by
// capacity, and hand off to the assignment coordinator.
//
// Grounded on the teacher's internal/interruptions/engine.go, which
// composes several independently-testable stages (dedup, quota) behind
// one entry point call rather than making callers re-wire the sequence
// themselves.
package ingest

import (
	"context"
	"time"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/dedup"
	"github.com/leadbroker/broker/internal/eligibility"
	"github.com/leadbroker/broker/internal/notify"
	"github.com/leadbroker/broker/internal/schema"
	"github.com/leadbroker/broker/internal/validate"
	"github.com/leadbroker/broker/internal/webhookauth"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/lead"
	"github.com/leadbroker/broker/pkg/domain/portal"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
	"github.com/leadbroker/broker/pkg/idgen"
)

// LeadWriter persists a newly accepted lead and transitions its status.
type LeadWriter interface {
	CreateLead(ctx context.Context, l lead.Lead) error
	UpdateLeadStatus(ctx context.Context, leadID string, status lead.Status) error
}

// AuditRecorder appends an audit entry carrying its own content hash.
type AuditRecorder interface {
	Append(ctx context.Context, e *audit.Entry) error
}

// Clock is the minimal time source the pipeline needs.
type Clock interface {
	Now() time.Time
}

// Outcome reports what happened to one inbound webhook payload.
type Outcome struct {
	LeadID     string
	Status     lead.Status
	DuplicateOf string
	Violations []validate.Violation
}

// Pipeline is the webhook-reception pipeline.
type Pipeline struct {
	auth        *webhookauth.Authenticator
	mapper      *schema.Mapper
	dedup       *dedup.Deduplicator
	leads       LeadWriter
	resolver    *eligibility.Resolver
	capacity    *capacity.Filter
	coordinator *assign.Coordinator
	auditLog    AuditRecorder
	assigned    notify.AssignmentNotifier
	ops         notify.OpsNotifier
	ids         idgen.Generator
	clk         Clock
}

// New creates a Pipeline. The mapper passed in should already be built
// per-portal (internal/schema.NewMapper with that portal's
// MappingOverride); callers that handle many portals construct one
// Pipeline per request with the portal-specific mapper, or keep a
// mapper cache keyed by portal id.
func New(
	auth *webhookauth.Authenticator,
	mapper *schema.Mapper,
	deduper *dedup.Deduplicator,
	leads LeadWriter,
	resolver *eligibility.Resolver,
	capacityFilter *capacity.Filter,
	coordinator *assign.Coordinator,
	auditLog AuditRecorder,
	assignedNotifier notify.AssignmentNotifier,
	opsNotifier notify.OpsNotifier,
	ids idgen.Generator,
	clk Clock,
) *Pipeline {
	return &Pipeline{
		auth:        auth,
		mapper:      mapper,
		dedup:       deduper,
		leads:       leads,
		resolver:    resolver,
		capacity:    capacityFilter,
		coordinator: coordinator,
		auditLog:    auditLog,
		assigned:    assignedNotifier,
		ops:         opsNotifier,
		ids:         ids,
		clk:         clk,
	}
}

// Receive runs the full webhook-reception pipeline for one payload,
// already authenticated to po (the portal authenticator runs one layer up,
// in internal/httpapi, since it needs the raw code+secret from the HTTP
// request before any payload parsing happens).
func (p *Pipeline) Receive(ctx context.Context, po *portal.Portal, payload map[string]any) (*Outcome, error) {
	p.auditAppend(ctx, audit.ActionWebhookReceived, po.Code, "")

	mapped := p.mapper.Map(payload)

	zipcode := schema.NormalizeZipcode(mapped.Canonical["zipcode"])
	city := mapped.Canonical["city"]
	state := schema.NormalizeState(mapped.Canonical["state"])
	territory := schema.Territory(zipcode, city, state)

	candidate := validate.Candidate{
		Name:      mapped.Canonical["name"],
		Email:     schema.NormalizeEmail(mapped.Canonical["email"]),
		Phone:     schema.NormalizePhone(mapped.Canonical["phone"]),
		Territory: territory,
	}

	if violations := validate.Validate(candidate); len(violations) > 0 {
		p.auditAppend(ctx, audit.ActionValidationFailed, po.Code, "")
		return &Outcome{Violations: violations}, broker_errors.ErrValidationFailed
	}

	if existingID, dup, err := p.dedup.Check(ctx, candidate.Email, candidate.Phone); err != nil {
		return nil, broker_errors.Wrap(err, "dedup check")
	} else if dup {
		p.auditAppend(ctx, audit.ActionDuplicateSuppressed, existingID, "")
		return &Outcome{DuplicateOf: existingID}, broker_errors.ErrDuplicateSuppressed
	}

	l := lead.Lead{
		ID:       p.ids.NewID(),
		PortalID: po.ID,
		Contact: lead.Contact{
			Name:  candidate.Name,
			Email: candidate.Email,
			Phone: candidate.Phone,
		},
		Territory: territory,
		Industry:  po.Industry,
		Status:    lead.StatusNew,
		CreatedAt: p.clk.Now(),
		Extra:     mapped.Extra,
	}
	if err := p.leads.CreateLead(ctx, l); err != nil {
		return nil, broker_errors.Wrap(err, "create lead")
	}
	p.auditAppend(ctx, audit.ActionLeadCreated, l.ID, "")

	candidates, err := p.resolver.Resolve(ctx, l.Territory, l.Industry)
	if err != nil {
		return nil, broker_errors.Wrap(err, "resolve eligibility")
	}

	capCandidates := make([]capacity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		capCandidates = append(capCandidates, capacity.Candidate{AgencyID: c.Agency.ID, Subscription: c.Subscription})
	}
	filtered, err := p.capacity.Apply(ctx, capCandidates)
	if err != nil {
		return nil, broker_errors.Wrap(err, "apply capacity filter")
	}

	if len(filtered) == 0 {
		if err := p.leads.UpdateLeadStatus(ctx, l.ID, lead.StatusUnassigned); err != nil {
			return nil, broker_errors.Wrap(err, "update lead status to unassigned")
		}
		p.auditAppend(ctx, audit.ActionNoEligibleAgency, l.ID, "")
		if p.ops != nil {
			_ = p.ops.NotifyNoEligibleAgency(ctx, l.ID, l.Territory, l.Industry)
		}
		return &Outcome{LeadID: l.ID, Status: lead.StatusUnassigned}, nil
	}

	result := p.coordinator.Assign(ctx, assign.Request{
		LeadID:    l.ID,
		Territory: l.Territory,
		Method:    assignment.MethodAuto,
	}, filtered)

	if result.Settlement != assign.SettlementSettled {
		if err := p.leads.UpdateLeadStatus(ctx, l.ID, lead.StatusUnassigned); err != nil {
			return nil, broker_errors.Wrap(err, "update lead status to unassigned")
		}
		return &Outcome{LeadID: l.ID, Status: lead.StatusUnassigned}, result.Error
	}

	if p.assigned != nil {
		_ = p.assigned.NotifyAssigned(ctx, result.Assignment.AgencyID, l.ID)
	}

	return &Outcome{LeadID: l.ID, Status: lead.StatusAssigned}, nil
}

func (p *Pipeline) auditAppend(ctx context.Context, action audit.Action, target, payload string) {
	entry := audit.NewEntry("pipeline", action, target, payload, p.clk.Now())
	entry.ID = p.ids.NewID()
	_ = p.auditLog.Append(ctx, entry)
}

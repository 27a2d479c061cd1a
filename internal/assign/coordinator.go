// Package assign implements the assignment coordinator (C9): the
// component that turns an eligible, capacity-filtered candidate list
// into a committed assignment.
//
// Grounded on the teacher's two-phase execution pipeline
// (quantumlife-canon-core/internal/action/impl_inmem/pipeline.go):
// Prepare validates and picks a candidate without touching durable
// state; Execute performs the compare-and-set cursor advance and the
// durable write, and settles to either Settled or Aborted. Where the
// teacher re-checks revocation immediately before the write, this
// coordinator re-reads the sequence cursor immediately before the CAS
// advance — the same "don't trust phase-1 state across phase 2" idea,
// applied to rotation fairness instead of authorization.
package assign

import (
	"context"
	"fmt"
	"time"

	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/rotation"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/sequence"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
	"github.com/leadbroker/broker/pkg/idgen"
)

// SettlementStatus mirrors the teacher's SettlementStatus enum, adapted
// to this domain's outcomes.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
	SettlementAborted SettlementStatus = "aborted"
)

// CursorStore reads and atomically advances the per-territory sequence
// cursor. Implemented by the Redis-backed CAS store
// (internal/store/rediscursor.go).
type CursorStore interface {
	Read(ctx context.Context, territory string) (sequence.Cursor, error)
	// AdvanceIfUnchanged performs a compare-and-set: it succeeds only if
	// the cursor in the store still matches expected, replacing it with
	// next. ok is false on a lost race, in which case the caller must
	// re-read and retry.
	AdvanceIfUnchanged(ctx context.Context, territory string, expected, next sequence.Cursor) (ok bool, err error)
}

// AssignmentWriter persists the committed assignment. Implemented by
// the lead store (C5).
type AssignmentWriter interface {
	CreateAssignment(ctx context.Context, a assignment.Assignment) error
}

// AuditRecorder appends an audit entry carrying its own content hash. Implemented by the
// lead store (C5)'s audit log table.
type AuditRecorder interface {
	Append(ctx context.Context, e *audit.Entry) error
}

// Clock is the minimal time source the coordinator needs.
type Clock interface {
	Now() time.Time
}

// Request describes one assignment attempt.
type Request struct {
	LeadID    string
	Territory string
	Excluded  map[string]bool // agency ids to skip (reject-triggered re-routing, spec.md §4.10)
	Method    assignment.Method
}

// Result mirrors the teacher's ExecuteResult shape.
type Result struct {
	Settlement SettlementStatus
	Assignment assignment.Assignment
	AuditTrail []string
	Error      error
}

// Coordinator runs the candidate-selection and commit pipeline.
type Coordinator struct {
	cursors CursorStore
	writer  AssignmentWriter
	audit   AuditRecorder
	ids     idgen.Generator
	clk     Clock

	maxCASRetries int
}

// defaultMaxCASRetries matches spec.md §6's DISTRIBUTION_RETRY_MAX default.
const defaultMaxCASRetries = 3

// New creates a Coordinator. maxCASRetries should come from
// config.Config.DistributionRetryMax (DISTRIBUTION_RETRY_MAX,
// spec.md §6); a value <= 0 falls back to defaultMaxCASRetries.
func New(cursors CursorStore, writer AssignmentWriter, auditRecorder AuditRecorder, ids idgen.Generator, clk Clock, maxCASRetries int) *Coordinator {
	if maxCASRetries <= 0 {
		maxCASRetries = defaultMaxCASRetries
	}
	return &Coordinator{cursors: cursors, writer: writer, audit: auditRecorder, ids: ids, clk: clk, maxCASRetries: maxCASRetries}
}

// Assign runs the two-phase pipeline against an already eligible,
// capacity-filtered candidate list (produced by internal/eligibility and
// internal/capacity). Candidates must already be ordered deterministically.
func (c *Coordinator) Assign(ctx context.Context, req Request, candidates []capacity.Candidate) *Result {
	result := &Result{Settlement: SettlementPending, AuditTrail: make([]string, 0, 2)}

	// PHASE 1: PREPARE — select a candidate against the cursor as last seen.
	// This pick is provisional; phase 2 re-validates it under CAS.
	cursor, err := c.cursors.Read(ctx, req.Territory)
	if err != nil {
		result.Error = broker_errors.Wrap(err, "read sequence cursor")
		result.Settlement = SettlementAborted
		return result
	}

	chosen, ok := rotation.Select(candidates, cursor, req.Excluded)
	if !ok {
		result.Error = broker_errors.ErrNoEligibleAfterExclusion
		result.Settlement = SettlementAborted
		c.auditAbort(ctx, req, result.Error, result)
		return result
	}

	pendingEntry := audit.NewEntry("coordinator", audit.ActionAssignmentPending, req.LeadID,
		fmt.Sprintf("agency_id=%s territory=%s", chosen.AgencyID, req.Territory), c.clk.Now())
	pendingEntry.ID = c.ids.NewID()
	if err := c.audit.Append(ctx, pendingEntry); err != nil {
		result.Error = broker_errors.Wrap(err, "append pending audit entry")
		result.Settlement = SettlementAborted
		return result
	}
	result.AuditTrail = append(result.AuditTrail, pendingEntry.ID)

	// PHASE 2: EXECUTE — re-validate the cursor under CAS, retrying the
	// selection against a freshly-read cursor on a lost race (another
	// distributor run advanced it first), then commit the assignment.
	for attempt := 0; attempt < c.maxCASRetries; attempt++ {
		next := sequence.Cursor{
			Territory:      req.Territory,
			LastAssignedID: chosen.AgencyID,
			LastAssignedAt: c.clk.Now(),
			Counter:        cursor.Counter + 1,
		}

		advanced, err := c.cursors.AdvanceIfUnchanged(ctx, req.Territory, cursor, next)
		if err != nil {
			result.Error = broker_errors.Wrap(err, "advance sequence cursor")
			result.Settlement = SettlementAborted
			c.auditAbort(ctx, req, result.Error, result)
			return result
		}
		if !advanced {
			cursor, err = c.cursors.Read(ctx, req.Territory)
			if err != nil {
				result.Error = broker_errors.Wrap(err, "re-read sequence cursor after lost race")
				result.Settlement = SettlementAborted
				c.auditAbort(ctx, req, result.Error, result)
				return result
			}
			chosen, ok = rotation.Select(candidates, cursor, req.Excluded)
			if !ok {
				result.Error = broker_errors.ErrNoEligibleAfterExclusion
				result.Settlement = SettlementAborted
				c.auditAbort(ctx, req, result.Error, result)
				return result
			}
			continue
		}

		a := assignment.Assignment{
			ID:         c.ids.NewID(),
			LeadID:     req.LeadID,
			AgencyID:   chosen.AgencyID,
			Status:     assignment.StatusPending,
			Method:     req.Method,
			AssignedAt: c.clk.Now(),
		}
		if err := c.writer.CreateAssignment(ctx, a); err != nil {
			result.Error = broker_errors.Wrap(err, "create assignment")
			result.Settlement = SettlementAborted
			c.auditAbort(ctx, req, result.Error, result)
			return result
		}

		createdEntry := audit.NewEntry("coordinator", audit.ActionAssignmentCreated, req.LeadID,
			fmt.Sprintf("agency_id=%s assignment_id=%s", chosen.AgencyID, a.ID), c.clk.Now())
		createdEntry.ID = c.ids.NewID()
		if err := c.audit.Append(ctx, createdEntry); err == nil {
			result.AuditTrail = append(result.AuditTrail, createdEntry.ID)
		}

		result.Assignment = a
		result.Settlement = SettlementSettled
		return result
	}

	result.Error = broker_errors.ErrCursorConflict
	result.Settlement = SettlementAborted
	c.auditAbort(ctx, req, result.Error, result)
	return result
}

func (c *Coordinator) auditAbort(ctx context.Context, req Request, cause error, result *Result) {
	entry := audit.NewEntry("coordinator", audit.ActionAssignmentAborted, req.LeadID,
		fmt.Sprintf("reason=%s", cause.Error()), c.clk.Now())
	entry.ID = c.ids.NewID()
	if err := c.audit.Append(ctx, entry); err == nil {
		result.AuditTrail = append(result.AuditTrail, entry.ID)
	}
}

// Package store implements the lead store (C5): the system of record
// for portals, leads, assignments, subscriptions, and the audit trail.
//
// Grounded on the teacher's internal/persist package
// (quantumlife-canon-core/internal/persist/dedup_store.go): a store type
// wrapping a single durable backend, constructed with that backend
// injected, exposing narrow methods that match the capability
// interfaces the rest of the pipeline depends on. The teacher's backend
// is an append-only file log; this store's backend is Postgres via
// github.com/jackc/pgx/v5/pgxpool (SPEC_FULL.md §8 Domain Stack),
// because C5 needs relational joins (agency ⋈ subscription ⋈ territory)
// and transactional conflict detection that a flat log can't give
// cheaply.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadbroker/broker/internal/eligibility"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/lead"
	"github.com/leadbroker/broker/pkg/domain/portal"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

const uniqueViolationCode = "23505"

// Store is the Postgres-backed system of record.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. Migrations are applied separately
// by cmd/leadbroker-server via goose (SPEC_FULL.md §8).
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetPortalByCode implements internal/webhookauth.PortalLookup.
func (s *Store) GetPortalByCode(ctx context.Context, code string) (*portal.Portal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, status, industry, auth_secret, mapping_override
		FROM portals WHERE code = $1`, code)

	var p portal.Portal
	var mapping map[string][]string
	if err := row.Scan(&p.ID, &p.Code, &p.Status, &p.Industry, &p.AuthSecret, &mapping); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, broker_errors.Wrap(err, "scan portal")
	}
	p.MappingOverride = mapping
	return &p, nil
}

// CreateLead inserts a new lead record in StatusNew.
func (s *Store) CreateLead(ctx context.Context, l lead.Lead) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leads (id, portal_id, name, email, phone, territory, industry, status, created_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.PortalID, l.Contact.Name, l.Contact.Email, l.Contact.Phone,
		l.Territory, l.Industry, l.Status, l.CreatedAt, l.Extra)
	if err != nil {
		return broker_errors.Wrap(err, "insert lead")
	}
	return nil
}

// GetLead implements internal/lifecycle.LeadMutator's read half.
func (s *Store) GetLead(ctx context.Context, leadID string) (*lead.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, portal_id, name, email, phone, territory, industry, status,
		       created_at, extra, assigned_agency_id
		FROM leads WHERE id = $1`, leadID)

	var l lead.Lead
	var assignedAgencyID *string
	if err := row.Scan(&l.ID, &l.PortalID, &l.Contact.Name, &l.Contact.Email, &l.Contact.Phone,
		&l.Territory, &l.Industry, &l.Status, &l.CreatedAt, &l.Extra, &assignedAgencyID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, broker_errors.Wrap(err, "scan lead")
	}
	if assignedAgencyID != nil {
		l.AssignedAgencyID = *assignedAgencyID
	}
	return &l, nil
}

// UpdateLeadStatus implements internal/lifecycle.LeadMutator's write half.
func (s *Store) UpdateLeadStatus(ctx context.Context, leadID string, status lead.Status) error {
	_, err := s.pool.Exec(ctx, `UPDATE leads SET status = $2 WHERE id = $1`, leadID, status)
	if err != nil {
		return broker_errors.Wrap(err, "update lead status")
	}
	return nil
}

// FindRecentByContact implements internal/dedup.RecentContactLookup.
// Matches spec.md §4.4's OR semantics: email OR phone, whichever is
// non-empty on the candidate.
func (s *Store) FindRecentByContact(ctx context.Context, email, phone string, since time.Time) (*lead.Lead, error) {
	if email == "" && phone == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, portal_id, name, email, phone, territory, industry, status,
		       created_at, extra, assigned_agency_id
		FROM leads
		WHERE created_at >= $3
		  AND ((email <> '' AND email = $1) OR (phone <> '' AND phone = $2))
		ORDER BY created_at DESC
		LIMIT 1`, email, phone, since)

	var l lead.Lead
	var assignedAgencyID *string
	if err := row.Scan(&l.ID, &l.PortalID, &l.Contact.Name, &l.Contact.Email, &l.Contact.Phone,
		&l.Territory, &l.Industry, &l.Status, &l.CreatedAt, &l.Extra, &assignedAgencyID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, broker_errors.Wrap(err, "scan recent lead by contact")
	}
	if assignedAgencyID != nil {
		l.AssignedAgencyID = *assignedAgencyID
	}
	return &l, nil
}

// ActiveSubscribedAgencies implements internal/eligibility.SubscribedAgencyLookup.
func (s *Store) ActiveSubscribedAgencies(ctx context.Context) ([]eligibility.Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.name, a.industry, a.active,
		       sub.agency_id, sub.status, sub.territory, sub.monthly_lead_limit,
		       sub.billing_anchor_day, sub.plan_base_units
		FROM agencies a
		JOIN subscriptions sub ON sub.agency_id = a.id
		WHERE a.active = true`)
	if err != nil {
		return nil, broker_errors.Wrap(err, "query active subscribed agencies")
	}
	defer rows.Close()

	var out []eligibility.Candidate
	for rows.Next() {
		var c eligibility.Candidate
		if err := rows.Scan(&c.Agency.ID, &c.Agency.Name, &c.Agency.Industry, &c.Agency.Active,
			&c.Subscription.AgencyID, &c.Subscription.Status, &c.Subscription.Territory,
			&c.Subscription.MonthlyLeadLimit, &c.Subscription.BillingAnchorDay, &c.Subscription.PlanBaseUnits); err != nil {
			return nil, broker_errors.Wrap(err, "scan active subscribed agency row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListUnassignedLeads implements internal/batch.BacklogReader: leads sitting
// in StatusNew or StatusPendingReassignment with no active assignment row.
func (s *Store) ListUnassignedLeads(ctx context.Context) ([]lead.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, portal_id, name, email, phone, territory, industry, status,
		       created_at, extra, assigned_agency_id
		FROM leads
		WHERE status IN ($1, $2)
		  AND NOT EXISTS (
		      SELECT 1 FROM assignments a
		      WHERE a.lead_id = leads.id AND a.status IN ('pending', 'accepted'))
		ORDER BY created_at ASC`,
		lead.StatusNew, lead.StatusPendingReassignment)
	if err != nil {
		return nil, broker_errors.Wrap(err, "query unassigned leads")
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		var l lead.Lead
		var assignedAgencyID *string
		if err := rows.Scan(&l.ID, &l.PortalID, &l.Contact.Name, &l.Contact.Email, &l.Contact.Phone,
			&l.Territory, &l.Industry, &l.Status, &l.CreatedAt, &l.Extra, &assignedAgencyID); err != nil {
			return nil, broker_errors.Wrap(err, "scan unassigned lead row")
		}
		if assignedAgencyID != nil {
			l.AssignedAgencyID = *assignedAgencyID
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountAssignmentsSince implements internal/capacity.AssignmentCountLookup.
func (s *Store) CountAssignmentsSince(ctx context.Context, agencyID string, windowStart time.Time) (int, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM assignments
		WHERE agency_id = $1 AND assigned_at >= $2
		  AND status IN ($3, $4)`,
		agencyID, windowStart, assignment.StatusPending, assignment.StatusAccepted)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, broker_errors.Wrap(err, "count assignments since window start")
	}
	return n, nil
}

// CreateAssignment implements internal/assign.AssignmentWriter. Relies on
// a partial unique index on (lead_id) WHERE status IN ('pending',
// 'accepted') to enforce spec.md §3 invariant 1 (at most one active
// assignment per lead) at the database layer; a unique-violation is
// translated to ErrAssignmentConflict. The insert and the lead's
// status/agency-pointer update run inside one transaction (spec.md §3
// invariant 5, §5 "either full commit ... or no commit") so a failure
// between the two statements never leaves an assignment row with the
// lead still pointing at no agency.
func (s *Store) CreateAssignment(ctx context.Context, a assignment.Assignment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return broker_errors.Wrap(err, "begin assignment transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assignments (id, lead_id, agency_id, status, method, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.LeadID, a.AgencyID, a.Status, a.Method, a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return broker_errors.ErrAssignmentConflict
		}
		return broker_errors.Wrap(err, "insert assignment")
	}

	_, err = tx.Exec(ctx, `UPDATE leads SET status = $2, assigned_agency_id = $3 WHERE id = $1`,
		a.LeadID, lead.StatusAssigned, a.AgencyID)
	if err != nil {
		return broker_errors.Wrap(err, "update lead after assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return broker_errors.Wrap(err, "commit assignment transaction")
	}
	return nil
}

// FindActiveAssignmentByLead implements internal/lifecycle's manual
// reassignment path: it needs the lead's current pending/accepted
// assignment, if any, so it can be superseded before a new one is
// created (the partial unique index above forbids two active rows for
// the same lead).
func (s *Store) FindActiveAssignmentByLead(ctx context.Context, leadID string) (*assignment.Assignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, lead_id, agency_id, status, method, assigned_at, accepted_at,
		       rejected_at, rejection_reason
		FROM assignments
		WHERE lead_id = $1 AND status IN ($2, $3)`,
		leadID, assignment.StatusPending, assignment.StatusAccepted)

	var a assignment.Assignment
	if err := row.Scan(&a.ID, &a.LeadID, &a.AgencyID, &a.Status, &a.Method, &a.AssignedAt,
		&a.AcceptedAt, &a.RejectedAt, &a.RejectionReason); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, broker_errors.Wrap(err, "scan active assignment for lead")
	}
	return &a, nil
}

// FindIdempotencyKey implements internal/httpapi.IdempotencyStore: the
// transport-level X-Idempotency-Key guard SPEC_FULL.md §9 adds, distinct
// from C4's contact-identity dedup window.
func (s *Store) FindIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT lead_id FROM idempotency_keys WHERE key = $1`, key)
	var leadID string
	if err := row.Scan(&leadID); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, broker_errors.Wrap(err, "scan idempotency key")
	}
	return leadID, true, nil
}

// SaveIdempotencyKey implements internal/httpapi.IdempotencyStore. A
// concurrent retry racing this insert loses the unique-key race; that is
// treated as already-recorded rather than an error.
func (s *Store) SaveIdempotencyKey(ctx context.Context, key, leadID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, lead_id) VALUES ($1, $2)`, key, leadID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return broker_errors.Wrap(err, "insert idempotency key")
	}
	return nil
}

// GetAssignment implements internal/lifecycle.AssignmentReader.
func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (*assignment.Assignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, lead_id, agency_id, status, method, assigned_at, accepted_at,
		       rejected_at, rejection_reason
		FROM assignments WHERE id = $1`, assignmentID)

	var a assignment.Assignment
	if err := row.Scan(&a.ID, &a.LeadID, &a.AgencyID, &a.Status, &a.Method, &a.AssignedAt,
		&a.AcceptedAt, &a.RejectedAt, &a.RejectionReason); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, broker_errors.Wrap(err, "scan assignment")
	}
	return &a, nil
}

// UpdateAssignmentStatus implements internal/lifecycle.AssignmentMutator.
func (s *Store) UpdateAssignmentStatus(ctx context.Context, assignmentID string, status assignment.Status, at time.Time, rejectionReason string) error {
	switch status {
	case assignment.StatusAccepted:
		_, err := s.pool.Exec(ctx, `UPDATE assignments SET status = $2, accepted_at = $3 WHERE id = $1`,
			assignmentID, status, at)
		if err != nil {
			return broker_errors.Wrap(err, "update assignment to accepted")
		}
		return nil
	case assignment.StatusRejected:
		_, err := s.pool.Exec(ctx, `
			UPDATE assignments SET status = $2, rejected_at = $3, rejection_reason = $4 WHERE id = $1`,
			assignmentID, status, at, rejectionReason)
		if err != nil {
			return broker_errors.Wrap(err, "update assignment to rejected")
		}
		return nil
	default:
		_, err := s.pool.Exec(ctx, `UPDATE assignments SET status = $2 WHERE id = $1`, assignmentID, status)
		if err != nil {
			return broker_errors.Wrap(err, "update assignment status")
		}
		return nil
	}
}

// Append implements internal/assign.AuditRecorder,
// internal/lifecycle.AuditRecorder, and internal/ingest.AuditRecorder.
func (s *Store) Append(ctx context.Context, e *audit.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_entries (id, actor, action, target, payload, ts, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Actor, e.Action, e.Target, e.Payload, e.Timestamp, e.Hash)
	if err != nil {
		return broker_errors.Wrap(err, "insert audit entry")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if broker_errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

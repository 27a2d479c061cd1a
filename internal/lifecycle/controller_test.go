package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/lead"
	"github.com/leadbroker/broker/pkg/domain/sequence"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

type fakeAssignments struct {
	byID map[string]*assignment.Assignment
}

func (f *fakeAssignments) GetAssignment(ctx context.Context, assignmentID string) (*assignment.Assignment, error) {
	return f.byID[assignmentID], nil
}

type fakeMutator struct {
	updates []assignment.Status
}

func (f *fakeMutator) UpdateAssignmentStatus(ctx context.Context, assignmentID string, status assignment.Status, at time.Time, rejectionReason string) error {
	f.updates = append(f.updates, status)
	return nil
}

type fakeLeads struct {
	byID    map[string]*lead.Lead
	updates []lead.Status
}

func (f *fakeLeads) UpdateLeadStatus(ctx context.Context, leadID string, status lead.Status) error {
	f.updates = append(f.updates, status)
	if l, ok := f.byID[leadID]; ok {
		l.Status = status
	}
	return nil
}

func (f *fakeLeads) GetLead(ctx context.Context, leadID string) (*lead.Lead, error) {
	return f.byID[leadID], nil
}

type fakeAudit struct {
	entries []*audit.Entry
}

func (f *fakeAudit) Append(ctx context.Context, e *audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeCandidateSource struct {
	candidates []capacity.Candidate
	err        error
}

func (f *fakeCandidateSource) Candidates(ctx context.Context, territory, industry string) ([]capacity.Candidate, error) {
	return f.candidates, f.err
}

type fakeIDs struct{ n int }

func (f *fakeIDs) NewID() string {
	f.n++
	return "id-" + string(rune('0'+f.n))
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// fakeCursors is a minimal assign.CursorStore that never conflicts, for
// exercising the lifecycle controller's re-route path without a real
// Redis-backed CAS store.
type fakeCursors struct {
	cursor sequence.Cursor
}

func (f *fakeCursors) Read(ctx context.Context, territory string) (sequence.Cursor, error) {
	return f.cursor, nil
}

func (f *fakeCursors) AdvanceIfUnchanged(ctx context.Context, territory string, expected, next sequence.Cursor) (bool, error) {
	if f.cursor != expected {
		return false, nil
	}
	f.cursor = next
	return true, nil
}

type fakeAssignmentWriter struct {
	created []assignment.Assignment
}

func (f *fakeAssignmentWriter) CreateAssignment(ctx context.Context, a assignment.Assignment) error {
	f.created = append(f.created, a)
	return nil
}

type fakeActiveAssignments struct {
	byLead map[string]*assignment.Assignment
}

func (f *fakeActiveAssignments) FindActiveAssignmentByLead(ctx context.Context, leadID string) (*assignment.Assignment, error) {
	if f == nil {
		return nil, nil
	}
	return f.byLead[leadID], nil
}

func newController(assignments map[string]*assignment.Assignment, leads map[string]*lead.Lead, candidates []capacity.Candidate) (*Controller, *fakeMutator, *fakeLeads, *fakeAudit) {
	c, mu, ld, au, _ := newControllerWithActive(assignments, leads, candidates, nil)
	return c, mu, ld, au
}

func newControllerWithActive(assignments map[string]*assignment.Assignment, leads map[string]*lead.Lead, candidates []capacity.Candidate, active map[string]*assignment.Assignment) (*Controller, *fakeMutator, *fakeLeads, *fakeAudit, *fakeActiveAssignments) {
	ar := &fakeAssignments{byID: assignments}
	mu := &fakeMutator{}
	ld := &fakeLeads{byID: leads}
	au := &fakeAudit{}
	cs := &fakeCandidateSource{candidates: candidates}
	aa := &fakeActiveAssignments{byLead: active}
	coordinator := assign.New(&fakeCursors{}, &fakeAssignmentWriter{}, &fakeAuditForCoordinator{}, &fakeIDs{}, fixedClock{time.Now()}, 5)
	c := New(ar, mu, ld, au, cs, coordinator, aa, &fakeIDs{}, fixedClock{time.Now()})
	return c, mu, ld, au, aa
}

type fakeAuditForCoordinator struct{}

func (fakeAuditForCoordinator) Append(ctx context.Context, e *audit.Entry) error { return nil }

func TestAccept_TransitionsAssignmentAndLead(t *testing.T) {
	a := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	l := &lead.Lead{ID: "lead-1"}
	c, mu, ld, au := newController(map[string]*assignment.Assignment{"asn-1": a}, map[string]*lead.Lead{"lead-1": l}, nil)

	err := c.Accept(context.Background(), "asn-1", "agency-1")

	require.NoError(t, err)
	assert.Equal(t, []assignment.Status{assignment.StatusAccepted}, mu.updates)
	assert.Equal(t, []lead.Status{lead.StatusAccepted}, ld.updates)
	require.Len(t, au.entries, 1)
	assert.Equal(t, audit.ActionAssignmentAccepted, au.entries[0].Action)
}

func TestAccept_WrongAgencyRejected(t *testing.T) {
	a := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	c, _, _, _ := newController(map[string]*assignment.Assignment{"asn-1": a}, map[string]*lead.Lead{"lead-1": {ID: "lead-1"}}, nil)

	err := c.Accept(context.Background(), "asn-1", "agency-2")
	assert.ErrorIs(t, err, broker_errors.ErrAgencyMismatch)
}

func TestAccept_NotPendingRejected(t *testing.T) {
	a := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusAccepted}
	c, _, _, _ := newController(map[string]*assignment.Assignment{"asn-1": a}, map[string]*lead.Lead{"lead-1": {ID: "lead-1"}}, nil)

	err := c.Accept(context.Background(), "asn-1", "agency-1")
	assert.ErrorIs(t, err, broker_errors.ErrAssignmentNotPending)
}

func TestAccept_UnknownAssignmentNotFound(t *testing.T) {
	c, _, _, _ := newController(map[string]*assignment.Assignment{}, map[string]*lead.Lead{}, nil)

	err := c.Accept(context.Background(), "missing", "agency-1")
	assert.ErrorIs(t, err, broker_errors.ErrLeadNotFound)
}

func TestReject_ReRoutesToNextEligibleAgency(t *testing.T) {
	a := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	l := &lead.Lead{ID: "lead-1", Territory: "94107", Industry: "roofing"}
	c, mu, ld, au := newController(
		map[string]*assignment.Assignment{"asn-1": a},
		map[string]*lead.Lead{"lead-1": l},
		[]capacity.Candidate{{AgencyID: "agency-2"}},
	)

	err := c.Reject(context.Background(), "asn-1", "agency-1", "too far")

	require.NoError(t, err)
	assert.Equal(t, []assignment.Status{assignment.StatusRejected}, mu.updates)
	assert.Contains(t, ld.updates, lead.StatusPendingReassignment)
	assert.Contains(t, ld.updates, lead.StatusAssigned)

	var sawReRoute bool
	for _, e := range au.entries {
		if e.Action == audit.ActionReRouted {
			sawReRoute = true
		}
	}
	assert.True(t, sawReRoute)
}

func TestReject_NoEligibleAfterExclusionMarksUnassigned(t *testing.T) {
	a := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	l := &lead.Lead{ID: "lead-1", Territory: "94107"}
	c, _, ld, au := newController(
		map[string]*assignment.Assignment{"asn-1": a},
		map[string]*lead.Lead{"lead-1": l},
		nil, // no candidates left to re-route to
	)

	err := c.Reject(context.Background(), "asn-1", "agency-1", "too far")

	require.NoError(t, err)
	assert.Contains(t, ld.updates, lead.StatusUnassigned)

	var sawUnassigned bool
	for _, e := range au.entries {
		if e.Action == audit.ActionLeadUnassigned {
			sawUnassigned = true
		}
	}
	assert.True(t, sawUnassigned)
}

func TestReassign_SupersedesActiveAssignmentAndAssignsTarget(t *testing.T) {
	l := &lead.Lead{ID: "lead-1", Territory: "94107", Industry: "roofing"}
	active := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	c, mu, ld, au, _ := newControllerWithActive(
		map[string]*assignment.Assignment{"asn-1": active},
		map[string]*lead.Lead{"lead-1": l},
		nil,
		map[string]*assignment.Assignment{"lead-1": active},
	)

	err := c.Reassign(context.Background(), "lead-1", "agency-2")

	require.NoError(t, err)
	assert.Equal(t, []assignment.Status{assignment.StatusReassigned}, mu.updates)
	assert.Contains(t, ld.updates, lead.StatusAssigned)

	var sawReassigned bool
	for _, e := range au.entries {
		if e.Action == audit.ActionReassigned {
			sawReassigned = true
		}
	}
	assert.True(t, sawReassigned)
}

func TestReassign_SameAgencyIsNoOp(t *testing.T) {
	l := &lead.Lead{ID: "lead-1", Territory: "94107"}
	active := &assignment.Assignment{ID: "asn-1", LeadID: "lead-1", AgencyID: "agency-1", Status: assignment.StatusPending}
	c, mu, ld, _, _ := newControllerWithActive(
		map[string]*assignment.Assignment{"asn-1": active},
		map[string]*lead.Lead{"lead-1": l},
		nil,
		map[string]*assignment.Assignment{"lead-1": active},
	)

	err := c.Reassign(context.Background(), "lead-1", "agency-1")

	require.NoError(t, err)
	assert.Empty(t, mu.updates)
	assert.Empty(t, ld.updates)
}

func TestReassign_UnknownLeadNotFound(t *testing.T) {
	c, _, _, _, _ := newControllerWithActive(nil, map[string]*lead.Lead{}, nil, nil)

	err := c.Reassign(context.Background(), "missing", "agency-1")
	assert.ErrorIs(t, err, broker_errors.ErrLeadNotFound)
}

package assign

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/pkg/domain/assignment"
	"github.com/leadbroker/broker/pkg/domain/audit"
	"github.com/leadbroker/broker/pkg/domain/sequence"
)

type fakeCursors struct {
	mu     sync.Mutex
	byTerr map[string]sequence.Cursor
	// casFailuresLeft forces AdvanceIfUnchanged to report a lost race this
	// many times before it actually succeeds, simulating a concurrent
	// distributor winning the CAS first.
	casFailuresLeft int
	readErr         error
	advanceErr      error
}

func (f *fakeCursors) Read(ctx context.Context, territory string) (sequence.Cursor, error) {
	if f.readErr != nil {
		return sequence.Cursor{}, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byTerr[territory], nil
}

func (f *fakeCursors) AdvanceIfUnchanged(ctx context.Context, territory string, expected, next sequence.Cursor) (bool, error) {
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casFailuresLeft > 0 {
		f.casFailuresLeft--
		// simulate another writer racing ahead
		f.byTerr[territory] = sequence.Cursor{Territory: territory, LastAssignedID: "rival", Counter: f.byTerr[territory].Counter + 1}
		return false, nil
	}
	current := f.byTerr[territory]
	if current != expected {
		return false, nil
	}
	f.byTerr[territory] = next
	return true, nil
}

type fakeWriter struct {
	created []assignment.Assignment
	err     error
}

func (f *fakeWriter) CreateAssignment(ctx context.Context, a assignment.Assignment) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, a)
	return nil
}

type fakeAuditRecorder struct {
	entries []*audit.Entry
}

func (f *fakeAuditRecorder) Append(ctx context.Context, e *audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeIDs struct{ n int }

func (f *fakeIDs) NewID() string {
	f.n++
	return "id-" + string(rune('0'+f.n))
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func candidates(ids ...string) []capacity.Candidate {
	out := make([]capacity.Candidate, len(ids))
	for i, id := range ids {
		out[i] = capacity.Candidate{AgencyID: id}
	}
	return out
}

func TestAssign_HappyPathSettles(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}}
	writer := &fakeWriter{}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{LeadID: "lead-1", Territory: "94107", Method: assignment.MethodAuto}, candidates("a", "b"))

	require.Equal(t, SettlementSettled, result.Settlement)
	require.NoError(t, result.Error)
	assert.Equal(t, "a", result.Assignment.AgencyID)
	require.Len(t, writer.created, 1)
	assert.Len(t, result.AuditTrail, 2)
}

func TestAssign_NoEligibleCandidatesAborts(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}}
	writer := &fakeWriter{}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{LeadID: "lead-1", Territory: "94107"}, nil)

	assert.Equal(t, SettlementAborted, result.Settlement)
	assert.Error(t, result.Error)
	assert.Empty(t, writer.created)
}

func TestAssign_LostRaceRetriesAgainstFreshCursor(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}, casFailuresLeft: 1}
	writer := &fakeWriter{}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{LeadID: "lead-1", Territory: "94107"}, candidates("a", "b"))

	require.Equal(t, SettlementSettled, result.Settlement)
	require.Len(t, writer.created, 1)
	// After the rival moved the cursor to "rival" (not in the candidate
	// list), rotation re-selects against the re-read cursor and starts
	// over at the first candidate.
	assert.Contains(t, []string{"a", "b"}, result.Assignment.AgencyID)
}

func TestAssign_ExhaustedRetriesAborts(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}, casFailuresLeft: 10}
	writer := &fakeWriter{}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{LeadID: "lead-1", Territory: "94107"}, candidates("a", "b"))

	assert.Equal(t, SettlementAborted, result.Settlement)
	assert.Error(t, result.Error)
	assert.Empty(t, writer.created)
}

func TestAssign_WriterErrorAbortsWithAuditEntry(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}}
	writer := &fakeWriter{err: assert.AnError}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{LeadID: "lead-1", Territory: "94107"}, candidates("a"))

	assert.Equal(t, SettlementAborted, result.Settlement)
	assert.Error(t, result.Error)
	require.NotEmpty(t, auditLog.entries)
	last := auditLog.entries[len(auditLog.entries)-1]
	assert.Equal(t, audit.ActionAssignmentAborted, last.Action)
}

func TestAssign_ExcludesRejectingAgency(t *testing.T) {
	cursors := &fakeCursors{byTerr: map[string]sequence.Cursor{}}
	writer := &fakeWriter{}
	auditLog := &fakeAuditRecorder{}
	c := New(cursors, writer, auditLog, &fakeIDs{}, fixedClock{time.Now()}, 5)

	result := c.Assign(context.Background(), Request{
		LeadID:    "lead-1",
		Territory: "94107",
		Excluded:  map[string]bool{"a": true},
	}, candidates("a", "b"))

	require.Equal(t, SettlementSettled, result.Settlement)
	assert.Equal(t, "b", result.Assignment.AgencyID)
}

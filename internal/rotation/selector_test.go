package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/pkg/domain/sequence"
)

func candidates(ids ...string) []capacity.Candidate {
	out := make([]capacity.Candidate, len(ids))
	for i, id := range ids {
		out[i] = capacity.Candidate{AgencyID: id}
	}
	return out
}

func TestSelect_FirstAssignmentStartsAtHead(t *testing.T) {
	chosen, ok := Select(candidates("a", "b", "c"), sequence.Cursor{}, nil)
	assert.True(t, ok)
	assert.Equal(t, "a", chosen.AgencyID)
}

func TestSelect_AdvancesPastLastAssigned(t *testing.T) {
	chosen, ok := Select(candidates("a", "b", "c"), sequence.Cursor{LastAssignedID: "a"}, nil)
	assert.True(t, ok)
	assert.Equal(t, "b", chosen.AgencyID)
}

func TestSelect_WrapsAround(t *testing.T) {
	chosen, ok := Select(candidates("a", "b", "c"), sequence.Cursor{LastAssignedID: "c"}, nil)
	assert.True(t, ok)
	assert.Equal(t, "a", chosen.AgencyID)
}

func TestSelect_SkipsExcluded(t *testing.T) {
	chosen, ok := Select(candidates("a", "b", "c"), sequence.Cursor{LastAssignedID: "a"}, map[string]bool{"b": true})
	assert.True(t, ok)
	assert.Equal(t, "c", chosen.AgencyID)
}

func TestSelect_AllExcluded(t *testing.T) {
	_, ok := Select(candidates("a", "b"), sequence.Cursor{}, map[string]bool{"a": true, "b": true})
	assert.False(t, ok)
}

func TestSelect_EmptyCandidates(t *testing.T) {
	_, ok := Select(nil, sequence.Cursor{}, nil)
	assert.False(t, ok)
}

func TestSelect_LastAssignedNotInSet(t *testing.T) {
	// The agency that last got a lead in this territory has since churned
	// out of the eligible set entirely; rotation should still start
	// deterministically from the head rather than erroring.
	chosen, ok := Select(candidates("b", "c"), sequence.Cursor{LastAssignedID: "a"}, nil)
	assert.True(t, ok)
	assert.Equal(t, "b", chosen.AgencyID)
}

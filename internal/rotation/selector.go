// Package rotation implements the round-robin selector (C8): choosing
// the next agency from an eligible, capacity-filtered candidate list,
// using a per-territory sequence cursor so consecutive leads for the
// same territory fan out across agencies instead of piling onto one.
//
// Grounded on the teacher's internal/routing.Router precedence-ordered
// selection (quantumlife-canon-core/internal/routing/router.go): a
// deterministic function over a precomputed candidate set and a piece
// of carried state (there, prior routing decisions; here, the
// per-territory sequence.Cursor persisted by the lead store). The
// cursor itself is advanced under compare-and-set against Redis
// (internal/store/rediscursor.go) so two concurrent distributor runs
// for the same territory never hand out the same rotation slot twice.
package rotation

import (
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/pkg/domain/sequence"
)

// Select returns the next candidate in rotation order given the last
// assigned agency id recorded on the cursor, per spec.md §4.8: agencies
// are ordered (by the eligibility resolver, ascending by id) and the
// selector advances one position past the last assignment, wrapping
// around. excluded agency ids (spec.md §4.10, reject-triggered
// re-routing) are skipped entirely. Returns ok=false if every candidate
// is excluded.
func Select(candidates []capacity.Candidate, cursor sequence.Cursor, excluded map[string]bool) (chosen capacity.Candidate, ok bool) {
	n := len(candidates)
	if n == 0 {
		return capacity.Candidate{}, false
	}

	start := 0
	if cursor.LastAssignedID != "" {
		for i, c := range candidates {
			if c.AgencyID == cursor.LastAssignedID {
				start = i + 1
				break
			}
		}
	}

	for offset := 0; offset < n; offset++ {
		idx := (start + offset) % n
		c := candidates[idx]
		if excluded != nil && excluded[c.AgencyID] {
			continue
		}
		return c, true
	}
	return capacity.Candidate{}, false
}

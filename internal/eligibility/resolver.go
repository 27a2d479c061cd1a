// Package eligibility implements the eligibility resolver (C6).
//
// Grounded on the teacher's internal/routing.Router
// (quantumlife-canon-core/internal/routing/router.go), which resolves a
// single routing decision by precedence over a set of deterministic
// rules (P1..P5, falling back to a default). Here the "rule" set is
// narrower — territory containment, then an industry/agnostic partition —
// but the same discipline applies: no randomness, no wall-clock, a
// stable tie-break (agency id ascending) so two calls with the same
// store snapshot always return the same ordering.
package eligibility

import (
	"context"
	"sort"

	"github.com/leadbroker/broker/pkg/domain/agency"
	"github.com/leadbroker/broker/pkg/domain/subscription"
)

// Candidate pairs an agency with the subscription that makes it eligible.
type Candidate struct {
	Agency       agency.Agency
	Subscription subscription.Subscription
}

// SubscribedAgencyLookup returns every active agency with at least one
// subscription in an eligible status, alongside those subscriptions.
// Implemented by the lead store (C5)'s joined read.
type SubscribedAgencyLookup interface {
	ActiveSubscribedAgencies(ctx context.Context) ([]Candidate, error)
}

// Resolver produces the ordered candidate set for a lead's
// (territory, industry).
type Resolver struct {
	lookup SubscribedAgencyLookup
}

// New creates a Resolver over the given lookup capability.
func New(lookup SubscribedAgencyLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve implements spec.md §4.6:
//  1. load active agencies with an eligible-status subscription,
//  2. keep those whose coverage contains the territory (or the wildcard),
//  3. prefer the industry-matched partition; fall back to industry-agnostic.
// Within a partition, ordering is by agency id ascending for determinism.
// Returns an empty slice if no agency qualifies.
func (r *Resolver) Resolve(ctx context.Context, territory, industry string) ([]Candidate, error) {
	all, err := r.lookup.ActiveSubscribedAgencies(ctx)
	if err != nil {
		return nil, err
	}

	var covering []Candidate
	for _, c := range all {
		if !c.Agency.Active || !c.Subscription.Status.Eligible() {
			continue
		}
		if c.Subscription.Territory.Covers(territory) {
			covering = append(covering, c)
		}
	}

	var matched, agnostic []Candidate
	for _, c := range covering {
		if industry != "" && c.Agency.Industry == industry {
			matched = append(matched, c)
		} else {
			agnostic = append(agnostic, c)
		}
	}

	result := matched
	if len(result) == 0 {
		result = agnostic
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Agency.ID < result[j].Agency.ID
	})
	return result, nil
}

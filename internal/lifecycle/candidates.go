package lifecycle

import (
	"context"

	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/eligibility"
)

// CandidateResolver chains the eligibility resolver (C6) and capacity
// filter (C7) into the single RotationCandidateSource the reject re-route
// path needs — the same chain internal/ingest and internal/batch run
// inline, reused here so a reject sees the identical candidate universe a
// fresh distribution would.
type CandidateResolver struct {
	resolver *eligibility.Resolver
	filter   *capacity.Filter
}

// NewCandidateResolver creates a CandidateResolver.
func NewCandidateResolver(resolver *eligibility.Resolver, filter *capacity.Filter) *CandidateResolver {
	return &CandidateResolver{resolver: resolver, filter: filter}
}

// Candidates implements RotationCandidateSource.
func (r *CandidateResolver) Candidates(ctx context.Context, territory, industry string) ([]capacity.Candidate, error) {
	resolved, err := r.resolver.Resolve(ctx, territory, industry)
	if err != nil {
		return nil, err
	}
	capCandidates := make([]capacity.Candidate, 0, len(resolved))
	for _, c := range resolved {
		capCandidates = append(capCandidates, capacity.Candidate{AgencyID: c.Agency.ID, Subscription: c.Subscription})
	}
	return r.filter.Apply(ctx, capCandidates)
}

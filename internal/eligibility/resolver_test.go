package eligibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbroker/broker/pkg/domain/agency"
	"github.com/leadbroker/broker/pkg/domain/subscription"
)

type fakeLookup struct {
	candidates []Candidate
	err        error
}

func (f *fakeLookup) ActiveSubscribedAgencies(ctx context.Context) ([]Candidate, error) {
	return f.candidates, f.err
}

func eligibleSub(territory ...string) subscription.Subscription {
	return subscription.Subscription{Status: subscription.StatusActive, Territory: territory}
}

func TestResolve_FiltersInactiveAgencies(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Active: false}, Subscription: eligibleSub("*")},
		{Agency: agency.Agency{ID: "b", Active: true}, Subscription: eligibleSub("*")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Agency.ID)
}

func TestResolve_FiltersIneligibleSubscriptionStatus(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Active: true}, Subscription: subscription.Subscription{Status: subscription.StatusCancelled, Territory: subscription.Coverage{"*"}}},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_FiltersByTerritoryCoverage(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Active: true}, Subscription: eligibleSub("90001")},
		{Agency: agency.Agency{ID: "b", Active: true}, Subscription: eligibleSub("94107")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Agency.ID)
}

func TestResolve_WildcardCoversAnyTerritory(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Active: true}, Subscription: eligibleSub("*")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "anything", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestResolve_PrefersIndustryMatchOverAgnostic(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Industry: "", Active: true}, Subscription: eligibleSub("*")},
		{Agency: agency.Agency{ID: "b", Industry: "roofing", Active: true}, Subscription: eligibleSub("*")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "roofing")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Agency.ID)
}

func TestResolve_FallsBackToAgnosticWhenNoIndustryMatch(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "a", Industry: "", Active: true}, Subscription: eligibleSub("*")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "roofing")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Agency.ID)
}

func TestResolve_OrdersByAgencyIDAscending(t *testing.T) {
	lookup := &fakeLookup{candidates: []Candidate{
		{Agency: agency.Agency{ID: "z", Active: true}, Subscription: eligibleSub("*")},
		{Agency: agency.Agency{ID: "a", Active: true}, Subscription: eligibleSub("*")},
		{Agency: agency.Agency{ID: "m", Active: true}, Subscription: eligibleSub("*")},
	}}
	r := New(lookup)

	got, err := r.Resolve(context.Background(), "94107", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{got[0].Agency.ID, got[1].Agency.ID, got[2].Agency.ID})
}

func TestResolve_PropagatesLookupError(t *testing.T) {
	lookup := &fakeLookup{err: assert.AnError}
	r := New(lookup)

	_, err := r.Resolve(context.Background(), "94107", "")
	assert.ErrorIs(t, err, assert.AnError)
}

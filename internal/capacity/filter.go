// Package capacity implements the capacity filter (C7): narrowing an
// eligible agency list down to agencies that still have quota room in
// the current billing window.
//
// Grounded on the teacher's internal/interruptions/quota.go
// (QuotaConfig / QuotaStore / QuotaEnforcer), which filters a candidate
// set by consulting an injected usage-count store and a per-entity
// ceiling. The shape carries over directly: this filter asks the lead
// store (C5) how many leads each candidate agency has already been
// assigned in its current billing window, and drops any agency at or
// over its subscription's quota (spec.md §4.7).
package capacity

import (
	"context"
	"time"

	"github.com/leadbroker/broker/pkg/clock"
	"github.com/leadbroker/broker/pkg/domain/subscription"
)

// AssignmentCountLookup reports how many active assignments an agency has
// received since windowStart. Implemented by the lead store (C5).
type AssignmentCountLookup interface {
	CountAssignmentsSince(ctx context.Context, agencyID string, windowStart time.Time) (int, error)
}

// Candidate is the subset of eligibility.Candidate the filter needs —
// declared independently so this package has no import-time dependency
// on internal/eligibility.
type Candidate struct {
	AgencyID     string
	Subscription subscription.Subscription
}

// Filter drops agencies that have exhausted their monthly quota.
type Filter struct {
	counts AssignmentCountLookup
	clk    clock.Clock
}

// New creates a Filter over the given assignment-count lookup capability.
func New(counts AssignmentCountLookup, clk clock.Clock) *Filter {
	return &Filter{counts: counts, clk: clk}
}

// Apply returns the subset of candidates with remaining quota in their
// current billing window (spec.md §4.7: windows are calendar-month by
// default, or anchored to BillingAnchorDay when set). Candidates are
// preserved in input order.
func (f *Filter) Apply(ctx context.Context, candidates []Candidate) ([]Candidate, error) {
	var kept []Candidate
	for _, c := range candidates {
		windowStart := billingWindowStart(f.clk.Now(), c.Subscription.BillingAnchorDay)
		used, err := f.counts.CountAssignmentsSince(ctx, c.AgencyID, windowStart)
		if err != nil {
			return nil, err
		}
		if used < c.Subscription.Quota() {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// billingWindowStart returns the start of the current billing window: the
// anchor day of the current (or previous, if the anchor hasn't occurred
// yet this month) month, or the 1st of the current month when no anchor
// is configured (spec.md §13 Open Question: calendar-month fallback).
func billingWindowStart(now time.Time, anchorDay int) time.Time {
	year, month, day := now.Date()
	if anchorDay <= 0 {
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	}
	if day >= anchorDay {
		return time.Date(year, month, anchorDay, 0, 0, 0, 0, now.Location())
	}
	month--
	if month < time.January {
		month = time.December
		year--
	}
	return time.Date(year, month, anchorDay, 0, 0, 0, 0, now.Location())
}

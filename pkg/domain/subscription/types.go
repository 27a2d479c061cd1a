// Package subscription defines an agency's purchased routing capacity:
// which territories it covers, which statuses make it eligible, and the
// monthly quota the capacity filter (C7) enforces against it.
package subscription

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Eligible returns true for statuses the eligibility resolver (C6)
// treats as "this subscription can receive leads".
func (s Status) Eligible() bool {
	return s == StatusActive || s == StatusTrial
}

// WildcardTerritory is the coverage marker meaning "any territory".
const WildcardTerritory = "*"

// Coverage is the set of territory keys (or the wildcard) a subscription
// covers.
type Coverage []string

// Covers reports whether the coverage set includes the given territory key
// exactly, or carries the wildcard marker. Empty coverage never matches.
func (c Coverage) Covers(territory string) bool {
	for _, t := range c {
		if t == WildcardTerritory || t == territory {
			return true
		}
	}
	return false
}

// Subscription is an agency's purchased capacity.
type Subscription struct {
	AgencyID         string
	Status           Status
	Territory        Coverage
	MonthlyLeadLimit int // 0 means "use plan default"
	BillingAnchorDay int // 0 means "no anchor; use calendar month"
	PlanBaseUnits    int // fallback quota before the final 100 default
}

// DefaultMonthlyQuota is the final fallback quota per spec.md §4.7 when
// neither MonthlyLeadLimit nor PlanBaseUnits is set.
const DefaultMonthlyQuota = 100

// Quota resolves the effective monthly lead quota for this subscription:
// MonthlyLeadLimit, falling back to PlanBaseUnits, falling back to 100.
func (s *Subscription) Quota() int {
	if s.MonthlyLeadLimit > 0 {
		return s.MonthlyLeadLimit
	}
	if s.PlanBaseUnits > 0 {
		return s.PlanBaseUnits
	}
	return DefaultMonthlyQuota
}

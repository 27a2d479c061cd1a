// Package validate implements the lead validator (C3). These are
// business rules specific to a canonical lead, not generic struct
// validation, so they stay bespoke Go functions (SPEC_FULL.md §7.5)
// rather than github.com/go-playground/validator/v10 struct tags — that
// library validates the HTTP envelope one layer up, in internal/httpapi.
package validate

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPhoneDigits = 7

// Candidate is the normalized, pre-validation view of a lead the
// validator checks (spec.md §4.3).
type Candidate struct {
	Name      string
	Email     string // already normalized (lowercased/trimmed) or empty
	Phone     string // already normalized (digits only) or empty
	Territory string // already derived or empty
}

// Violation names one failed rule.
type Violation string

const (
	ViolationNameRequired      Violation = "name_required"
	ViolationIdentityRequired  Violation = "identity_required"
	ViolationEmailFormat       Violation = "email_format"
	ViolationPhoneDigits       Violation = "phone_digits"
	ViolationTerritoryRequired Violation = "territory_required"
)

// Validate returns every violated rule; an empty result means the
// candidate is valid. All rules are evaluated — this is not short-circuit
// — so the caller can report every violation in one response (spec.md
// §4.3 "Failure produces ValidationFailed with the list of violated
// rules").
func Validate(c Candidate) []Violation {
	var violations []Violation

	if strings.TrimSpace(c.Name) == "" {
		violations = append(violations, ViolationNameRequired)
	}

	if c.Email == "" && c.Phone == "" {
		violations = append(violations, ViolationIdentityRequired)
	}

	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		violations = append(violations, ViolationEmailFormat)
	}

	if c.Phone != "" && countDigits(c.Phone) < minPhoneDigits {
		violations = append(violations, ViolationPhoneDigits)
	}

	if strings.TrimSpace(c.Territory) == "" {
		violations = append(violations, ViolationTerritoryRequired)
	}

	return violations
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

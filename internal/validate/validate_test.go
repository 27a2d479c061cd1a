package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllRulesPass(t *testing.T) {
	violations := Validate(Candidate{
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Territory: "94107",
	})
	assert.Empty(t, violations)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	violations := Validate(Candidate{})
	assert.ElementsMatch(t, []Violation{
		ViolationNameRequired,
		ViolationIdentityRequired,
		ViolationTerritoryRequired,
	}, violations)
}

func TestValidate_EmailFormat(t *testing.T) {
	violations := Validate(Candidate{
		Name:      "Jane",
		Email:     "not-an-email",
		Territory: "94107",
	})
	assert.Contains(t, violations, ViolationEmailFormat)
}

func TestValidate_PhoneTooShort(t *testing.T) {
	violations := Validate(Candidate{
		Name:      "Jane",
		Phone:     "123",
		Territory: "94107",
	})
	assert.Contains(t, violations, ViolationPhoneDigits)
}

func TestValidate_PhoneAloneSatisfiesIdentity(t *testing.T) {
	violations := Validate(Candidate{
		Name:      "Jane",
		Phone:     "4155551234",
		Territory: "94107",
	})
	assert.NotContains(t, violations, ViolationIdentityRequired)
}

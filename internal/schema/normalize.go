package schema

import "strings"

const phoneMaxLen = 20
const zipcodeMaxLen = 10
const stateLen = 2

// NormalizePhone strips everything but digits and truncates to 20 chars.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > phoneMaxLen {
		digits = digits[:phoneMaxLen]
	}
	return digits
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeState uppercases and takes the first two characters.
func NormalizeState(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) > stateLen {
		s = s[:stateLen]
	}
	return s
}

// NormalizeZipcode trims, drops any ZIP+4 suffix (everything from the
// first "-" or space onward, e.g. "10001-0042" -> "10001"), and caps the
// result at ten characters for postal codes with no such suffix. Matches
// the Glossary's "primary form is a 5-character postal code": the lead
// store's coverage sets are keyed on the bare code, not the +4 extension.
func NormalizeZipcode(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "- "); i >= 0 {
		s = s[:i]
	}
	if len(s) > zipcodeMaxLen {
		s = s[:zipcodeMaxLen]
	}
	return s
}

// Territory derives the routing territory key: the zipcode if present,
// else "city, state" (state optional), else empty if no territory can be
// derived (spec.md §4.3).
func Territory(zipcode, city, state string) string {
	if zipcode != "" {
		return zipcode
	}
	if city == "" {
		return ""
	}
	if state == "" {
		return city
	}
	return city + ", " + state
}

// Package schema implements the schema mapper (C2): translating
// portal-specific field names into the canonical lead shape.
//
// Grounded on the teacher's internal/routing.Router
// (quantumlife-canon-core/internal/routing/router.go), which precomputes
// lookup tables from configuration and then applies deterministic,
// side-effect-free rules over an event. The same shape applies here: a
// Mapper is built once per portal from the default synonym table merged
// with that portal's override (spec.md §9, "model as an immutable Mapper
// value constructed per portal"), and Map is a pure function of a
// payload.
package schema

import (
	"strings"

	"github.com/leadbroker/broker/pkg/domain/portal"
)

// CanonicalFields lists every field the mapper produces.
var CanonicalFields = []string{
	"name", "email", "phone", "city", "state", "zipcode", "country", "industry",
}

// defaultSynonyms is the built-in synonym table: canonical field -> ordered
// list of payload keys recognized as that field, scanned in order.
func defaultSynonyms() portal.FieldMapping {
	return portal.FieldMapping{
		"name":     {"name", "full_name", "contact_name", "fullname"},
		"email":    {"email", "email_address", "contact_email"},
		"phone":    {"phone", "phone_number", "contact_phone", "telephone", "mobile"},
		"city":     {"city", "town"},
		"state":    {"state", "province", "region"},
		"zipcode":  {"zipcode", "zip", "postal_code", "postcode"},
		"country":  {"country", "country_code"},
		"industry": {"industry", "vertical", "category"},
	}
}

// first_name/last_name are not canonical fields themselves; they are only
// consulted as a fallback when "name" cannot otherwise be produced.
const (
	firstNameKey = "first_name"
	lastNameKey  = "last_name"
)

// Mapper is an immutable, per-portal view of the synonym table.
type Mapper struct {
	synonyms portal.FieldMapping
}

// NewMapper builds a Mapper for a portal: the default table merged with
// the portal's override. An override wins on conflict; a canonical key
// absent from the override inherits the default's synonym list
// (spec.md §4.2, §8 "portal override with an empty synonym list for a
// canonical key must still fall through to defaults").
func NewMapper(override portal.FieldMapping) *Mapper {
	merged := make(portal.FieldMapping, len(CanonicalFields))
	defaults := defaultSynonyms()
	for _, field := range CanonicalFields {
		merged[field] = defaults[field]
	}
	for field, synonyms := range override {
		if len(synonyms) == 0 {
			continue // empty override list: fall through to default
		}
		merged[field] = synonyms
	}
	return &Mapper{synonyms: merged}
}

// Result is the output of mapping one payload.
type Result struct {
	Canonical map[string]string
	Extra     map[string]string
}

// Map scans payload for each canonical field's synonyms in order and takes
// the first present, non-empty value. Any payload key not consumed by a
// successful mapping is preserved verbatim in Extra (spec.md §4.2).
func (m *Mapper) Map(payload map[string]any) Result {
	canonical := make(map[string]string, len(CanonicalFields))
	consumed := make(map[string]bool, len(payload))

	for _, field := range CanonicalFields {
		for _, key := range m.synonyms[field] {
			if v, ok := stringValue(payload, key); ok {
				canonical[field] = v
				consumed[key] = true
				break
			}
		}
	}

	if canonical["name"] == "" {
		if first, ok := stringValue(payload, firstNameKey); ok {
			consumed[firstNameKey] = true
			name := first
			if last, ok := stringValue(payload, lastNameKey); ok {
				consumed[lastNameKey] = true
				name = first + " " + last
			}
			canonical["name"] = name
		}
	}

	extra := make(map[string]string)
	for key, raw := range payload {
		if consumed[key] {
			continue
		}
		if s, ok := toString(raw); ok {
			extra[key] = s
		}
	}

	return Result{Canonical: canonical, Extra: extra}
}

func stringValue(payload map[string]any, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := toString(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case nil:
		return "", false
	default:
		return "", false
	}
}

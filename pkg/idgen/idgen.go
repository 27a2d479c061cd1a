// Package idgen generates opaque string identifiers for every entity the
// pipeline creates (leads, assignments, audit entries). Ids are random
// UUIDv4s rather than content-addressed hashes: unlike the teacher's
// identity graph, leads are not deduplicated by their id — C4 already
// does identity-based dedup on email/phone, so the id itself carries no
// semantic meaning and gains nothing from being deterministic.
package idgen

import "github.com/google/uuid"

// Generator creates opaque string ids.
type Generator interface {
	NewID() string
}

// UUIDGenerator generates RFC 4122 v4 UUIDs rendered as strings.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// New returns the default id generator.
func New() Generator {
	return UUIDGenerator{}
}

var _ Generator = UUIDGenerator{}

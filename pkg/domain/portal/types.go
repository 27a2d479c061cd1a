// Package portal defines the external lead-source entity consumed
// read-only by the ingestion pipeline. Portals are created and updated by
// the admin collaborator (out of scope here, spec.md §1); this package
// only models the shape the pipeline reads.
package portal

// Status is the lifecycle state of a portal.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

// FieldMapping is a portal-specific override of the default synonym table
// consulted by the schema mapper (C2). A canonical field absent from the
// override, or present with an empty list, inherits the default's synonym
// list; a canonical field present with a non-empty list replaces the
// default's list entirely for that field.
type FieldMapping map[string][]string

// Portal is an external lead source.
type Portal struct {
	ID             string
	Code           string
	Status         Status
	Industry       string
	AuthSecret     string
	MappingOverride FieldMapping
}

// IsActive reports whether the portal may submit leads.
func (p *Portal) IsActive() bool {
	return p.Status == StatusActive
}

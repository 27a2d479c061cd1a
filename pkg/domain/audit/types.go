// Package audit defines the append-only audit trail every webhook
// reception and state transition writes to (spec.md §3 "Audit Entry").
//
// The record shape is adapted from the teacher repository's
// storelog.LogRecord (quantumlife-canon-core/pkg/domain/storelog/log.go):
// a canonical, order-preserving payload string plus its SHA-256 hash,
// so a corrupted or tampered row can be detected by recomputing the
// hash. The teacher hashes a log line destined for a local file; here
// the same canonical-string-plus-hash shape is a column pair on an
// append-only Postgres table instead, since C5 already owns durability.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Action identifies the kind of event recorded.
type Action string

const (
	ActionWebhookReceived    Action = "webhook_received"
	ActionWebhookRejected    Action = "webhook_rejected"
	ActionValidationFailed   Action = "validation_failed"
	ActionDuplicateSuppressed Action = "duplicate_suppressed"
	ActionLeadCreated        Action = "lead_created"
	ActionAssignmentCreated  Action = "assignment_created"
	ActionAssignmentPending  Action = "assignment_pending"
	ActionAssignmentAborted  Action = "assignment_aborted"
	ActionNoEligibleAgency   Action = "no_eligible_agency"
	ActionLeadUnassigned     Action = "lead_unassigned"
	ActionAssignmentAccepted Action = "assignment_accepted"
	ActionAssignmentRejected Action = "assignment_rejected"
	ActionReassigned         Action = "reassigned"
	ActionReRouted           Action = "re_routed"
)

// Entry is a single append-only audit record.
type Entry struct {
	ID        string
	Actor     string // writing component: "pipeline", "coordinator", or "lifecycle"
	Action    Action
	Target    string // lead id, assignment id, or portal code
	Payload   string // canonical, human-diffable summary of the event
	Timestamp time.Time
	Hash      string
}

// ComputeHash returns the SHA-256 hash of the entry's canonical line,
// matching the teacher's TYPE|VERSION|TS|...|PAYLOAD line shape.
func (e *Entry) ComputeHash() string {
	h := sha256.Sum256([]byte(e.canonicalLine()))
	return hex.EncodeToString(h[:])
}

func (e *Entry) canonicalLine() string {
	var b strings.Builder
	b.WriteString(string(e.Action))
	b.WriteString("|")
	b.WriteString(e.Actor)
	b.WriteString("|")
	b.WriteString(e.Target)
	b.WriteString("|")
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteString("|")
	b.WriteString(e.Payload)
	return b.String()
}

// NewEntry creates an Entry with its hash already computed.
func NewEntry(actor string, action Action, target, payload string, ts time.Time) *Entry {
	e := &Entry{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Payload:   payload,
		Timestamp: ts,
	}
	e.Hash = e.ComputeHash()
	return e
}

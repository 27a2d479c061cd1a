// Package errors defines the sentinel error taxonomy shared by every
// pipeline component, grouped by the kind of failure they represent
// (auth, input, routing, conflict, infrastructure, lifecycle). The HTTP
// layer is the only place that knows how to translate a member of this
// taxonomy into a status code; every other layer just returns or wraps
// one of these values.
package errors

import (
	stderrors "errors"

	"github.com/go-faster/errors"
)

// Wrap and Wrapf re-export go-faster/errors so callers in this module
// never need to import both it and the standard errors package.
var (
	Wrap  = errors.Wrap
	Wrapf = errors.Wrapf
	New   = stderrors.New
	Is    = stderrors.Is
	As    = stderrors.As
)

// Auth errors — C1 Portal Authenticator.
var (
	ErrPortalUnknown    = stderrors.New("portal unknown")
	ErrPortalInactive   = stderrors.New("portal inactive")
	ErrPortalAuthFailed = stderrors.New("portal auth failed")
)

// Input errors — C3 Validator.
var (
	ErrValidationFailed = stderrors.New("validation failed")
)

// Idempotent-suppression — C4 Deduplicator.
var (
	ErrDuplicateSuppressed = stderrors.New("duplicate suppressed")
)

// Routing errors — C6/C8, surfaced as a soft success with status unassigned.
var (
	ErrNoEligibleAgency         = stderrors.New("no eligible agency")
	ErrNoEligibleAfterExclusion = stderrors.New("no eligible agency after exclusion")
)

// Conflict errors — C5 Lead Store, recovered locally.
var (
	ErrAssignmentConflict = stderrors.New("assignment conflict")
	ErrCursorConflict     = stderrors.New("sequence cursor conflict")
)

// Infrastructure errors — store and notification sink failures.
var (
	ErrStoreUnavailable        = stderrors.New("store unavailable")
	ErrNotificationUnavailable = stderrors.New("notification sink unavailable")
)

// Lifecycle errors — C10 Lifecycle Controller.
var (
	ErrAssignmentNotPending = stderrors.New("assignment not pending for this agency")
	ErrAgencyMismatch       = stderrors.New("agency mismatch")
	ErrLeadNotFound         = stderrors.New("lead not found")
)

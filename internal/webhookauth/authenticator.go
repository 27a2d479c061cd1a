// Package webhookauth implements the portal authenticator (C1).
//
// Grounded on the teacher's internal/authority.Validator interface shape
// (quantumlife-canon-core/internal/authority/interface.go): a stateless
// validator constructed over a read-only grant/record store, returning a
// typed error rather than a bool. Here the "grant" is simply a portal
// record and the check is a secret comparison rather than scope/ceiling
// evaluation, but the shape — inject a lookup capability, validate,
// return a typed sentinel error — carries over directly.
package webhookauth

import (
	"context"
	"crypto/subtle"

	broker_errors "github.com/leadbroker/broker/pkg/errors"
	"github.com/leadbroker/broker/pkg/domain/portal"
)

// PortalLookup resolves a portal by its human code. Implemented by the
// lead store (C5).
type PortalLookup interface {
	GetPortalByCode(ctx context.Context, code string) (*portal.Portal, error)
}

// Authenticator validates inbound webhook credentials.
type Authenticator struct {
	lookup PortalLookup
}

// New creates an Authenticator over the given portal lookup capability.
func New(lookup PortalLookup) *Authenticator {
	return &Authenticator{lookup: lookup}
}

// Authenticate looks up the portal by code and validates the presented
// secret, per spec.md §4.1. It returns the portal record on success or one
// of ErrPortalUnknown / ErrPortalInactive / ErrPortalAuthFailed.
func (a *Authenticator) Authenticate(ctx context.Context, code, presentedSecret string) (*portal.Portal, error) {
	p, err := a.lookup.GetPortalByCode(ctx, code)
	if err != nil {
		return nil, broker_errors.Wrap(err, "lookup portal")
	}
	if p == nil {
		return nil, broker_errors.ErrPortalUnknown
	}
	if !p.IsActive() {
		return nil, broker_errors.ErrPortalInactive
	}
	if subtle.ConstantTimeCompare([]byte(p.AuthSecret), []byte(presentedSecret)) != 1 {
		return nil, broker_errors.ErrPortalAuthFailed
	}
	return p, nil
}

package notify

import (
	"context"
	"fmt"

	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// AgencyDeviceLookup resolves the mobile push tokens registered to an
// agency. Agency device registration is an admin-surface concern out of
// scope for this pipeline (spec.md §1 Non-goals); this is the narrow read
// the notifier needs from it.
type AgencyDeviceLookup interface {
	DeviceTokensForAgency(ctx context.Context, agencyID string) ([]string, error)
}

// PushSender delivers a single push payload to a device token. Swappable
// per environment (APNs/FCM in production, a no-op recorder in tests).
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// MobilePushNotifier implements AssignmentNotifier over a device lookup
// and a push transport.
type MobilePushNotifier struct {
	devices AgencyDeviceLookup
	sender  PushSender
}

// NewMobilePushNotifier creates a MobilePushNotifier.
func NewMobilePushNotifier(devices AgencyDeviceLookup, sender PushSender) *MobilePushNotifier {
	return &MobilePushNotifier{devices: devices, sender: sender}
}

// NotifyAssigned pushes a new-lead prompt to every device registered to
// the agency. A delivery failure on one device does not fail the others;
// the first error, if any, is returned after all devices are attempted.
func (n *MobilePushNotifier) NotifyAssigned(ctx context.Context, agencyID, leadID string) error {
	tokens, err := n.devices.DeviceTokensForAgency(ctx, agencyID)
	if err != nil {
		return broker_errors.Wrap(err, "lookup agency device tokens")
	}

	var firstErr error
	for _, token := range tokens {
		if err := n.sender.Send(ctx, token, "New lead assigned", fmt.Sprintf("Lead %s is waiting for your response.", leadID)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

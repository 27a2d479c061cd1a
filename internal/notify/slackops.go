package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// SlackOpsNotifier implements OpsNotifier by posting to a fixed
// operations channel via github.com/slack-go/slack (SPEC_FULL.md §8):
// distinct from the mobile AssignmentNotifier the agency side sees, this
// is the "someone needs to look at this" escalation path.
type SlackOpsNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackOpsNotifier creates a SlackOpsNotifier posting to channel.
func NewSlackOpsNotifier(client *slack.Client, channel string) *SlackOpsNotifier {
	return &SlackOpsNotifier{client: client, channel: channel}
}

// NotifyNoEligibleAgency implements OpsNotifier for spec.md §4.6's
// terminal NoEligibleAgency case.
func (n *SlackOpsNotifier) NotifyNoEligibleAgency(ctx context.Context, leadID, territory, industry string) error {
	text := fmt.Sprintf(":warning: Lead `%s` has no eligible agency (territory=%s industry=%s)", leadID, territory, industry)
	return n.post(ctx, text)
}

// NotifyUnassignedAfterReject implements OpsNotifier for spec.md §4.10's
// reject-with-no-re-route-candidate case.
func (n *SlackOpsNotifier) NotifyUnassignedAfterReject(ctx context.Context, leadID, territory string) error {
	text := fmt.Sprintf(":warning: Lead `%s` fell back to unassigned after a reject with no eligible re-route (territory=%s)", leadID, territory)
	return n.post(ctx, text)
}

func (n *SlackOpsNotifier) post(ctx context.Context, text string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return broker_errors.Wrap(err, "post slack ops message")
	}
	return nil
}

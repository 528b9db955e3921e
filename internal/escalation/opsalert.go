package escalation

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// SlackOpsNotifier posts critical-failure summaries to a Slack ops channel
// via an incoming webhook. It is best-effort: delivery failures are logged
// and never propagate into the failover path.
type SlackOpsNotifier struct {
	webhookURL string
}

// NewSlackOpsNotifier creates a Slack ops notifier, or nil if no webhook URL
// is configured.
func NewSlackOpsNotifier(webhookURL string) *SlackOpsNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackOpsNotifier{webhookURL: webhookURL}
}

// NotifyCriticalFailure posts the failure summary to the ops channel
func (n *SlackOpsNotifier) NotifyCriticalFailure(ctx context.Context, incident *database.Incident, level int, summary string) {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":rotating_light: *Escalation critical failure*\nIncident `%s` (%s, priority %s) reached level %d with every notification tier failing.\n%s",
			incident.UUID, incident.IncidentType, incident.Priority, level, summary),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Printf("SlackOpsNotifier: failed to post critical failure for incident %s: %v", incident.UUID, err)
	}
}

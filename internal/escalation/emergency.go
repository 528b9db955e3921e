package escalation

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
	"github.com/watchtower-ops/watchtower/internal/notify"
)

// EmergencyProtocols is the fixed set of protocol actions fired on critical
// failure. Each is independent and unordered; one failing does not block
// the others.
var EmergencyProtocols = []string{
	"notify-emergency-services",
	"activate-backup-comms",
	"deploy-emergency-staff",
}

// OpsNotifier surfaces terminal failures to human operators out of band
// (e.g. a Slack ops channel). Implementations are best-effort.
type OpsNotifier interface {
	NotifyCriticalFailure(ctx context.Context, incident *database.Incident, level int, summary string)
}

// FailoverController is invoked only when the cascade exhausts all channels.
// It contacts the event's emergency-contact list and fires the emergency
// protocols, each step independent and best-effort; there is no further
// fallback chaining inside this controller.
type FailoverController struct {
	db        *gorm.DB
	contacts  *notify.ContactCaller
	protocols *notify.ProtocolActivator
	ops       OpsNotifier
}

// NewFailoverController creates the emergency failover controller.
// ops may be nil when no operator channel is configured.
func NewFailoverController(db *gorm.DB, contacts *notify.ContactCaller, protocols *notify.ProtocolActivator, ops OpsNotifier) *FailoverController {
	return &FailoverController{db: db, contacts: contacts, protocols: protocols, ops: ops}
}

// Activate runs the emergency failover for a critically failed cascade.
// It returns the created emergency log row. Only the log insert can fail;
// contact and protocol outcomes are recorded in the log notes.
func (f *FailoverController) Activate(ctx context.Context, incident *database.Incident, result *NotificationResult) (*database.EmergencyLog, error) {
	log.Printf("EMERGENCY: all notification tiers failed for incident %s (level %d), activating failover",
		incident.UUID, result.EscalationLevel)

	entry := &database.EmergencyLog{
		IncidentID:      incident.ID,
		EventID:         incident.EventID,
		EscalationLevel: result.EscalationLevel,
		EmergencyType:   database.EmergencyTypeNotificationFailure,
		Status:          database.EmergencyStatusActive,
		Notes: fmt.Sprintf("%d notification attempts failed across %d tiers",
			len(result.Attempts), result.TiersAttempted),
	}
	if err := f.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to write emergency log: %w", err)
	}

	contactsReached := f.reachContacts(ctx, incident, result.EscalationLevel)
	protocolsFired := f.fireProtocols(ctx, incident, result.EscalationLevel)

	// The log row is append-only; outcomes are surfaced to operators, not
	// written back.
	summary := fmt.Sprintf("emergency contacts reached: %d, protocols activated: %d/%d",
		contactsReached, protocolsFired, len(EmergencyProtocols))
	log.Printf("Emergency failover for incident %s: %s", incident.UUID, summary)

	if contactsReached == 0 && protocolsFired == 0 {
		// Terminal failure path: logged and surfaced, never retried here.
		log.Printf("EMERGENCY: failover exhausted for incident %s, no contact or protocol succeeded", incident.UUID)
	}

	if f.ops != nil {
		f.ops.NotifyCriticalFailure(ctx, incident, result.EscalationLevel, summary)
	}

	return entry, nil
}

// reachContacts tries each emergency contact independently, phone then email
// then sms, stopping at the first method that succeeds for that contact.
func (f *FailoverController) reachContacts(ctx context.Context, incident *database.Incident, level int) int {
	contacts, err := database.EmergencyContactsForEvent(f.db.WithContext(ctx), incident.EventID)
	if err != nil {
		log.Printf("SYSTEM ERROR: failed to load emergency contacts for event %s: %v", incident.EventID, err)
		return 0
	}
	if len(contacts) == 0 {
		log.Printf("Emergency failover: no emergency contacts configured for event %s", incident.EventID)
		return 0
	}

	message := fmt.Sprintf("CRITICAL: all notification channels failed for %s incident %s (priority %s, level %d). Immediate attention required.",
		incident.IncidentType, incident.UUID, incident.Priority, level)

	reached := 0
	for i := range contacts {
		attempts := f.contacts.Reach(ctx, &contacts[i], incident.UUID, message)
		for _, a := range attempts {
			if a.Success {
				reached++
				break
			}
		}
		for _, a := range attempts {
			if !a.Success {
				log.Printf("Emergency failover: %s to %s failed: %s", a.Method, a.Recipient, a.Error)
			}
		}
	}
	return reached
}

// fireProtocols activates every emergency protocol, logging each outcome
// individually.
func (f *FailoverController) fireProtocols(ctx context.Context, incident *database.Incident, level int) int {
	reason := fmt.Sprintf("notification failure on incident %s at level %d", incident.UUID, level)

	fired := 0
	for _, name := range EmergencyProtocols {
		if err := f.protocols.Activate(ctx, name, incident.EventID, level, reason); err != nil {
			log.Printf("Emergency failover: protocol %s failed: %v", name, err)
			continue
		}
		log.Printf("Emergency failover: protocol %s activated for event %s", name, incident.EventID)
		fired++
	}
	return fired
}

package notify

import (
	"context"
	"fmt"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// ContactCaller reaches emergency contacts through the contact gateway.
// It is used by the failover controller only, never by the regular cascade.
type ContactCaller struct {
	gateway *GatewayClient
	url     string
}

// NewContactCaller creates an emergency contact caller
func NewContactCaller(gateway *GatewayClient, url string) *ContactCaller {
	return &ContactCaller{gateway: gateway, url: url}
}

type contactRequest struct {
	ContactID  uint   `json:"contact_id"`
	Method     string `json:"method"`
	IncidentID string `json:"incident_id"`
	Message    string `json:"message"`
}

// methodsFor returns the contact's reachable methods in phone, email, sms order
func methodsFor(contact *database.EmergencyContact) []database.ContactMethod {
	var methods []database.ContactMethod
	if contact.Phone != "" {
		methods = append(methods, database.ContactMethodPhone)
	}
	if contact.Email != "" {
		methods = append(methods, database.ContactMethodEmail)
	}
	if contact.SMSNumber != "" {
		methods = append(methods, database.ContactMethodSMS)
	}
	return methods
}

// Reach tries the contact's methods in phone, email, sms order and stops at
// the first one that succeeds. Every try is returned as an attempt record.
func (c *ContactCaller) Reach(ctx context.Context, contact *database.EmergencyContact, incidentUUID, message string) []Attempt {
	methods := methodsFor(contact)
	if len(methods) == 0 {
		a := attempt("emergency_contact", contact.Name, fmt.Errorf("contact has no reachable method"))
		return []Attempt{a}
	}

	var attempts []Attempt
	for _, method := range methods {
		err := c.gateway.Post(ctx, c.url, contactRequest{
			ContactID:  contact.ID,
			Method:     string(method),
			IncidentID: incidentUUID,
			Message:    message,
		})
		attempts = append(attempts, attempt("emergency_contact_"+string(method), contact.Name, err))
		if err == nil {
			break
		}
	}
	return attempts
}

// ProtocolActivator fires emergency protocol actions through the protocol
// gateway. Each activation is independent and best-effort.
type ProtocolActivator struct {
	gateway *GatewayClient
	url     string
}

// NewProtocolActivator creates a protocol activator
func NewProtocolActivator(gateway *GatewayClient, url string) *ProtocolActivator {
	return &ProtocolActivator{gateway: gateway, url: url}
}

type protocolRequest struct {
	ProtocolName    string `json:"protocol_name"`
	EventID         string `json:"event_id"`
	EscalationLevel int    `json:"escalation_level"`
	Reason          string `json:"reason"`
}

// Activate fires a single named protocol
func (a *ProtocolActivator) Activate(ctx context.Context, name, eventID string, level int, reason string) error {
	return a.gateway.Post(ctx, a.url, protocolRequest{
		ProtocolName:    name,
		EventID:         eventID,
		EscalationLevel: level,
		Reason:          reason,
	})
}

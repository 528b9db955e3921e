// Package testhelpers provides additional data builders for testing
package testhelpers

import (
	"fmt"
	"time"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// ========================================
// Incident Builder
// ========================================

// IncidentBuilder builds Incident instances for testing
type IncidentBuilder struct {
	incident database.Incident
}

// NewIncidentBuilder creates a new incident builder with defaults
func NewIncidentBuilder() *IncidentBuilder {
	return &IncidentBuilder{
		incident: database.Incident{
			UUID:         "inc-test-1",
			EventID:      "event-1",
			IncidentType: "medical",
			Priority:     database.PriorityMedium,
			Status:       database.IncidentStatusOpen,
		},
	}
}

// WithUUID sets the incident UUID
func (b *IncidentBuilder) WithUUID(uuid string) *IncidentBuilder {
	b.incident.UUID = uuid
	return b
}

// WithEventID sets the owning event
func (b *IncidentBuilder) WithEventID(eventID string) *IncidentBuilder {
	b.incident.EventID = eventID
	return b
}

// WithType sets the incident type
func (b *IncidentBuilder) WithType(incidentType string) *IncidentBuilder {
	b.incident.IncidentType = incidentType
	return b
}

// WithPriority sets the priority
func (b *IncidentBuilder) WithPriority(p database.Priority) *IncidentBuilder {
	b.incident.Priority = p
	return b
}

// WithStatus sets the lifecycle status
func (b *IncidentBuilder) WithStatus(s database.IncidentStatus) *IncidentBuilder {
	b.incident.Status = s
	return b
}

// AtLevel sets the current escalation level
func (b *IncidentBuilder) AtLevel(level int) *IncidentBuilder {
	b.incident.EscalationLevel = level
	return b
}

// DueAt sets the escalation deadline
func (b *IncidentBuilder) DueAt(at time.Time) *IncidentBuilder {
	b.incident.EscalateAt = &at
	return b
}

// OverdueSince sets a deadline in the past relative to now
func (b *IncidentBuilder) OverdueSince(now time.Time, ago time.Duration) *IncidentBuilder {
	at := now.Add(-ago)
	b.incident.EscalateAt = &at
	return b
}

// AlreadyEscalated marks the current level transition as attempted
func (b *IncidentBuilder) AlreadyEscalated() *IncidentBuilder {
	b.incident.Escalated = true
	return b
}

// Build returns the constructed incident
func (b *IncidentBuilder) Build() database.Incident {
	return b.incident
}

// ========================================
// Supervisor Builder
// ========================================

// SupervisorBuilder builds Supervisor instances for testing
type SupervisorBuilder struct {
	supervisor database.Supervisor
}

// NewSupervisorBuilder creates a new supervisor builder with defaults
func NewSupervisorBuilder() *SupervisorBuilder {
	return &SupervisorBuilder{
		supervisor: database.Supervisor{
			EventID:        "event-1",
			Name:           "Test Supervisor",
			Role:           "supervisor",
			Callsign:       "SUP-1",
			Email:          "supervisor@example.com",
			Phone:          "+15550100",
			ContactMethods: database.StringList{"email", "sms"},
			Available:      true,
		},
	}
}

// WithEventID sets the owning event
func (b *SupervisorBuilder) WithEventID(eventID string) *SupervisorBuilder {
	b.supervisor.EventID = eventID
	return b
}

// WithName sets the supervisor name
func (b *SupervisorBuilder) WithName(name string) *SupervisorBuilder {
	b.supervisor.Name = name
	return b
}

// WithRole sets the role
func (b *SupervisorBuilder) WithRole(role string) *SupervisorBuilder {
	b.supervisor.Role = role
	return b
}

// WithContactMethods sets the reachable contact methods
func (b *SupervisorBuilder) WithContactMethods(methods ...string) *SupervisorBuilder {
	b.supervisor.ContactMethods = database.StringList(methods)
	return b
}

// Unavailable marks the supervisor off-duty
func (b *SupervisorBuilder) Unavailable() *SupervisorBuilder {
	b.supervisor.Available = false
	return b
}

// Build returns the constructed supervisor
func (b *SupervisorBuilder) Build() database.Supervisor {
	return b.supervisor
}

// ========================================
// SLA Rule Builder
// ========================================

// SLAConfigBuilder builds SLAConfig instances for testing
type SLAConfigBuilder struct {
	rule database.SLAConfig
}

// NewSLAConfigBuilder creates a new SLA rule builder with defaults
func NewSLAConfigBuilder() *SLAConfigBuilder {
	return &SLAConfigBuilder{
		rule: database.SLAConfig{
			IncidentType:             "medical",
			PriorityLevel:            database.PriorityMedium,
			EscalationTimeoutMinutes: 15,
			EscalationLevels:         3,
			SupervisorRoles:          database.StringList{"supervisor", "manager"},
			AutoEscalate:             true,
		},
	}
}

// For sets the (incident type, priority) key
func (b *SLAConfigBuilder) For(incidentType string, priority database.Priority) *SLAConfigBuilder {
	b.rule.IncidentType = incidentType
	b.rule.PriorityLevel = priority
	return b
}

// WithTimeout sets the escalation timeout in minutes
func (b *SLAConfigBuilder) WithTimeout(minutes int) *SLAConfigBuilder {
	b.rule.EscalationTimeoutMinutes = minutes
	return b
}

// WithMaxLevels sets the escalation ceiling
func (b *SLAConfigBuilder) WithMaxLevels(levels int) *SLAConfigBuilder {
	b.rule.EscalationLevels = levels
	return b
}

// WithRoles sets the supervisor roles
func (b *SLAConfigBuilder) WithRoles(roles ...string) *SLAConfigBuilder {
	b.rule.SupervisorRoles = database.StringList(roles)
	return b
}

// ManualOnly disables auto-escalation for the rule
func (b *SLAConfigBuilder) ManualOnly() *SLAConfigBuilder {
	b.rule.AutoEscalate = false
	return b
}

// Build returns the constructed rule
func (b *SLAConfigBuilder) Build() database.SLAConfig {
	return b.rule
}

// ========================================
// Emergency Contact Builder
// ========================================

// EmergencyContactBuilder builds EmergencyContact instances for testing
type EmergencyContactBuilder struct {
	contact database.EmergencyContact
}

// NewEmergencyContactBuilder creates a new emergency contact builder with defaults
func NewEmergencyContactBuilder() *EmergencyContactBuilder {
	return &EmergencyContactBuilder{
		contact: database.EmergencyContact{
			EventID: "event-1",
			Name:    "Duty Officer",
			Phone:   "+15550911",
			Email:   "duty@example.com",
			Rank:    0,
		},
	}
}

// WithEventID sets the owning event
func (b *EmergencyContactBuilder) WithEventID(eventID string) *EmergencyContactBuilder {
	b.contact.EventID = eventID
	return b
}

// WithRank sets the contact order
func (b *EmergencyContactBuilder) WithRank(rank int) *EmergencyContactBuilder {
	b.contact.Rank = rank
	return b
}

// PhoneOnly leaves phone as the only contact detail
func (b *EmergencyContactBuilder) PhoneOnly(phone string) *EmergencyContactBuilder {
	b.contact.Phone = phone
	b.contact.Email = ""
	b.contact.SMSNumber = ""
	return b
}

// Unreachable clears every contact detail
func (b *EmergencyContactBuilder) Unreachable() *EmergencyContactBuilder {
	b.contact.Phone = ""
	b.contact.Email = ""
	b.contact.SMSNumber = ""
	return b
}

// Build returns the constructed contact
func (b *EmergencyContactBuilder) Build() database.EmergencyContact {
	return b.contact
}

// UniqueIncidentUUID returns a deterministic unique UUID for test incidents
func UniqueIncidentUUID(n int) string {
	return fmt.Sprintf("inc-test-%04d", n)
}

package api

import (
	"time"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// EscalationEventResponse is the API representation of one audit record.
type EscalationEventResponse struct {
	ID                 uint       `json:"id"`
	IncidentID         uint       `json:"incident_id"`
	EscalationLevel    int        `json:"escalation_level"`
	EscalatedAt        time.Time  `json:"escalated_at"`
	EscalatedBy        *string    `json:"escalated_by,omitempty"`
	SupervisorNotified bool       `json:"supervisor_notified"`
	ResolutionTime     *time.Time `json:"resolution_time,omitempty"`
	Notes              string     `json:"notes"`
}

// MapEscalationEvent converts a database event to its API representation.
func MapEscalationEvent(e *database.EscalationEvent) EscalationEventResponse {
	return EscalationEventResponse{
		ID:                 e.ID,
		IncidentID:         e.IncidentID,
		EscalationLevel:    e.EscalationLevel,
		EscalatedAt:        e.EscalatedAt,
		EscalatedBy:        e.EscalatedBy,
		SupervisorNotified: e.SupervisorNotified,
		ResolutionTime:     e.ResolutionTime,
		Notes:              e.Notes,
	}
}

// MapEscalationEvents converts a slice of events.
func MapEscalationEvents(events []database.EscalationEvent) []EscalationEventResponse {
	out := make([]EscalationEventResponse, 0, len(events))
	for i := range events {
		out = append(out, MapEscalationEvent(&events[i]))
	}
	return out
}

// IncidentEscalationState is the engine's view of an incident's escalation
// fields, returned by pause/resume.
type IncidentEscalationState struct {
	UUID            string     `json:"uuid"`
	EscalationLevel int        `json:"escalation_level"`
	Escalated       bool       `json:"escalated"`
	EscalateAt      *time.Time `json:"escalate_at,omitempty"`
}

// MapIncidentEscalationState extracts the escalation fields of an incident.
func MapIncidentEscalationState(i *database.Incident) IncidentEscalationState {
	return IncidentEscalationState{
		UUID:            i.UUID,
		EscalationLevel: i.EscalationLevel,
		Escalated:       i.Escalated,
		EscalateAt:      i.EscalateAt,
	}
}

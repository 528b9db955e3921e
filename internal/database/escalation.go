package database

import (
	"time"

	"gorm.io/gorm"
)

// These helpers accept a db parameter (rather than using the global DB) to
// support dependency injection, transaction contexts, and easier testing.

// FindDueIncidents returns incidents whose escalation deadline has passed and
// whose current level has not yet been attempted. An empty eventID matches
// all events.
func FindDueIncidents(db *gorm.DB, now time.Time, eventID string) ([]Incident, error) {
	q := db.Where("escalate_at IS NOT NULL AND escalate_at < ?", now).
		Where("escalated = ?", false).
		Where("status IN ?", []IncidentStatus{IncidentStatusOpen, IncidentStatusInProgress})
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}

	var incidents []Incident
	err := q.Order("escalate_at ASC").Find(&incidents).Error
	return incidents, err
}

// ClaimEscalation performs the compare-and-swap level promotion. The update
// only applies while the stored level still equals fromLevel and the level
// has not been attempted; a concurrent scan that already won the incident
// makes this a no-op. Returns true if this caller won the claim.
func ClaimEscalation(db *gorm.DB, incidentID uint, fromLevel int, note string) (bool, error) {
	result := db.Model(&Incident{}).
		Where("id = ? AND escalation_level = ? AND escalated = ?", incidentID, fromLevel, false).
		Updates(map[string]interface{}{
			"escalation_level": fromLevel + 1,
			"escalated":        true,
			"escalation_notes": gorm.Expr("COALESCE(escalation_notes, '') || ?", note),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AppendIncidentNote appends to the incident's escalation note trail
func AppendIncidentNote(db *gorm.DB, incidentID uint, note string) error {
	return db.Model(&Incident{}).Where("id = ?", incidentID).
		Update("escalation_notes", gorm.Expr("COALESCE(escalation_notes, '') || ?", note)).Error
}

// PauseIncident clears the escalation deadline without touching the level
func PauseIncident(db *gorm.DB, incidentID uint, note string) error {
	return db.Model(&Incident{}).Where("id = ?", incidentID).
		Updates(map[string]interface{}{
			"escalate_at":      nil,
			"escalation_notes": gorm.Expr("COALESCE(escalation_notes, '') || ?", note),
		}).Error
}

// ResumeIncident re-arms the incident: sets the next deadline and clears the
// attempted flag so the next scan can promote it to its next level.
func ResumeIncident(db *gorm.DB, incidentID uint, at time.Time, note string) error {
	return db.Model(&Incident{}).Where("id = ?", incidentID).
		Updates(map[string]interface{}{
			"escalate_at":      at,
			"escalated":        false,
			"escalation_notes": gorm.Expr("COALESCE(escalation_notes, '') || ?", note),
		}).Error
}

// AvailableSupervisors returns currently-available supervisors for an event
// whose role is in roles. An empty result is a valid outcome, not an error.
func AvailableSupervisors(db *gorm.DB, eventID string, roles []string) ([]Supervisor, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var supervisors []Supervisor
	err := db.Where("event_id = ? AND available = ? AND role IN ?", eventID, true, roles).
		Order("id ASC").Find(&supervisors).Error
	return supervisors, err
}

// EmergencyContactsForEvent returns the event's emergency contact list in
// contact order.
func EmergencyContactsForEvent(db *gorm.DB, eventID string) ([]EmergencyContact, error) {
	var contacts []EmergencyContact
	err := db.Where("event_id = ?", eventID).Order("rank ASC, id ASC").Find(&contacts).Error
	return contacts, err
}

package escalation

import (
	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// Directory resolves the set of currently-available supervisors for an event.
// An empty result is a valid, escalation-relevant outcome: it forces the
// state machine to record supervisor_notified=false and skip the cascade.
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a new supervisor directory
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Available returns available supervisors for eventID whose role is in roles
func (d *Directory) Available(eventID string, roles []string) ([]database.Supervisor, error) {
	return database.AvailableSupervisors(d.db, eventID, roles)
}

// AvailableIn performs the same lookup on an existing transaction handle
func (d *Directory) AvailableIn(tx *gorm.DB, eventID string, roles []string) ([]database.Supervisor, error) {
	return database.AvailableSupervisors(tx, eventID, roles)
}

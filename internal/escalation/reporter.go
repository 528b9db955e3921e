package escalation

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// EventSink receives recorded escalation events, e.g. the live ws feed.
// Implementations must not block.
type EventSink interface {
	Publish(event *database.EscalationEvent)
}

// Stats aggregates escalation activity for one event
type Stats struct {
	TotalEscalations int `json:"total_escalations"`

	// AverageResponseTimeMinutes is computed only over transitions with a
	// recorded resolution time; zero when none are resolved yet.
	AverageResponseTimeMinutes float64 `json:"average_response_time_minutes"`

	EscalationByLevel map[int]int    `json:"escalation_by_level"`
	EscalationByType  map[string]int `json:"escalation_by_type"`
}

// Reporter persists the immutable transition records and aggregates
// statistics per event.
type Reporter struct {
	db   *gorm.DB
	sink EventSink
}

// NewReporter creates a new escalation reporter. sink may be nil.
func NewReporter(db *gorm.DB, sink EventSink) *Reporter {
	return &Reporter{db: db, sink: sink}
}

// RecordTransition appends one escalation event to the audit trail
func (r *Reporter) RecordTransition(event *database.EscalationEvent) error {
	if err := r.RecordTransitionIn(r.db, event); err != nil {
		return err
	}
	r.Announce(event)
	return nil
}

// RecordTransitionIn appends the event using an existing transaction handle
// so the caller can tie the audit row to other writes. The caller announces
// the event itself once the transaction has committed.
func (r *Reporter) RecordTransitionIn(tx *gorm.DB, event *database.EscalationEvent) error {
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record escalation event: %w", err)
	}
	return nil
}

// Announce publishes a committed event to the sink, if one is configured
func (r *Reporter) Announce(event *database.EscalationEvent) {
	if r.sink != nil {
		r.sink.Publish(event)
	}
}

// History returns an incident's escalation events, newest first
func (r *Reporter) History(incidentID uint) ([]database.EscalationEvent, error) {
	var events []database.EscalationEvent
	err := r.db.Where("incident_id = ?", incidentID).
		Order("escalated_at DESC, id DESC").Find(&events).Error
	return events, err
}

// ErrAlreadyResolved is returned when a resolution time is backfilled twice
var ErrAlreadyResolved = errors.New("escalation event already has a resolution time")

// RecordResolution backfills the resolution time on one escalation event.
// This is the only permitted mutation of the audit trail and it applies
// exactly once per event.
func (r *Reporter) RecordResolution(eventID uint, at time.Time) error {
	result := r.db.Model(&database.EscalationEvent{}).
		Where("id = ? AND resolution_time IS NULL", eventID).
		Update("resolution_time", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.Model(&database.EscalationEvent{}).Where("id = ?", eventID).Count(&count)
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

type statsRow struct {
	EscalationLevel int
	EscalatedAt     time.Time
	ResolutionTime  *time.Time
	IncidentType    string
}

// StatsForEvent aggregates over all escalation events joined to the event's
// incidents.
func (r *Reporter) StatsForEvent(eventID string) (*Stats, error) {
	var rows []statsRow
	err := r.db.Table("escalation_events").
		Select("escalation_events.escalation_level, escalation_events.escalated_at, escalation_events.resolution_time, incidents.incident_type").
		Joins("JOIN incidents ON incidents.id = escalation_events.incident_id").
		Where("incidents.event_id = ?", eventID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		EscalationByLevel: make(map[int]int),
		EscalationByType:  make(map[string]int),
	}

	var resolved int
	var totalResponse time.Duration
	for _, row := range rows {
		stats.TotalEscalations++
		stats.EscalationByLevel[row.EscalationLevel]++
		stats.EscalationByType[row.IncidentType]++
		if row.ResolutionTime != nil {
			resolved++
			totalResponse += row.ResolutionTime.Sub(row.EscalatedAt)
		}
	}
	if resolved > 0 {
		stats.AverageResponseTimeMinutes = totalResponse.Minutes() / float64(resolved)
	}

	return stats, nil
}

package escalation

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
	"github.com/watchtower-ops/watchtower/internal/notify"
)

// Outcome classifies the result of a single escalation attempt. Only
// OutcomeEscalated performed a transition; the others are valid no-ops,
// not errors.
type Outcome string

const (
	OutcomeEscalated     Outcome = "escalated"
	OutcomeAtCeiling     Outcome = "at_ceiling"
	OutcomeLostRace      Outcome = "lost_race"
	OutcomeNotActionable Outcome = "not_actionable"
	OutcomeAutoDisabled  Outcome = "auto_escalate_disabled"
)

// EscalateResult is the full outcome of one Escalate call
type EscalateResult struct {
	Outcome            Outcome
	Incident           *database.Incident
	NewLevel           int
	SupervisorNotified bool
	Notification       *NotificationResult
	EmergencyLog       *database.EmergencyLog
}

// CheckReport summarizes one scan-and-escalate pass
type CheckReport struct {
	DueIncidents         int      `json:"due_incidents"`
	EscalatedIncidents   int      `json:"escalated_incidents"`
	EscalatedIncidentIDs []string `json:"escalated_incident_ids"`
	Errors               int      `json:"errors"`
}

// Engine is the escalation state machine. It owns the per-incident level
// transition and hands successful transitions to the cascade dispatcher.
// It has no internal scheduler: callers (the HTTP surface or an external
// cron) drive it, and all timeout math takes now as an explicit parameter.
type Engine struct {
	db         *gorm.DB
	sla        *SLAResolver
	directory  *Directory
	dispatcher *Dispatcher
	failover   *FailoverController
	reporter   *Reporter

	// DisplayTargets are forwarded to the visual alert tier
	DisplayTargets []string
}

// NewEngine wires the escalation engine components together
func NewEngine(db *gorm.DB, sla *SLAResolver, directory *Directory, dispatcher *Dispatcher, failover *FailoverController, reporter *Reporter) *Engine {
	return &Engine{
		db:         db,
		sla:        sla,
		directory:  directory,
		dispatcher: dispatcher,
		failover:   failover,
		reporter:   reporter,
	}
}

// ScanDue returns the incidents whose escalation deadline has passed.
// An empty eventID scans all events.
func (e *Engine) ScanDue(now time.Time, eventID string) ([]database.Incident, error) {
	return database.FindDueIncidents(e.db, now, eventID)
}

// Escalate performs the one-level promotion for a single incident. Safe to
// call concurrently: the compare-and-swap claim guarantees exactly one
// winner per (incident, level) transition, and losers return OutcomeLostRace
// without side effects.
func (e *Engine) Escalate(ctx context.Context, incidentID uint, now time.Time) (*EscalateResult, error) {
	var incident database.Incident
	if err := e.db.First(&incident, incidentID).Error; err != nil {
		return nil, fmt.Errorf("failed to load incident %d: %w", incidentID, err)
	}

	if !incident.IsActionable() {
		return &EscalateResult{Outcome: OutcomeNotActionable, Incident: &incident}, nil
	}

	sla := e.sla.Resolve(incident.IncidentType, incident.Priority)
	if !sla.AutoEscalate {
		return &EscalateResult{Outcome: OutcomeAutoDisabled, Incident: &incident}, nil
	}

	// Terminal state for auto-escalation, not an error.
	if incident.EscalationLevel >= sla.MaxLevels {
		return &EscalateResult{Outcome: OutcomeAtCeiling, Incident: &incident}, nil
	}

	newLevel := incident.EscalationLevel + 1
	note := fmt.Sprintf("\n[%s] auto-escalated to level %d", now.UTC().Format(time.RFC3339), newLevel)

	// The level claim and the audit row commit or roll back together: an
	// incident must never be marked escalated without its EscalationEvent,
	// and a failed cycle leaves it due so the next scan retries.
	var won bool
	var supervisors []database.Supervisor
	event := &database.EscalationEvent{
		IncidentID:      incident.ID,
		EscalationLevel: newLevel,
		EscalatedAt:     now,
		EscalatedBy:     nil, // automatic
	}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		w, err := database.ClaimEscalation(tx, incident.ID, incident.EscalationLevel, note)
		if err != nil {
			return fmt.Errorf("failed to claim escalation for incident %d: %w", incident.ID, err)
		}
		won = w
		if !won {
			return nil
		}

		supervisors, err = e.directory.AvailableIn(tx, incident.EventID, sla.SupervisorRoles)
		if err != nil {
			return fmt.Errorf("failed to resolve supervisors for event %s: %w", incident.EventID, err)
		}

		event.SupervisorNotified = len(supervisors) > 0
		event.Notes = fmt.Sprintf("auto-escalation, %d supervisors resolved", len(supervisors))
		return e.reporter.RecordTransitionIn(tx, event)
	})
	if err != nil {
		return nil, err
	}
	if !won {
		// Another concurrent scan already promoted this incident.
		return &EscalateResult{Outcome: OutcomeLostRace, Incident: &incident}, nil
	}
	incident.EscalationLevel = newLevel
	incident.Escalated = true
	e.reporter.Announce(event)

	result := &EscalateResult{
		Outcome:            OutcomeEscalated,
		Incident:           &incident,
		NewLevel:           newLevel,
		SupervisorNotified: len(supervisors) > 0,
	}

	// No recipients is a valid outcome: recorded, cascade skipped.
	if len(supervisors) == 0 {
		log.Printf("Escalation: incident %s promoted to level %d with no available supervisors", incident.UUID, newLevel)
		return result, nil
	}

	payload := &notify.Payload{
		IncidentID:     incident.ID,
		IncidentUUID:   incident.UUID,
		EventID:        incident.EventID,
		IncidentType:   incident.IncidentType,
		Priority:       string(incident.Priority),
		Level:          newLevel,
		Title:          fmt.Sprintf("Incident escalated to level %d", newLevel),
		Message:        escalationMessage(&incident, newLevel),
		Supervisors:    supervisors,
		DisplayTargets: e.DisplayTargets,
	}

	result.Notification = e.dispatcher.Dispatch(ctx, payload)

	if result.Notification.CriticalFailure {
		entry, err := e.failover.Activate(ctx, &incident, result.Notification)
		if err != nil {
			log.Printf("SYSTEM ERROR: emergency failover failed for incident %s: %v", incident.UUID, err)
		} else {
			result.EmergencyLog = entry
		}
	}

	return result, nil
}

// RunCheck performs a scan-and-escalate pass. With dryRun set, it only
// reports which incidents are due without escalating them.
func (e *Engine) RunCheck(ctx context.Context, eventID string, dryRun bool, now time.Time) (*CheckReport, error) {
	due, err := e.ScanDue(now, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan due incidents: %w", err)
	}

	report := &CheckReport{
		DueIncidents:         len(due),
		EscalatedIncidentIDs: []string{},
	}
	if dryRun {
		return report, nil
	}

	for _, incident := range due {
		res, err := e.Escalate(ctx, incident.ID, now)
		if err != nil {
			// Persistence failure: the incident stays due and will be
			// retried on the next scan.
			log.Printf("SYSTEM ERROR: escalation failed for incident %s: %v", incident.UUID, err)
			report.Errors++
			continue
		}
		if res.Outcome == OutcomeEscalated {
			report.EscalatedIncidents++
			report.EscalatedIncidentIDs = append(report.EscalatedIncidentIDs, incident.UUID)
		}
	}

	return report, nil
}

// Pause clears the escalation deadline while a human is actively handling
// the incident. The escalation level is untouched.
func (e *Engine) Pause(incidentID uint, pausedBy string, now time.Time) error {
	note := fmt.Sprintf("\n[%s] escalation paused by %s", now.UTC().Format(time.RFC3339), pausedBy)
	if err := database.PauseIncident(e.db, incidentID, note); err != nil {
		return fmt.Errorf("failed to pause incident %d: %w", incidentID, err)
	}
	return nil
}

// Resume re-arms escalation: the deadline restarts from now using the
// incident's current SLA timeout plus extraMinutes, and the attempted flag
// clears so the next scan can promote to the next level.
func (e *Engine) Resume(incidentID uint, resumedBy string, extraMinutes int, now time.Time) (time.Time, error) {
	var incident database.Incident
	if err := e.db.First(&incident, incidentID).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to load incident %d: %w", incidentID, err)
	}

	sla := e.sla.Resolve(incident.IncidentType, incident.Priority)
	at := NextEscalationAt(now, sla.TimeoutMinutes, extraMinutes)

	note := fmt.Sprintf("\n[%s] escalation resumed by %s, next check at %s",
		now.UTC().Format(time.RFC3339), resumedBy, at.UTC().Format(time.RFC3339))
	if err := database.ResumeIncident(e.db, incident.ID, at, note); err != nil {
		return time.Time{}, fmt.Errorf("failed to resume incident %d: %w", incidentID, err)
	}
	return at, nil
}

func escalationMessage(incident *database.Incident, level int) string {
	return fmt.Sprintf("Incident %s (%s, priority %s) has been unattended past its SLA and is now at escalation level %d. Please respond.",
		incident.UUID, incident.IncidentType, incident.Priority, level)
}

package escalation

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// recordingSink captures published events for assertions
type recordingSink struct {
	events []*database.EscalationEvent
}

func (s *recordingSink) Publish(event *database.EscalationEvent) {
	s.events = append(s.events, event)
}

func TestReporter_RecordTransitionPublishesToSink(t *testing.T) {
	db := setupTestDB(t)
	sink := &recordingSink{}
	reporter := NewReporter(db, sink)

	event := &database.EscalationEvent{
		IncidentID:      1,
		EscalationLevel: 1,
		EscalatedAt:     time.Now(),
	}
	if err := reporter.RecordTransition(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.ID == 0 {
		t.Error("expected persisted event to have an ID")
	}
	if len(sink.events) != 1 || sink.events[0].ID != event.ID {
		t.Errorf("expected event published to sink, got %v", sink.events)
	}
}

func TestReporter_NilSink(t *testing.T) {
	reporter := NewReporter(setupTestDB(t), nil)

	err := reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: 1, EscalationLevel: 1, EscalatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error with nil sink: %v", err)
	}
}

func TestReporter_HistoryNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	reporter := NewReporter(db, nil)

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	for level := 1; level <= 3; level++ {
		err := reporter.RecordTransition(&database.EscalationEvent{
			IncidentID:      7,
			EscalationLevel: level,
			EscalatedAt:     base.Add(time.Duration(level) * time.Minute),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Another incident's trail must not leak in.
	reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: 8, EscalationLevel: 1, EscalatedAt: base,
	})

	events, err := reporter.History(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, wantLevel := range []int{3, 2, 1} {
		if events[i].EscalationLevel != wantLevel {
			t.Errorf("position %d: expected level %d, got %d", i, wantLevel, events[i].EscalationLevel)
		}
	}
}

func TestReporter_RecordResolutionAppliesOnce(t *testing.T) {
	db := setupTestDB(t)
	reporter := NewReporter(db, nil)

	event := &database.EscalationEvent{
		IncidentID: 1, EscalationLevel: 1, EscalatedAt: time.Now(),
	}
	if err := reporter.RecordTransition(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Now().Add(5 * time.Minute)
	if err := reporter.RecordResolution(event.ID, at); err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}

	err := reporter.RecordResolution(event.ID, at.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved on second backfill, got %v", err)
	}

	err = reporter.RecordResolution(9999, at)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for unknown event, got %v", err)
	}

	var stored database.EscalationEvent
	db.First(&stored, event.ID)
	if stored.ResolutionTime == nil {
		t.Fatal("expected resolution time persisted")
	}
}

func TestReporter_StatsForEvent(t *testing.T) {
	db := setupTestDB(t)
	reporter := NewReporter(db, nil)

	medical := database.Incident{UUID: "inc-m", EventID: "event-1", IncidentType: "medical", Priority: database.PriorityHigh, Status: database.IncidentStatusOpen}
	security := database.Incident{UUID: "inc-s", EventID: "event-1", IncidentType: "security", Priority: database.PriorityHigh, Status: database.IncidentStatusOpen}
	other := database.Incident{UUID: "inc-o", EventID: "event-2", IncidentType: "medical", Priority: database.PriorityHigh, Status: database.IncidentStatusOpen}
	db.Create(&medical)
	db.Create(&security)
	db.Create(&other)

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	resolvedAt := base.Add(10 * time.Minute)

	reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: medical.ID, EscalationLevel: 1, EscalatedAt: base, ResolutionTime: &resolvedAt,
	})
	reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: medical.ID, EscalationLevel: 2, EscalatedAt: base.Add(time.Minute),
	})
	reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: security.ID, EscalationLevel: 1, EscalatedAt: base,
	})
	// Different event, must be excluded.
	reporter.RecordTransition(&database.EscalationEvent{
		IncidentID: other.ID, EscalationLevel: 1, EscalatedAt: base,
	})

	stats, err := reporter.StatsForEvent("event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalEscalations != 3 {
		t.Errorf("expected 3 escalations, got %d", stats.TotalEscalations)
	}
	if stats.EscalationByLevel[1] != 2 || stats.EscalationByLevel[2] != 1 {
		t.Errorf("unexpected level breakdown: %v", stats.EscalationByLevel)
	}
	if stats.EscalationByType["medical"] != 2 || stats.EscalationByType["security"] != 1 {
		t.Errorf("unexpected type breakdown: %v", stats.EscalationByType)
	}
	// Only the single resolved transition contributes to the average.
	if stats.AverageResponseTimeMinutes < 9.9 || stats.AverageResponseTimeMinutes > 10.1 {
		t.Errorf("expected ~10 minute average, got %f", stats.AverageResponseTimeMinutes)
	}
}

func TestReporter_StatsForEventEmpty(t *testing.T) {
	reporter := NewReporter(setupTestDB(t), nil)

	stats, err := reporter.StatsForEvent("event-none")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalEscalations != 0 {
		t.Errorf("expected zero escalations, got %d", stats.TotalEscalations)
	}
	if stats.AverageResponseTimeMinutes != 0 {
		t.Errorf("expected zero average, got %f", stats.AverageResponseTimeMinutes)
	}
}

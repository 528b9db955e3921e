package escalation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/watchtower-ops/watchtower/internal/database"
	"github.com/watchtower-ops/watchtower/internal/notify"
)

// fakeOpsNotifier captures critical-failure notifications
type fakeOpsNotifier struct {
	summaries []string
}

func (f *fakeOpsNotifier) NotifyCriticalFailure(ctx context.Context, incident *database.Incident, level int, summary string) {
	f.summaries = append(f.summaries, summary)
}

func failedResult(incidentID uint, level int) *NotificationResult {
	var attempts []notify.Attempt
	for i := 0; i < 5; i++ {
		attempts = append(attempts, notify.Attempt{Success: false, Error: "send failed"})
	}
	return &NotificationResult{
		IncidentID:      incidentID,
		EscalationLevel: level,
		Attempts:        attempts,
		TiersAttempted:  5,
		CriticalFailure: true,
	}
}

func TestFailoverController_ActivateReachesContacts(t *testing.T) {
	db := setupTestDB(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	incident := database.Incident{
		UUID: "inc-em", EventID: "event-1", IncidentType: "security",
		Priority: database.PriorityUrgent, Status: database.IncidentStatusOpen,
	}
	db.Create(&incident)
	db.Create(&database.EmergencyContact{
		EventID: "event-1", Name: "Duty Officer", Phone: "+15550911", Rank: 0,
	})

	gateway := notify.NewGatewayClient(time.Second)
	ops := &fakeOpsNotifier{}
	controller := NewFailoverController(db,
		notify.NewContactCaller(gateway, server.URL),
		notify.NewProtocolActivator(gateway, server.URL),
		ops,
	)

	entry, err := controller.Activate(context.Background(), &incident, failedResult(incident.ID, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.EmergencyType != database.EmergencyTypeNotificationFailure {
		t.Errorf("unexpected emergency type %q", entry.EmergencyType)
	}
	if entry.EscalationLevel != 3 {
		t.Errorf("expected level 3, got %d", entry.EscalationLevel)
	}
	if !strings.Contains(entry.Notes, "5 notification attempts failed") {
		t.Errorf("expected failure summary in notes, got %q", entry.Notes)
	}

	if len(ops.summaries) != 1 {
		t.Fatalf("expected one ops notification, got %d", len(ops.summaries))
	}
	if !strings.Contains(ops.summaries[0], "emergency contacts reached: 1") {
		t.Errorf("expected contact outcome in ops summary, got %q", ops.summaries[0])
	}
	if !strings.Contains(ops.summaries[0], "protocols activated: 3/3") {
		t.Errorf("expected protocol outcome in ops summary, got %q", ops.summaries[0])
	}
}

func TestFailoverController_TerminalFailureStillLogged(t *testing.T) {
	db := setupTestDB(t)

	incident := database.Incident{
		UUID: "inc-terminal", EventID: "event-empty", IncidentType: "security",
		Priority: database.PriorityUrgent, Status: database.IncidentStatusOpen,
	}
	db.Create(&incident)

	// No contacts and unconfigured gateways: everything downstream fails,
	// but the emergency log row must still be written.
	gateway := notify.NewGatewayClient(time.Second)
	controller := NewFailoverController(db,
		notify.NewContactCaller(gateway, ""),
		notify.NewProtocolActivator(gateway, ""),
		nil,
	)

	entry, err := controller.Activate(context.Background(), &incident, failedResult(incident.ID, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("expected persisted emergency log entry")
	}
	if entry.Status != database.EmergencyStatusActive {
		t.Errorf("expected active status, got %s", entry.Status)
	}

	// Append-only: the row's notes keep the original failure summary.
	var stored database.EmergencyLog
	db.First(&stored, entry.ID)
	if stored.Notes != entry.Notes {
		t.Error("emergency log notes must not be rewritten after creation")
	}
}

func TestEmergencyProtocolsFixedSet(t *testing.T) {
	want := map[string]bool{
		"notify-emergency-services": true,
		"activate-backup-comms":     true,
		"deploy-emergency-staff":    true,
	}
	if len(EmergencyProtocols) != len(want) {
		t.Fatalf("expected %d protocols, got %d", len(want), len(EmergencyProtocols))
	}
	for _, name := range EmergencyProtocols {
		if !want[name] {
			t.Errorf("unexpected protocol %q", name)
		}
	}
}

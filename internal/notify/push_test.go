package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/watchtower-ops/watchtower/internal/database"
)

func testPayload(supervisors ...database.Supervisor) *Payload {
	return &Payload{
		IncidentID:   1,
		IncidentUUID: "inc-1",
		EventID:      "event-1",
		IncidentType: "medical",
		Priority:     "high",
		Level:        2,
		Title:        "Incident escalated to level 2",
		Message:      "Please respond.",
		Supervisors:  supervisors,
	}
}

func TestPushChannel_FansOutPerSupervisor(t *testing.T) {
	var mu sync.Mutex
	var recipients []uint
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RecipientID uint `json:"recipient_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode push request: %v", err)
		}
		mu.Lock()
		recipients = append(recipients, req.RecipientID)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewPushChannel(NewGatewayClient(time.Second), server.URL)
	p := testPayload(
		database.Supervisor{ID: 1, Name: "A"},
		database.Supervisor{ID: 2, Name: "B"},
		database.Supervisor{ID: 3, Name: "C"},
	)

	attempts := channel.Send(context.Background(), p)
	if len(attempts) != 3 {
		t.Fatalf("expected one attempt per supervisor, got %d", len(attempts))
	}
	for _, a := range attempts {
		if !a.Success {
			t.Errorf("expected success, got failure: %s", a.Error)
		}
		if a.Method != MethodPush {
			t.Errorf("expected method %s, got %s", MethodPush, a.Method)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(recipients) != 3 {
		t.Errorf("expected 3 gateway calls, got %d", len(recipients))
	}
}

func TestPushChannel_GatewayFailure(t *testing.T) {
	server := failingGateway(t)
	channel := NewPushChannel(NewGatewayClient(time.Second), server.URL)
	p := testPayload(database.Supervisor{ID: 1, Name: "A"})

	attempts := channel.Send(context.Background(), p)
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].Success {
		t.Error("expected failed attempt")
	}
	if attempts[0].Error == "" {
		t.Error("expected error detail on failed attempt")
	}
}

func TestPushChannel_Eligibility(t *testing.T) {
	channel := NewPushChannel(NewGatewayClient(time.Second), "")

	if channel.Eligible(testPayload()) {
		t.Error("expected ineligible with no supervisors")
	}
	if !channel.Eligible(testPayload(database.Supervisor{ID: 1})) {
		t.Error("expected eligible with a supervisor")
	}
}

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

func TestContactCaller_StopsAtFirstSuccess(t *testing.T) {
	server := okGateway(t)
	caller := NewContactCaller(NewGatewayClient(time.Second), server.URL)

	contact := &database.EmergencyContact{
		ID: 1, Name: "Duty Officer",
		Phone: "+15550911", Email: "duty@example.com", SMSNumber: "+15550912",
	}

	attempts := caller.Reach(context.Background(), contact, "inc-1", "respond now")
	if len(attempts) != 1 {
		t.Fatalf("expected to stop after the first successful method, got %d attempts", len(attempts))
	}
	if attempts[0].Method != "emergency_contact_phone" {
		t.Errorf("expected phone first, got %s", attempts[0].Method)
	}
	if !attempts[0].Success {
		t.Errorf("expected success, got %s", attempts[0].Error)
	}
}

func TestContactCaller_FallsThroughMethods(t *testing.T) {
	// Phone fails, email succeeds; sms must not be tried.
	var mu sync.Mutex
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		methods = append(methods, req.Method)
		mu.Unlock()
		if req.Method == "phone" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	caller := NewContactCaller(NewGatewayClient(time.Second), server.URL)
	contact := &database.EmergencyContact{
		ID: 1, Name: "Duty Officer",
		Phone: "+15550911", Email: "duty@example.com", SMSNumber: "+15550912",
	}

	attempts := caller.Reach(context.Background(), contact, "inc-1", "respond now")
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts (phone fail, email success), got %d", len(attempts))
	}
	if attempts[0].Success {
		t.Error("expected phone attempt to fail")
	}
	if !attempts[1].Success || attempts[1].Method != "emergency_contact_email" {
		t.Errorf("expected email success second, got %+v", attempts[1])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 2 || methods[0] != "phone" || methods[1] != "email" {
		t.Errorf("expected gateway calls [phone email], got %v", methods)
	}
}

func TestContactCaller_UnreachableContact(t *testing.T) {
	caller := NewContactCaller(NewGatewayClient(time.Second), "")
	contact := &database.EmergencyContact{ID: 1, Name: "Ghost"}

	attempts := caller.Reach(context.Background(), contact, "inc-1", "respond now")
	if len(attempts) != 1 {
		t.Fatalf("expected a single failed attempt, got %d", len(attempts))
	}
	if attempts[0].Success {
		t.Error("expected failure for a contact with no methods")
	}
}

func TestProtocolActivator_SendsProtocolRequest(t *testing.T) {
	var got struct {
		ProtocolName    string `json:"protocol_name"`
		EventID         string `json:"event_id"`
		EscalationLevel int    `json:"escalation_level"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	activator := NewProtocolActivator(NewGatewayClient(time.Second), server.URL)
	err := activator.Activate(context.Background(), "notify-emergency-services", "event-1", 3, "all tiers failed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ProtocolName != "notify-emergency-services" {
		t.Errorf("expected protocol name forwarded, got %q", got.ProtocolName)
	}
	if got.EventID != "event-1" || got.EscalationLevel != 3 {
		t.Errorf("unexpected request fields: %+v", got)
	}
}

func TestProtocolActivator_Unconfigured(t *testing.T) {
	activator := NewProtocolActivator(NewGatewayClient(time.Second), "")
	if err := activator.Activate(context.Background(), "notify-emergency-services", "event-1", 1, "reason"); err == nil {
		t.Fatal("expected error when protocol gateway is unconfigured")
	}
}

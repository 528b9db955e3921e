package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSiteChannels_AlwaysEligible(t *testing.T) {
	gateway := NewGatewayClient(time.Second)
	channels := []Channel{
		NewAudioChannel(gateway, ""),
		NewVisualChannel(gateway, ""),
		NewBroadcastChannel(gateway, ""),
	}

	// Site alerting has no per-person recipients, so even an empty roster
	// leaves these tiers eligible.
	p := testPayload()
	for _, ch := range channels {
		if !ch.Eligible(p) {
			t.Errorf("channel %s should always be eligible", ch.Name())
		}
	}
}

func TestVisualChannel_SendsDisplayTargets(t *testing.T) {
	var got struct {
		DisplayTargets []string `json:"display_targets"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewVisualChannel(NewGatewayClient(time.Second), server.URL)
	p := testPayload()
	p.DisplayTargets = []string{"gate-a", "gate-b"}

	attempts := channel.Send(context.Background(), p)
	if len(attempts) != 1 || !attempts[0].Success {
		t.Fatalf("expected one successful attempt, got %+v", attempts)
	}
	if attempts[0].Recipient != "displays:gate-a,gate-b" {
		t.Errorf("unexpected recipient: %q", attempts[0].Recipient)
	}
	if len(got.DisplayTargets) != 2 {
		t.Errorf("expected display targets forwarded, got %v", got.DisplayTargets)
	}
}

func TestBroadcastChannel_UnconfiguredIsFailedAttempt(t *testing.T) {
	channel := NewBroadcastChannel(NewGatewayClient(time.Second), "")

	attempts := channel.Send(context.Background(), testPayload())
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].Success {
		t.Error("expected failed attempt for unconfigured broadcast gateway")
	}
	if attempts[0].Method != MethodEmergencyBroadcast {
		t.Errorf("expected method %s, got %s", MethodEmergencyBroadcast, attempts[0].Method)
	}
}

func TestAudioChannel_Success(t *testing.T) {
	server := okGateway(t)
	channel := NewAudioChannel(NewGatewayClient(time.Second), server.URL)

	attempts := channel.Send(context.Background(), testPayload())
	if len(attempts) != 1 || !attempts[0].Success {
		t.Fatalf("expected one successful attempt, got %+v", attempts)
	}
	if attempts[0].Recipient != "audio-system" {
		t.Errorf("unexpected recipient: %q", attempts[0].Recipient)
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchtower-ops/watchtower/internal/api"
	"github.com/watchtower-ops/watchtower/internal/database"
)

func dialFeed(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/escalations"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventFeed_PublishReachesClient(t *testing.T) {
	feed := NewEventFeedHandler()
	mux := http.NewServeMux()
	feed.SetupRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialFeed(t, server)

	// The register runs in the upgrade handler, so the client is connected
	// once Dial returns.
	if feed.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", feed.ClientCount())
	}

	escalatedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	feed.Publish(&database.EscalationEvent{
		ID:              42,
		IncidentID:      7,
		EscalationLevel: 2,
		EscalatedAt:     escalatedAt,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got api.EscalationEventResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read published event: %v", err)
	}
	if got.ID != 42 || got.EscalationLevel != 2 {
		t.Errorf("unexpected event payload: %+v", got)
	}
}

func TestEventFeed_DisconnectedClientDropped(t *testing.T) {
	feed := NewEventFeedHandler()
	mux := http.NewServeMux()
	feed.SetupRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialFeed(t, server)
	conn.Close()

	// The read loop notices the close and deregisters the client.
	deadline := time.Now().Add(2 * time.Second)
	for feed.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected client dropped after disconnect, still %d connected", feed.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Publishing with no clients is a no-op.
	feed.Publish(&database.EscalationEvent{ID: 1})
}

func TestEventFeed_PublishNeverBlocks(t *testing.T) {
	feed := NewEventFeedHandler()
	mux := http.NewServeMux()
	feed.SetupRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	dialFeed(t, server)

	// Flood well past the client buffer without reading; Publish must return
	// promptly every time, dropping the slow client instead of blocking the
	// escalation path.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			feed.Publish(&database.EscalationEvent{ID: uint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Publish blocked on a slow client")
	}
}

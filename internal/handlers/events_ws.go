package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchtower-ops/watchtower/internal/api"
	"github.com/watchtower-ops/watchtower/internal/database"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedSendBuffer   = 16
)

// EventFeedHandler streams recorded escalation events to connected ops
// dashboards over WebSocket. It implements escalation.EventSink; Publish
// never blocks and slow clients are dropped.
type EventFeedHandler struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan *database.EscalationEvent
}

// NewEventFeedHandler creates a new escalation event feed
func NewEventFeedHandler() *EventFeedHandler {
	return &EventFeedHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS policy is handled at the middleware layer
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventFeedHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/escalations", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and registers the client
func (h *EventFeedHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		log.Printf("EventFeedHandler: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan *database.EscalationEvent, feedSendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("EventFeedHandler: dashboard connected from %s (%d total)", r.RemoteAddr, count)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// Publish implements escalation.EventSink. Events are fanned out to every
// connected dashboard; a client with a full buffer is dropped rather than
// blocking the escalation path.
func (h *EventFeedHandler) Publish(event *database.EscalationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Buffer full; writeLoop will be torn down via connection close.
			go h.drop(client)
		}
	}
}

func (h *EventFeedHandler) writeLoop(client *feedClient) {
	for event := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := client.conn.WriteJSON(api.MapEscalationEvent(event)); err != nil {
			h.drop(client)
			return
		}
	}
}

// readLoop drains client messages; the feed is one-way, reads only detect
// disconnects.
func (h *EventFeedHandler) readLoop(client *feedClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.drop(client)
			return
		}
	}
}

func (h *EventFeedHandler) drop(client *feedClient) {
	h.mu.Lock()
	_, registered := h.clients[client]
	if registered {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if registered {
		client.conn.Close()
	}
}

// ClientCount returns the number of connected dashboards
func (h *EventFeedHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

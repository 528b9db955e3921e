// Package notify models the escalation notification channels as variants of
// one Channel capability behind a uniform interface. The fixed tier ordering
// of the fallback cascade is expressed as an ordered list of Channels built
// at startup; payload shaping stays local to each implementation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// Channel method names, recorded on every notification attempt
const (
	MethodPush               = "push"
	MethodPersistedRecord    = "persisted_record"
	MethodEmail              = "email"
	MethodSMS                = "sms"
	MethodAudioAlert         = "audio_alert"
	MethodVisualAlert        = "visual_alert"
	MethodEmergencyBroadcast = "emergency_broadcast"
)

// Payload carries everything a channel needs to shape its own message
type Payload struct {
	IncidentID     uint
	IncidentUUID   string
	EventID        string
	IncidentType   string
	Priority       string
	Level          int
	Title          string
	Message        string
	Supervisors    []database.Supervisor
	DisplayTargets []string
}

// Attempt records a single delivery attempt for the audit trail
type Attempt struct {
	Method    string    `json:"method"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
	Error     string    `json:"error,omitempty"`
}

// Channel is one notification tier. Eligible reports whether the payload has
// any recipient the channel can reach; Send performs the delivery and returns
// one attempt record per recipient it addressed. Send never returns an empty
// slice for an eligible payload.
type Channel interface {
	Name() string
	Eligible(p *Payload) bool
	Send(ctx context.Context, p *Payload) []Attempt
}

// ErrNotConfigured is reported when a channel has no gateway URL configured
var ErrNotConfigured = errors.New("channel gateway not configured")

// GatewayClient posts JSON payloads to channel collaborator services
type GatewayClient struct {
	httpClient *http.Client
}

// NewGatewayClient creates a gateway client with a per-call timeout
func NewGatewayClient(timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Post sends body as JSON to url and treats any non-2xx status as failure
func (c *GatewayClient) Post(ctx context.Context, url string, body interface{}) error {
	if url == "" {
		return ErrNotConfigured
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// SkippedAttempt records a tier that had no eligible recipients. The skip is
// visible in the audit trail as a failed attempt.
func SkippedAttempt(method string) Attempt {
	return Attempt{
		Method:    method,
		Success:   false,
		Timestamp: time.Now(),
		Recipient: "none",
		Error:     "no eligible recipients",
	}
}

// attempt builds an attempt record with the outcome of err
func attempt(method, recipient string, err error) Attempt {
	a := Attempt{
		Method:    method,
		Success:   err == nil,
		Timestamp: time.Now(),
		Recipient: recipient,
	}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

package notify

import (
	"context"
	"strings"
)

// The on-site channels (audio, visual, emergency broadcast) do not address
// supervisors directly; they target the venue's alerting systems and are
// always eligible.

// AudioChannel triggers the venue audio alert system
type AudioChannel struct {
	gateway *GatewayClient
	url     string
}

// NewAudioChannel creates the tier-5 audio alert channel
func NewAudioChannel(gateway *GatewayClient, url string) *AudioChannel {
	return &AudioChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *AudioChannel) Name() string {
	return MethodAudioAlert
}

// Eligible is always true; the audio system has no per-person recipients
func (c *AudioChannel) Eligible(p *Payload) bool {
	return true
}

type siteAlertRequest struct {
	IncidentID      string   `json:"incident_id"`
	EscalationLevel int      `json:"escalation_level"`
	IncidentType    string   `json:"incident_type"`
	Priority        string   `json:"priority"`
	DisplayTargets  []string `json:"display_targets,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// Send triggers the audio alert
func (c *AudioChannel) Send(ctx context.Context, p *Payload) []Attempt {
	err := c.gateway.Post(ctx, c.url, siteAlertRequest{
		IncidentID:      p.IncidentUUID,
		EscalationLevel: p.Level,
		IncidentType:    p.IncidentType,
		Priority:        p.Priority,
	})
	return []Attempt{attempt(MethodAudioAlert, "audio-system", err)}
}

// VisualChannel triggers the venue visual alert displays
type VisualChannel struct {
	gateway *GatewayClient
	url     string
}

// NewVisualChannel creates the tier-6 visual alert channel
func NewVisualChannel(gateway *GatewayClient, url string) *VisualChannel {
	return &VisualChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *VisualChannel) Name() string {
	return MethodVisualAlert
}

// Eligible is always true
func (c *VisualChannel) Eligible(p *Payload) bool {
	return true
}

// Send triggers the visual alert on the payload's display targets
func (c *VisualChannel) Send(ctx context.Context, p *Payload) []Attempt {
	err := c.gateway.Post(ctx, c.url, siteAlertRequest{
		IncidentID:      p.IncidentUUID,
		EscalationLevel: p.Level,
		IncidentType:    p.IncidentType,
		Priority:        p.Priority,
		DisplayTargets:  p.DisplayTargets,
	})
	recipient := "displays:all"
	if len(p.DisplayTargets) > 0 {
		recipient = "displays:" + strings.Join(p.DisplayTargets, ",")
	}
	return []Attempt{attempt(MethodVisualAlert, recipient, err)}
}

// BroadcastChannel triggers the emergency broadcast system, the most
// disruptive and last tier of the cascade.
type BroadcastChannel struct {
	gateway *GatewayClient
	url     string
}

// NewBroadcastChannel creates the tier-7 emergency broadcast channel
func NewBroadcastChannel(gateway *GatewayClient, url string) *BroadcastChannel {
	return &BroadcastChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *BroadcastChannel) Name() string {
	return MethodEmergencyBroadcast
}

// Eligible is always true
func (c *BroadcastChannel) Eligible(p *Payload) bool {
	return true
}

// Send triggers the emergency broadcast
func (c *BroadcastChannel) Send(ctx context.Context, p *Payload) []Attempt {
	err := c.gateway.Post(ctx, c.url, siteAlertRequest{
		IncidentID:      p.IncidentUUID,
		EscalationLevel: p.Level,
		IncidentType:    p.IncidentType,
		Priority:        p.Priority,
		Message:         p.Message,
	})
	return []Attempt{attempt(MethodEmergencyBroadcast, "broadcast-system", err)}
}

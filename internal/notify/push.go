package notify

import (
	"context"
	"fmt"
	"sync"
)

// PushChannel delivers push notifications, fanned out to every resolved
// supervisor individually. Fan-out runs in parallel since the sends have no
// ordering dependency; each supervisor gets their own attempt record.
type PushChannel struct {
	gateway *GatewayClient
	url     string
}

// NewPushChannel creates the tier-1 push channel
func NewPushChannel(gateway *GatewayClient, url string) *PushChannel {
	return &PushChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *PushChannel) Name() string {
	return MethodPush
}

// Eligible requires at least one resolved supervisor
func (c *PushChannel) Eligible(p *Payload) bool {
	return len(p.Supervisors) > 0
}

type pushRequest struct {
	RecipientID uint                   `json:"recipient_id"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Data        map[string]interface{} `json:"data"`
}

// Send fans the notification out to every supervisor in parallel
func (c *PushChannel) Send(ctx context.Context, p *Payload) []Attempt {
	attempts := make([]Attempt, len(p.Supervisors))

	var wg sync.WaitGroup
	for i, sup := range p.Supervisors {
		wg.Add(1)
		go func(i int, recipientID uint, name string) {
			defer wg.Done()
			err := c.gateway.Post(ctx, c.url, pushRequest{
				RecipientID: recipientID,
				Title:       p.Title,
				Body:        p.Message,
				Data: map[string]interface{}{
					"incident_id":      p.IncidentUUID,
					"escalation_level": p.Level,
					"incident_type":    p.IncidentType,
					"priority":         p.Priority,
				},
			})
			attempts[i] = attempt(MethodPush, fmt.Sprintf("supervisor:%d (%s)", recipientID, name), err)
		}(i, sup.ID, sup.Name)
	}
	wg.Wait()

	return attempts
}

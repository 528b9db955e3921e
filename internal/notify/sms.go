package notify

import (
	"context"
	"strings"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// SMSChannel delivers a single SMS batch covering every supervisor that has
// an sms contact method and a phone number on file.
type SMSChannel struct {
	gateway *GatewayClient
	url     string
}

// NewSMSChannel creates the tier-4 SMS channel
func NewSMSChannel(gateway *GatewayClient, url string) *SMSChannel {
	return &SMSChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *SMSChannel) Name() string {
	return MethodSMS
}

func (c *SMSChannel) recipients(p *Payload) []string {
	var numbers []string
	for _, sup := range p.Supervisors {
		if sup.HasContactMethod(database.ContactMethodSMS) && sup.Phone != "" {
			numbers = append(numbers, sup.Phone)
		}
	}
	return numbers
}

// Eligible requires at least one supervisor reachable by SMS
func (c *SMSChannel) Eligible(p *Payload) bool {
	return len(c.recipients(p)) > 0
}

type smsRequest struct {
	RecipientNumbers []string `json:"recipient_numbers"`
	Message          string   `json:"message"`
}

// Send delivers the SMS batch to all reachable supervisors
func (c *SMSChannel) Send(ctx context.Context, p *Payload) []Attempt {
	numbers := c.recipients(p)
	err := c.gateway.Post(ctx, c.url, smsRequest{
		RecipientNumbers: numbers,
		Message:          p.Message,
	})
	return []Attempt{attempt(MethodSMS, strings.Join(numbers, ","), err)}
}

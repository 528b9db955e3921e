package notify

import (
	"context"
	"strings"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// EmailChannel delivers a single email covering every supervisor that has an
// email contact method on file.
type EmailChannel struct {
	gateway *GatewayClient
	url     string
}

// NewEmailChannel creates the tier-3 email channel
func NewEmailChannel(gateway *GatewayClient, url string) *EmailChannel {
	return &EmailChannel{gateway: gateway, url: url}
}

// Name returns the channel method name
func (c *EmailChannel) Name() string {
	return MethodEmail
}

func (c *EmailChannel) recipients(p *Payload) []string {
	var addrs []string
	for _, sup := range p.Supervisors {
		if sup.HasContactMethod(database.ContactMethodEmail) && sup.Email != "" {
			addrs = append(addrs, sup.Email)
		}
	}
	return addrs
}

// Eligible requires at least one supervisor reachable by email
func (c *EmailChannel) Eligible(p *Payload) bool {
	return len(c.recipients(p)) > 0
}

type emailRequest struct {
	RecipientAddresses []string `json:"recipient_addresses"`
	Subject            string   `json:"subject"`
	Body               string   `json:"body"`
}

// Send delivers one email to all reachable supervisors
func (c *EmailChannel) Send(ctx context.Context, p *Payload) []Attempt {
	addrs := c.recipients(p)
	err := c.gateway.Post(ctx, c.url, emailRequest{
		RecipientAddresses: addrs,
		Subject:            p.Title,
		Body:               p.Message,
	})
	return []Attempt{attempt(MethodEmail, strings.Join(addrs, ","), err)}
}

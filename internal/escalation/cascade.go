package escalation

import (
	"context"
	"log"

	"github.com/watchtower-ops/watchtower/internal/notify"
)

// criticalFailureThreshold is the minimum number of genuinely attempted
// tiers that must all fail before the cascade is declared a critical failure.
// Tiers skipped for lack of eligible recipients are recorded in the attempt
// trail but do not count toward this threshold: an incomplete roster must
// not trip emergency failover.
const criticalFailureThreshold = 5

// NotificationResult is the outcome of one escalation notification cascade.
// It is constructed fresh per level transition, consumed by the reporter,
// then discarded; only the audit event and any emergency log persist.
type NotificationResult struct {
	IncidentID        uint             `json:"incident_id"`
	IncidentUUID      string           `json:"incident_uuid"`
	EscalationLevel   int              `json:"escalation_level"`
	Attempts          []notify.Attempt `json:"attempts"`
	AnySuccess        bool             `json:"any_success"`
	CriticalFailure   bool             `json:"critical_failure"`
	FallbackActivated bool             `json:"fallback_activated"`

	// TiersAttempted counts tiers that performed a real send, excluding
	// zero-recipient skips.
	TiersAttempted int `json:"tiers_attempted"`
}

// Dispatcher runs the fallback cascade: channels are tried in fixed tier
// order, each tier only after every prior tier failed, stopping at the first
// success. Every attempt is recorded for the audit trail.
type Dispatcher struct {
	channels []notify.Channel
}

// NewDispatcher creates a dispatcher over the given ordered channel list.
// The order is the tier order; it is fixed at startup.
func NewDispatcher(channels []notify.Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Dispatch runs the cascade for one escalation transition. Tiers run
// sequentially; within the push tier the fan-out across supervisors is
// parallel. Dispatch never fails: channel errors become failed attempts.
func (d *Dispatcher) Dispatch(ctx context.Context, p *notify.Payload) *NotificationResult {
	result := &NotificationResult{
		IncidentID:      p.IncidentID,
		IncidentUUID:    p.IncidentUUID,
		EscalationLevel: p.Level,
	}

	for _, ch := range d.channels {
		if !ch.Eligible(p) {
			// Recorded so the audit trail shows the tier was considered,
			// but not counted toward the critical-failure threshold.
			result.Attempts = append(result.Attempts, notify.SkippedAttempt(ch.Name()))
			continue
		}

		attempts := ch.Send(ctx, p)
		result.Attempts = append(result.Attempts, attempts...)
		result.TiersAttempted++

		for _, a := range attempts {
			if a.Success {
				result.AnySuccess = true
			}
		}
		if result.AnySuccess {
			break
		}
		log.Printf("Cascade: tier %s failed for incident %s (level %d), falling back",
			ch.Name(), p.IncidentUUID, p.Level)
	}

	result.FallbackActivated = len(result.Attempts) > 1
	result.CriticalFailure = !result.AnySuccess && result.TiersAttempted >= criticalFailureThreshold

	return result
}

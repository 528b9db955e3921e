package jobs

import (
	"context"
	"log"
	"time"

	"github.com/watchtower-ops/watchtower/internal/escalation"
)

// EscalationMonitor periodically runs the escalation check so deployments
// without an external cron still escalate overdue incidents. It is a plain
// caller of the engine; all escalation logic lives in the engine itself.
type EscalationMonitor struct {
	engine *escalation.Engine
}

// NewEscalationMonitor creates a new escalation monitor
func NewEscalationMonitor(engine *escalation.Engine) *EscalationMonitor {
	return &EscalationMonitor{engine: engine}
}

// CheckOnce runs a single escalation sweep across all events
func (m *EscalationMonitor) CheckOnce(ctx context.Context) (*escalation.CheckReport, error) {
	return m.engine.RunCheck(ctx, "", false, time.Now())
}

// Start begins the periodic monitoring
func (m *EscalationMonitor) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := m.CheckOnce(context.Background())
			if err != nil {
				log.Printf("Escalation monitor error: %v", err)
			} else if report.EscalatedIncidents > 0 || report.Errors > 0 {
				log.Printf("Escalation monitor: %d due, %d escalated, %d errors",
					report.DueIncidents, report.EscalatedIncidents, report.Errors)
			}
		case <-stop:
			log.Println("Escalation monitor stopped")
			return
		}
	}
}

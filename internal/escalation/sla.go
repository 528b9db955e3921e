// Package escalation implements the escalation and failover-notification
// engine: SLA resolution, the per-incident escalation state machine, the
// fallback notification cascade, emergency failover, and audit reporting.
package escalation

import (
	"time"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// SLA is the resolved escalation rule for an (incident type, priority) pair
type SLA struct {
	TimeoutMinutes  int
	MaxLevels       int
	SupervisorRoles []string
	AutoEscalate    bool
}

// Built-in default timeouts per priority, used when no explicit rule exists
var defaultTimeoutMinutes = map[database.Priority]int{
	database.PriorityUrgent: 2,
	database.PriorityHigh:   5,
	database.PriorityMedium: 15,
	database.PriorityLow:    30,
}

// DefaultSupervisorRoles is the role set used when no explicit rule exists
var DefaultSupervisorRoles = []string{"supervisor", "manager", "admin"}

// SLAResolver maps (incident type, priority) to an escalation rule
type SLAResolver struct {
	db *gorm.DB
}

// NewSLAResolver creates a new SLA resolver
func NewSLAResolver(db *gorm.DB) *SLAResolver {
	return &SLAResolver{db: db}
}

// Resolve looks up the explicit rule for (incidentType, priority) and falls
// back to the built-in default table on a miss. It never fails: a lookup
// error degrades to the defaults so escalation can always proceed.
func (r *SLAResolver) Resolve(incidentType string, priority database.Priority) SLA {
	var rule database.SLAConfig
	err := r.db.Where("incident_type = ? AND priority_level = ?", incidentType, priority).
		First(&rule).Error
	if err != nil {
		// Missing rule and degraded lookup both yield a usable config.
		return r.defaults(priority)
	}

	sla := SLA{
		TimeoutMinutes:  rule.EscalationTimeoutMinutes,
		MaxLevels:       rule.EscalationLevels,
		SupervisorRoles: rule.SupervisorRoles,
		AutoEscalate:    rule.AutoEscalate,
	}
	if sla.TimeoutMinutes <= 0 {
		sla.TimeoutMinutes = defaultTimeout(priority)
	}
	if sla.MaxLevels <= 0 {
		sla.MaxLevels = 1
	}
	if len(sla.SupervisorRoles) == 0 {
		sla.SupervisorRoles = DefaultSupervisorRoles
	}
	return sla
}

func (r *SLAResolver) defaults(priority database.Priority) SLA {
	return SLA{
		TimeoutMinutes:  defaultTimeout(priority),
		MaxLevels:       1,
		SupervisorRoles: DefaultSupervisorRoles,
		AutoEscalate:    true,
	}
}

func defaultTimeout(priority database.Priority) int {
	if m, ok := defaultTimeoutMinutes[priority]; ok {
		return m
	}
	return defaultTimeoutMinutes[database.PriorityMedium]
}

// NextEscalationAt computes the next escalation deadline. Pure function of
// its inputs; callers pass now explicitly so tests stay deterministic.
func NextEscalationAt(now time.Time, timeoutMinutes, extraMinutes int) time.Time {
	return now.Add(time.Duration(timeoutMinutes+extraMinutes) * time.Minute)
}

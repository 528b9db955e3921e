package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StringList is a custom type stored as a JSON array in a text column
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Contains reports whether the list contains s
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Priority represents incident priority levels
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriorities returns all known priority levels
func ValidPriorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

// IncidentStatus represents the lifecycle status of an incident
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "open"
	IncidentStatusInProgress IncidentStatus = "in_progress"
	IncidentStatusResolved   IncidentStatus = "resolved"
	IncidentStatusClosed     IncidentStatus = "closed"
)

// Incident is owned by the surrounding CRUD system; the engine only reads it
// and updates the escalation fields.
type Incident struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            string         `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	EventID         string         `gorm:"size:36;not null;index" json:"event_id"`
	IncidentType    string         `gorm:"type:varchar(64);not null;index" json:"incident_type"`
	Priority        Priority       `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status          IncidentStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	EscalationLevel int            `gorm:"not null;default:0" json:"escalation_level"`
	Escalated       bool           `gorm:"not null;default:false" json:"escalated"`
	EscalateAt      *time.Time     `gorm:"index" json:"escalate_at,omitempty"`
	EscalationNotes string         `gorm:"type:text" json:"escalation_notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsActionable returns true if the incident status is eligible for escalation
func (i *Incident) IsActionable() bool {
	return i.Status == IncidentStatusOpen || i.Status == IncidentStatusInProgress
}

func (Incident) TableName() string {
	return "incidents"
}

// SLAConfig is an explicit escalation rule keyed by (incident_type, priority_level).
// Absence of a rule is not an error; the resolver falls back to built-in defaults.
type SLAConfig struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	IncidentType             string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_sla_type_priority" json:"incident_type"`
	PriorityLevel            Priority   `gorm:"type:varchar(20);not null;uniqueIndex:idx_sla_type_priority" json:"priority_level"`
	EscalationTimeoutMinutes int        `gorm:"not null" json:"escalation_timeout_minutes"`
	EscalationLevels         int        `gorm:"not null;default:1" json:"escalation_levels"`
	SupervisorRoles          StringList `gorm:"type:text" json:"supervisor_roles"`
	AutoEscalate             bool       `gorm:"not null;default:true" json:"auto_escalate"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

func (SLAConfig) TableName() string {
	return "sla_configs"
}

// EscalationEvent is the append-only audit record, one row per level
// transition. Rows are never updated except to backfill ResolutionTime once
// a human resolves the incident.
type EscalationEvent struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	IncidentID         uint       `gorm:"not null;index" json:"incident_id"`
	EscalationLevel    int        `gorm:"not null" json:"escalation_level"`
	EscalatedAt        time.Time  `gorm:"not null" json:"escalated_at"`
	EscalatedBy        *string    `gorm:"type:varchar(128)" json:"escalated_by,omitempty"` // nil = automatic
	SupervisorNotified bool       `gorm:"not null;default:false" json:"supervisor_notified"`
	ResolutionTime     *time.Time `json:"resolution_time,omitempty"`
	Notes              string     `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time  `json:"created_at"`

	Incident Incident `gorm:"foreignKey:IncidentID" json:"-"`
}

func (EscalationEvent) TableName() string {
	return "escalation_events"
}

// ContactMethod is a way of reaching a supervisor or emergency contact
type ContactMethod string

const (
	ContactMethodEmail ContactMethod = "email"
	ContactMethodSMS   ContactMethod = "sms"
	ContactMethodPhone ContactMethod = "phone"
)

// Supervisor is an on-duty staff member resolvable by the directory.
// The roster itself is owned by the surrounding system; the engine only
// filters it by event, role and availability.
type Supervisor struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	EventID        string     `gorm:"size:36;not null;index" json:"event_id"`
	Name           string     `gorm:"type:varchar(128);not null" json:"name"`
	Role           string     `gorm:"type:varchar(64);not null;index" json:"role"`
	Callsign       string     `gorm:"type:varchar(32)" json:"callsign"`
	Email          string     `gorm:"type:varchar(255)" json:"email"`
	Phone          string     `gorm:"type:varchar(32)" json:"phone"`
	ContactMethods StringList `gorm:"type:text" json:"contact_methods"`
	Available      bool       `gorm:"not null;default:true;index" json:"available"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasContactMethod reports whether the supervisor can be reached via method
func (s *Supervisor) HasContactMethod(method ContactMethod) bool {
	return s.ContactMethods.Contains(string(method))
}

func (Supervisor) TableName() string {
	return "supervisors"
}

// EmergencyContact is distinct from the supervisor roster and is only used
// by the failover controller after a critical notification failure.
type EmergencyContact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;not null;index" json:"event_id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	SMSNumber string    `gorm:"type:varchar(32)" json:"sms_number"`
	Rank      int       `gorm:"not null;default:0" json:"rank"` // contact order, lowest first
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmergencyContact) TableName() string {
	return "emergency_contacts"
}

// EmergencyStatus represents the state of an emergency log entry
type EmergencyStatus string

const (
	EmergencyStatusActive   EmergencyStatus = "active"
	EmergencyStatusResolved EmergencyStatus = "resolved"
)

// EmergencyType values recorded in emergency logs
const (
	EmergencyTypeNotificationFailure = "notification_failure"
)

// EmergencyLog is append-only; one row is created per critical failure.
type EmergencyLog struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	IncidentID      uint            `gorm:"not null;index" json:"incident_id"`
	EventID         string          `gorm:"size:36;index" json:"event_id"`
	EscalationLevel int             `gorm:"not null" json:"escalation_level"`
	EmergencyType   string          `gorm:"type:varchar(64);not null" json:"emergency_type"`
	TriggeredAt     time.Time       `gorm:"not null" json:"triggered_at"`
	Status          EmergencyStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BeforeCreate hook to set TriggeredAt
func (e *EmergencyLog) BeforeCreate(tx *gorm.DB) error {
	if e.TriggeredAt.IsZero() {
		e.TriggeredAt = time.Now()
	}
	return nil
}

func (EmergencyLog) TableName() string {
	return "emergency_logs"
}

// Notification is a persisted in-app notification record. Creating these
// rows is the second cascade tier; the surrounding application renders them.
type Notification struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SupervisorID    uint      `gorm:"not null;index" json:"supervisor_id"`
	IncidentID      uint      `gorm:"not null;index" json:"incident_id"`
	EscalationLevel int       `gorm:"not null" json:"escalation_level"`
	Message         string    `gorm:"type:text;not null" json:"message"`
	Read            bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

package escalation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// ruleFile is the YAML shape for seeded escalation rules
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	IncidentType    string   `yaml:"incident_type"`
	Priority        string   `yaml:"priority"`
	TimeoutMinutes  int      `yaml:"timeout_minutes"`
	MaxLevels       int      `yaml:"max_levels"`
	SupervisorRoles []string `yaml:"supervisor_roles"`
	AutoEscalate    *bool    `yaml:"auto_escalate"`
}

// SeedRulesFromFile loads escalation rules from a YAML file and upserts them
// keyed by (incident_type, priority). Existing rules for the same key are
// overwritten; rules not present in the file are left alone. Returns the
// number of rules applied.
func SeedRulesFromFile(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read SLA rules file: %w", err)
	}
	return SeedRules(db, data)
}

// SeedRules applies YAML rule data to the database
func SeedRules(db *gorm.DB, data []byte) (int, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse SLA rules: %w", err)
	}

	applied := 0
	for i, entry := range file.Rules {
		if entry.IncidentType == "" {
			return applied, fmt.Errorf("rule %d: incident_type is required", i)
		}
		priority := database.Priority(entry.Priority)
		if !validPriority(priority) {
			return applied, fmt.Errorf("rule %d: unknown priority %q", i, entry.Priority)
		}
		if entry.TimeoutMinutes <= 0 {
			return applied, fmt.Errorf("rule %d: timeout_minutes must be positive", i)
		}

		rule := database.SLAConfig{
			IncidentType:             entry.IncidentType,
			PriorityLevel:            priority,
			EscalationTimeoutMinutes: entry.TimeoutMinutes,
			EscalationLevels:         entry.MaxLevels,
			SupervisorRoles:          entry.SupervisorRoles,
			AutoEscalate:             entry.AutoEscalate == nil || *entry.AutoEscalate,
		}
		if rule.EscalationLevels <= 0 {
			rule.EscalationLevels = 1
		}
		if len(rule.SupervisorRoles) == 0 {
			rule.SupervisorRoles = DefaultSupervisorRoles
		}

		var existing database.SLAConfig
		err := db.Where("incident_type = ? AND priority_level = ?", rule.IncidentType, rule.PriorityLevel).
			First(&existing).Error
		if err == nil {
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
			if err := db.Save(&rule).Error; err != nil {
				return applied, fmt.Errorf("rule %d: %w", i, err)
			}
		} else if err == gorm.ErrRecordNotFound {
			if err := db.Create(&rule).Error; err != nil {
				return applied, fmt.Errorf("rule %d: %w", i, err)
			}
		} else {
			return applied, fmt.Errorf("rule %d: %w", i, err)
		}
		applied++
	}

	return applied, nil
}

func validPriority(p database.Priority) bool {
	for _, v := range database.ValidPriorities() {
		if v == p {
			return true
		}
	}
	return false
}

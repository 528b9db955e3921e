package notify

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/database"
)

// RecordChannel persists in-app notification rows for every supervisor. It
// is the one channel the engine owns end to end: success means the rows are
// committed and the surrounding application will render them.
type RecordChannel struct {
	db *gorm.DB
}

// NewRecordChannel creates the tier-2 persisted record channel
func NewRecordChannel(db *gorm.DB) *RecordChannel {
	return &RecordChannel{db: db}
}

// Name returns the channel method name
func (c *RecordChannel) Name() string {
	return MethodPersistedRecord
}

// Eligible requires at least one resolved supervisor
func (c *RecordChannel) Eligible(p *Payload) bool {
	return len(p.Supervisors) > 0
}

// Send inserts one notification row per supervisor in a single transaction.
// This tier is a single call covering all supervisors, so it produces a
// single attempt record.
func (c *RecordChannel) Send(ctx context.Context, p *Payload) []Attempt {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sup := range p.Supervisors {
			row := database.Notification{
				SupervisorID:    sup.ID,
				IncidentID:      p.IncidentID,
				EscalationLevel: p.Level,
				Message:         p.Message,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})

	recipient := fmt.Sprintf("%d supervisors", len(p.Supervisors))
	return []Attempt{attempt(MethodPersistedRecord, recipient, err)}
}

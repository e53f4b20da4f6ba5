package models

import "time"

// AuditEntry records a scheduling or adaptation action for review.
type AuditEntry struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	StudentID string    `gorm:"type:uuid;index"`
	Actor     string    `gorm:"index"`
	Action    string    `gorm:"type:varchar(64);index"`
	Detail    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

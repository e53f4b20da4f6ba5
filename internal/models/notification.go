package models

import "time"

// NotificationKind categorizes outbound notifications.
type NotificationKind string

const (
	NotificationReminder       NotificationKind = "reminder"
	NotificationRestSuggestion NotificationKind = "rest_suggestion"
	NotificationWorkloadChange NotificationKind = "workload_change"
	NotificationConflict       NotificationKind = "conflict"
	NotificationRecommendation NotificationKind = "recommendation"
)

// Notification is a message queued for a student or tutor.
type Notification struct {
	ID        string           `gorm:"type:uuid;primaryKey"`
	StudentID string           `gorm:"type:uuid;index"`
	Kind      NotificationKind `gorm:"type:varchar(32);index"`
	Title     string
	Body      string `gorm:"type:text"`
	ReadAt    *time.Time
	CreatedAt time.Time
}

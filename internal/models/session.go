package models

import "time"

// StudySession is the completed-work record the adaptive services read.
// One row per worked plan, whether or not it finished.
type StudySession struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StudentID string `gorm:"type:uuid;index"`
	PlanID    string `gorm:"type:uuid;index"`
	Date      string `gorm:"type:varchar(10);index"`
	Subject   string `gorm:"index"`

	StartedAt *time.Time
	EndedAt   *time.Time

	EstimatedMinutes int
	ActualMinutes    int
	Completed        bool

	// Accuracy is the fraction of review questions answered correctly,
	// 0 when the session had none.
	Accuracy  float64
	CreatedAt time.Time
}

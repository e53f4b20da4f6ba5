package models

import "time"

// ContentType distinguishes plan material.
type ContentType string

const (
	ContentLecture ContentType = "lecture"
	ContentBook    ContentType = "book"
	ContentCustom  ContentType = "custom"
)

// PlanStatus tracks plan lifecycle.
type PlanStatus string

const (
	PlanPlanned    PlanStatus = "planned"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanSkipped    PlanStatus = "skipped"
)

// StudyPlan is one scheduled unit of study on a calendar day.
// StartTime and EndTime are "HH:mm" strings; nil means the plan has a
// day and block but no assigned clock time yet.
type StudyPlan struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	StudentID  string `gorm:"type:uuid;index"`
	PlanDate   string `gorm:"type:varchar(10);index"`
	BlockIndex int

	Subject     string      `gorm:"index"`
	ContentType ContentType `gorm:"type:varchar(16)"`
	ContentID   string      `gorm:"type:uuid;index"`

	// Inclusive content ranges. Episodes for lectures, pages for books.
	EpisodeStart int
	EpisodeEnd   int
	PageStart    int
	PageEnd      int

	StartTime *string `gorm:"type:varchar(8)"`
	EndTime   *string `gorm:"type:varchar(8)"`

	DurationMinutes  int
	EstimatedMinutes int
	ActualMinutes    int

	Status          PlanStatus `gorm:"type:varchar(16);index"`
	IsReschedulable bool
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasTimes reports whether both clock times are assigned.
func (p *StudyPlan) HasTimes() bool {
	return p.StartTime != nil && p.EndTime != nil
}

package models

import (
	"time"
)

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleTutor   RoleName = "tutor"
	RoleStudent RoleName = "student"
)

// User represents an authenticated account.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Role      RoleName `gorm:"type:varchar(16)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Student is the subject of scheduling and adaptation.
type Student struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;index"`
	Name      string `gorm:"index"`
	Grade     string `gorm:"type:varchar(16)"`
	Timezone  string `gorm:"type:varchar(32)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is a recurring study window in a student's weekly timetable.
// Times are stored as "HH:mm" strings, dates as "YYYY-MM-DD".
type TimeSlot struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	StudentID       string `gorm:"type:uuid;index"`
	DayOfWeek       int    `gorm:"index"`
	BlockIndex      int
	StartTime       string `gorm:"type:varchar(8)"`
	EndTime         string `gorm:"type:varchar(8)"`
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExclusionDate removes a calendar day from planning.
type ExclusionDate struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StudentID string `gorm:"type:uuid;index"`
	Date      string `gorm:"type:varchar(10);index"`
	Reason    string
	CreatedAt time.Time
}

package models

import "time"

// Default sizing used when content carries no duration metadata.
const (
	DefaultEpisodeMinutes = 30
	DefaultMinutesPerPage = 2
	DefaultUnitMinutes    = 60
)

// Lecture is episodic video content.
type Lecture struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Title          string `gorm:"index"`
	Subject        string `gorm:"index"`
	TotalEpisodes  int
	EpisodeMinutes int
	Episodes       []LectureEpisode
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LectureEpisode carries a per-episode duration override.
type LectureEpisode struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	LectureID       string `gorm:"type:uuid;index"`
	EpisodeNumber   int
	DurationMinutes int
}

// Book is page-based content.
type Book struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Title          string `gorm:"index"`
	Subject        string `gorm:"index"`
	TotalPages     int
	MinutesPerPage int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EpisodeDuration returns the duration for an episode number, falling
// back to the lecture default and then the global default.
func (l *Lecture) EpisodeDuration(episode int) int {
	for _, ep := range l.Episodes {
		if ep.EpisodeNumber == episode && ep.DurationMinutes > 0 {
			return ep.DurationMinutes
		}
	}
	if l.EpisodeMinutes > 0 {
		return l.EpisodeMinutes
	}
	return DefaultEpisodeMinutes
}

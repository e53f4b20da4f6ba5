/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package fatigue models study-load fatigue from recent session
// history and suggests rest days before a student burns out.
package fatigue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

// IntensityLevel grades the current study load.
type IntensityLevel string

const (
	IntensityLow      IntensityLevel = "low"
	IntensityMedium   IntensityLevel = "medium"
	IntensityHigh     IntensityLevel = "high"
	IntensityOverload IntensityLevel = "overload"
)

// Daily minutes above this level count toward fatigue.
const DailyLoadThreshold = 180

const lookbackDays = 14

// Metrics is the computed fatigue state.
type Metrics struct {
	FatigueScore                 float64        `json:"fatigue_score"` // 0-100
	IntensityLevel               IntensityLevel `json:"intensity_level"`
	ConsecutiveDays              int            `json:"consecutive_days"`
	AverageDailyMinutes          float64        `json:"average_daily_minutes"`
	SuggestedIntensityAdjustment float64        `json:"suggested_intensity_adjustment"`
}

// RestSuggestion proposes a rest day.
type RestSuggestion struct {
	Date     string `json:"date"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"` // high | medium | low
}

// Service computes fatigue metrics.
type Service struct {
	db             *gorm.DB
	logger         zerolog.Logger
	now            func() time.Time
	dailyThreshold int
}

// New creates a fatigue service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:             db,
		logger:         logger.With().Str("component", "fatigue").Logger(),
		now:            time.Now,
		dailyThreshold: DailyLoadThreshold,
	}
}

// SetDailyThreshold overrides the minutes-per-day level that counts a
// day as overloaded. Non-positive values are ignored.
func (s *Service) SetDailyThreshold(minutes int) {
	if minutes > 0 {
		s.dailyThreshold = minutes
	}
}

// Analyze computes fatigue metrics over the recent lookback window.
// A student with no recent sessions scores zero.
func (s *Service) Analyze(ctx context.Context, studentID string) (*Metrics, error) {
	since := s.now().AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	var sessions []models.StudySession
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND date >= ?", studentID, since).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	dailyMinutes := make(map[string]int)
	for _, sess := range sessions {
		if sess.ActualMinutes > 0 {
			dailyMinutes[sess.Date] += sess.ActualMinutes
		}
	}

	metrics := &Metrics{IntensityLevel: IntensityLow}
	if len(dailyMinutes) == 0 {
		return metrics, nil
	}

	dates := make([]string, 0, len(dailyMinutes))
	total := 0
	for date, minutes := range dailyMinutes {
		dates = append(dates, date)
		total += minutes
	}
	sort.Strings(dates)

	metrics.ConsecutiveDays = trailingStreak(dates, s.now())
	metrics.AverageDailyMinutes = float64(total) / float64(len(dailyMinutes))

	// Streak and sustained load each contribute; heavy days past the
	// daily threshold dominate.
	score := float64(metrics.ConsecutiveDays) * 8
	if metrics.AverageDailyMinutes > 120 {
		score += (metrics.AverageDailyMinutes - 120) / 3
	}
	overloadedDays := 0
	for _, minutes := range dailyMinutes {
		if minutes > s.dailyThreshold {
			overloadedDays++
		}
	}
	score += float64(overloadedDays) * 6
	if score > 100 {
		score = 100
	}
	metrics.FatigueScore = score

	switch {
	case score < 30:
		metrics.IntensityLevel = IntensityLow
		metrics.SuggestedIntensityAdjustment = 0.1
	case score < 55:
		metrics.IntensityLevel = IntensityMedium
	case score < 80:
		metrics.IntensityLevel = IntensityHigh
		metrics.SuggestedIntensityAdjustment = -0.15
	default:
		metrics.IntensityLevel = IntensityOverload
		metrics.SuggestedIntensityAdjustment = -0.3
	}

	return metrics, nil
}

// SuggestRestDays proposes rest days for the coming week given the
// current metrics. Dates are "YYYY-MM-DD" in ascending order.
func (s *Service) SuggestRestDays(metrics *Metrics, nextDays []string) []RestSuggestion {
	if metrics == nil || len(nextDays) == 0 {
		return nil
	}

	var suggestions []RestSuggestion
	switch metrics.IntensityLevel {
	case IntensityOverload:
		suggestions = append(suggestions, RestSuggestion{
			Date:     nextDays[0],
			Reason:   fmt.Sprintf("sustained overload after %d consecutive study days", metrics.ConsecutiveDays),
			Priority: "high",
		})
		if len(nextDays) > 3 {
			suggestions = append(suggestions, RestSuggestion{
				Date:     nextDays[3],
				Reason:   "second recovery day to break the overload cycle",
				Priority: "medium",
			})
		}
	case IntensityHigh:
		day := nextDays[0]
		if len(nextDays) > 2 {
			day = nextDays[2]
		}
		suggestions = append(suggestions, RestSuggestion{
			Date:     day,
			Reason:   "high fatigue score, schedule a lighter day",
			Priority: "medium",
		})
	}
	return suggestions
}

// trailingStreak counts consecutive study days ending today or
// yesterday.
func trailingStreak(sortedDates []string, now time.Time) int {
	if len(sortedDates) == 0 {
		return 0
	}

	last, err := time.Parse("2006-01-02", sortedDates[len(sortedDates)-1])
	if err != nil {
		return 0
	}
	today := now.Truncate(24 * time.Hour)
	if today.Sub(last).Hours() > 48 {
		return 0
	}

	streak := 1
	for i := len(sortedDates) - 1; i > 0; i-- {
		cur, err1 := time.Parse("2006-01-02", sortedDates[i])
		prev, err2 := time.Parse("2006-01-02", sortedDates[i-1])
		if err1 != nil || err2 != nil {
			break
		}
		if cur.Sub(prev).Hours() != 24 {
			break
		}
		streak++
	}
	return streak
}

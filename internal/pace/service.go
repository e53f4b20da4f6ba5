/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pace estimates a student's learning velocity from completed
// session history using an exponentially weighted moving average.
package pace

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

const (
	// EWMA smoothing factor.
	Alpha = 0.3
	// Minimum completed sessions before the EWMA is trusted.
	MinDataPoints = 5
	// Velocity used when history is too thin.
	DefaultVelocity = 1.0

	MinAdjustedMinutes = 15
)

// TimePeriod buckets the day for period-specific velocities.
type TimePeriod string

const (
	PeriodMorning   TimePeriod = "morning"   // 06:00-12:00
	PeriodAfternoon TimePeriod = "afternoon" // 12:00-18:00
	PeriodEvening   TimePeriod = "evening"   // 18:00-22:00
	PeriodNight     TimePeriod = "night"
)

// Default period velocities used until a period has its own data.
var periodDefaults = map[TimePeriod]float64{
	PeriodMorning:   1.1,
	PeriodAfternoon: 1.0,
	PeriodEvening:   0.9,
	PeriodNight:     0.8,
}

// Confidence grades how much history backs an analysis.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"    // fewer than 10 points
	ConfidenceMedium Confidence = "medium" // fewer than 30 points
	ConfidenceHigh   Confidence = "high"
)

// Analysis is the computed pace profile for a student.
type Analysis struct {
	Velocity         float64                `json:"velocity"`
	PeriodVelocities map[TimePeriod]float64 `json:"period_velocities"`
	DataPoints       int                    `json:"data_points"`
	Confidence       Confidence             `json:"confidence"`
}

// Service computes pace analyses.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
	alpha  float64
}

// New creates a pace service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "pace").Logger(),
		alpha:  Alpha,
	}
}

// SetAlpha overrides the EWMA smoothing factor. Values outside (0, 1)
// are ignored.
func (s *Service) SetAlpha(alpha float64) {
	if alpha > 0 && alpha < 1 {
		s.alpha = alpha
	}
}

// Analyze computes the student's velocity profile. With fewer than
// MinDataPoints usable sessions it returns the default profile rather
// than an error.
func (s *Service) Analyze(ctx context.Context, studentID string) (*Analysis, error) {
	var sessions []models.StudySession
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND completed = ?", studentID, true).
		Order("date ASC, created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	usable := make([]models.StudySession, 0, len(sessions))
	for _, sess := range sessions {
		if sess.EstimatedMinutes > 0 && sess.ActualMinutes > 0 {
			usable = append(usable, sess)
		}
	}

	analysis := &Analysis{
		Velocity:         DefaultVelocity,
		PeriodVelocities: defaultPeriods(),
		DataPoints:       len(usable),
		Confidence:       confidenceFor(len(usable)),
	}

	if len(usable) < MinDataPoints {
		s.logger.Debug().
			Str("student_id", studentID).
			Int("data_points", len(usable)).
			Msg("insufficient pace history, using defaults")
		return analysis, nil
	}

	analysis.Velocity = ewmaVelocity(usable, s.alpha)

	byPeriod := make(map[TimePeriod][]models.StudySession)
	for _, sess := range usable {
		byPeriod[sessionPeriod(sess)] = append(byPeriod[sessionPeriod(sess)], sess)
	}
	for period, group := range byPeriod {
		if len(group) >= MinDataPoints {
			analysis.PeriodVelocities[period] = ewmaVelocity(group, s.alpha)
		}
	}

	return analysis, nil
}

// AdjustedDuration scales a base duration by velocity, clamped to
// [MinAdjustedMinutes, 2×base].
func AdjustedDuration(baseMinutes int, velocity float64) int {
	if baseMinutes <= 0 {
		return 0
	}
	if velocity <= 0 {
		velocity = DefaultVelocity
	}

	adjusted := int(float64(baseMinutes)/velocity + 0.5)
	if adjusted < MinAdjustedMinutes {
		adjusted = MinAdjustedMinutes
	}
	if adjusted > 2*baseMinutes {
		adjusted = 2 * baseMinutes
	}
	return adjusted
}

// PeriodOf buckets an hour of day.
func PeriodOf(hour int) TimePeriod {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// ewmaVelocity folds per-session velocity (estimated/actual) into an
// EWMA seeded with the first observation.
func ewmaVelocity(sessions []models.StudySession, alpha float64) float64 {
	velocity := float64(sessions[0].EstimatedMinutes) / float64(sessions[0].ActualMinutes)
	for _, sess := range sessions[1:] {
		v := float64(sess.EstimatedMinutes) / float64(sess.ActualMinutes)
		velocity = alpha*v + (1-alpha)*velocity
	}
	return velocity
}

func sessionPeriod(sess models.StudySession) TimePeriod {
	if sess.StartedAt == nil {
		return PeriodAfternoon
	}
	return PeriodOf(sess.StartedAt.Hour())
}

func defaultPeriods() map[TimePeriod]float64 {
	out := make(map[TimePeriod]float64, len(periodDefaults))
	for k, v := range periodDefaults {
		out[k] = v
	}
	return out
}

func confidenceFor(points int) Confidence {
	switch {
	case points < 10:
		return ConfidenceLow
	case points < 30:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

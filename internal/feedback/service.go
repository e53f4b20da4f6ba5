/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package feedback produces same-day feedback on study efficiency and
// workload, suitable for pushing to the student as they work.
package feedback

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

// EfficiencyRating bands the actual/expected time ratio. Lower is
// better: finishing under the estimate rates excellent.
type EfficiencyRating string

const (
	RatingExcellent EfficiencyRating = "excellent" // ratio <= 0.8
	RatingGood      EfficiencyRating = "good"      // ratio <= 1.0
	RatingAverage   EfficiencyRating = "average"   // ratio <= 1.3
	RatingPoor      EfficiencyRating = "poor"
)

// Minutes of work in one day beyond which rest is suggested.
const FatigueMinutesPerDay = 180

// Workload adjustment factors.
const (
	WorkloadIncrease = 1.10 // completion >= 100%
	WorkloadDecrease = 0.80 // completion < 50% with enough plans
)

const minPlansForDecrease = 3

// Feedback is the generated daily feedback.
type Feedback struct {
	Date             string           `json:"date"`
	EfficiencyRatio  float64          `json:"efficiency_ratio"`
	EfficiencyRating EfficiencyRating `json:"efficiency_rating"`
	CompletionRate   float64          `json:"completion_rate"` // 0-100
	MinutesStudied   int              `json:"minutes_studied"`
	SuggestRest      bool             `json:"suggest_rest"`
	WorkloadFactor   float64          `json:"workload_factor"`
	Messages         []string         `json:"messages"`
}

// Service generates realtime feedback.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger

	fatigueMinutes int
	increase       float64
	decrease       float64
	minPlans       int
}

// New creates a feedback service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:             db,
		logger:         logger.With().Str("component", "feedback").Logger(),
		fatigueMinutes: FatigueMinutesPerDay,
		increase:       WorkloadIncrease,
		decrease:       WorkloadDecrease,
		minPlans:       minPlansForDecrease,
	}
}

// SetFatigueThreshold overrides the daily minutes past which rest is
// suggested. Non-positive values are ignored.
func (s *Service) SetFatigueThreshold(minutes int) {
	if minutes > 0 {
		s.fatigueMinutes = minutes
	}
}

// SetWorkloadFactors overrides the workload adjustment factors. The
// increase must stay above 1.0 and the decrease below it; out of range
// values keep the current factor.
func (s *Service) SetWorkloadFactors(increase, decrease float64) {
	if increase > 1.0 {
		s.increase = increase
	}
	if decrease > 0 && decrease < 1.0 {
		s.decrease = decrease
	}
}

// SetMinPlansForDecrease overrides how many plans a day needs before a
// low completion rate eases the next day's workload.
func (s *Service) SetMinPlansForDecrease(n int) {
	if n > 0 {
		s.minPlans = n
	}
}

// Generate builds feedback for a student's day. Days without any
// worked session produce neutral feedback.
func (s *Service) Generate(ctx context.Context, studentID, date string) (*Feedback, error) {
	var sessions []models.StudySession
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, date).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	var plans []models.StudyPlan
	err = s.db.WithContext(ctx).
		Where("student_id = ? AND plan_date = ?", studentID, date).
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}

	fb := &Feedback{
		Date:             date,
		EfficiencyRating: RatingGood,
		WorkloadFactor:   1.0,
	}

	var estimated, actual int
	for _, sess := range sessions {
		fb.MinutesStudied += sess.ActualMinutes
		if sess.EstimatedMinutes > 0 && sess.ActualMinutes > 0 {
			estimated += sess.EstimatedMinutes
			actual += sess.ActualMinutes
		}
	}

	if estimated > 0 {
		fb.EfficiencyRatio = float64(actual) / float64(estimated)
		fb.EfficiencyRating = rateEfficiency(fb.EfficiencyRatio)
	}

	completed := 0
	for _, p := range plans {
		if p.Status == models.PlanCompleted {
			completed++
		}
	}
	if len(plans) > 0 {
		fb.CompletionRate = 100 * float64(completed) / float64(len(plans))
	}

	if fb.MinutesStudied > s.fatigueMinutes {
		fb.SuggestRest = true
		fb.Messages = append(fb.Messages,
			fmt.Sprintf("studied %d minutes today, take a break before the next session", fb.MinutesStudied))
	}

	switch {
	case len(plans) > 0 && fb.CompletionRate >= 100:
		fb.WorkloadFactor = s.increase
		fb.Messages = append(fb.Messages, "all plans done, tomorrow's workload can grow a little")
	case len(plans) >= s.minPlans && fb.CompletionRate < 50:
		fb.WorkloadFactor = s.decrease
		fb.Messages = append(fb.Messages, "under half of today's plans finished, easing tomorrow's workload")
	}

	switch fb.EfficiencyRating {
	case RatingExcellent:
		fb.Messages = append(fb.Messages, "finishing well under estimates, estimates will tighten")
	case RatingPoor:
		fb.Messages = append(fb.Messages, "sessions running long, consider shorter units")
	}

	return fb, nil
}

func rateEfficiency(ratio float64) EfficiencyRating {
	switch {
	case ratio <= 0.8:
		return RatingExcellent
	case ratio <= 1.0:
		return RatingGood
	case ratio <= 1.3:
		return RatingAverage
	default:
		return RatingPoor
	}
}

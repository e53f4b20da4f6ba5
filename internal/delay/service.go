/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package delay analyzes completion delay patterns and predicts
// whether a student will keep up with their plan.
package delay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

// Trend describes the recent completion direction.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Trend changes smaller than this band count as stable.
const trendBand = 0.05

// Factor weights applied to the base completion score during
// prediction.
const (
	weightDeclining        = -15
	weightImproving        = 5
	weightOverload         = -15
	weightDifficultySpike  = -10
	weightWeakSubjectHeavy = -10
	weightStreakRisk       = -8
	weightConsistent       = 5
	weightBalanced         = 5
	weightLowRecent        = -20
)

// Pattern summarizes how a student's completions lag their plan.
type Pattern struct {
	AverageDelayDays            float64 `json:"average_delay_days"`
	ConsecutiveIncompleteStreak int     `json:"consecutive_incomplete_streak"`
	RecentTrend                 Trend   `json:"recent_trend"`
	CompletionRate              float64 `json:"completion_rate"` // 0-100
	DataPoints                  int     `json:"data_points"`
}

// Prediction scores the likelihood of on-time completion.
type Prediction struct {
	Score      float64  `json:"score"` // 0-100
	Confidence float64  `json:"confidence"`
	Factors    []string `json:"factors"`
}

// Service computes delay patterns and completion predictions.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a delay service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "delay").Logger(),
	}
}

// AnalyzePattern computes the student's delay pattern from plan
// history. Plans without a date are skipped silently.
func (s *Service) AnalyzePattern(ctx context.Context, studentID string) (*Pattern, error) {
	var plans []models.StudyPlan
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("plan_date ASC, created_at ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}

	pattern := &Pattern{RecentTrend: TrendStable}

	var (
		delaySum   float64
		delayCount int
		completed  int
		usable     []models.StudyPlan
	)
	for _, p := range plans {
		if p.PlanDate == "" {
			continue
		}
		usable = append(usable, p)
		if p.Status == models.PlanCompleted {
			completed++
			if p.CompletedAt != nil {
				if planDate, err := time.Parse("2006-01-02", p.PlanDate); err == nil {
					delay := p.CompletedAt.Sub(planDate).Hours() / 24
					if delay > 0 {
						delaySum += delay
					}
					delayCount++
				}
			}
		}
	}

	pattern.DataPoints = len(usable)
	if len(usable) == 0 {
		return pattern, nil
	}

	pattern.CompletionRate = 100 * float64(completed) / float64(len(usable))
	if delayCount > 0 {
		pattern.AverageDelayDays = delaySum / float64(delayCount)
	}

	// Streak of most recent unfinished plans.
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].PlanDate < usable[j].PlanDate })
	for i := len(usable) - 1; i >= 0; i-- {
		if usable[i].Status == models.PlanCompleted {
			break
		}
		pattern.ConsecutiveIncompleteStreak++
	}

	pattern.RecentTrend = recentTrend(usable)
	return pattern, nil
}

// Signals carries workload context from other analyzers into the
// prediction.
type Signals struct {
	Overloaded       bool
	DifficultySpike  bool
	WeakSubjectShare float64 // fraction of upcoming plans in weak subjects
	Balanced         bool
}

// Predict scores on-time completion from the pattern alone.
func (s *Service) Predict(ctx context.Context, studentID string) (*Prediction, error) {
	return s.PredictWithSignals(ctx, studentID, Signals{})
}

// PredictWithSignals scores on-time completion from the delay pattern
// plus workload signals. The base score is the completion rate,
// adjusted by factor weights and clamped to [0, 100].
func (s *Service) PredictWithSignals(ctx context.Context, studentID string, sig Signals) (*Prediction, error) {
	pattern, err := s.AnalyzePattern(ctx, studentID)
	if err != nil {
		return nil, err
	}

	score := pattern.CompletionRate
	var factors []string

	apply := func(name string, weight float64) {
		score += weight
		factors = append(factors, name)
	}

	switch pattern.RecentTrend {
	case TrendDeclining:
		apply("declining_trend", weightDeclining)
	case TrendImproving:
		apply("improving_trend", weightImproving)
	}

	if pattern.ConsecutiveIncompleteStreak >= 3 {
		apply("streak_risk", weightStreakRisk)
	}
	if pattern.AverageDelayDays >= 2 || sig.Overloaded {
		apply("overload", weightOverload)
	}
	if sig.DifficultySpike {
		apply("difficulty_spike", weightDifficultySpike)
	}
	if sig.WeakSubjectShare > 0.5 {
		apply("weak_subject_heavy", weightWeakSubjectHeavy)
	}
	if sig.Balanced {
		apply("balanced_workload", weightBalanced)
	}
	if pattern.RecentTrend == TrendStable && pattern.CompletionRate >= 70 {
		apply("consistent", weightConsistent)
	}

	recentCount, err := s.recentPlanCount(ctx, studentID, 7)
	if err != nil {
		return nil, err
	}
	if pattern.DataPoints >= 5 && recentCount == 0 {
		apply("low_recent_activity", weightLowRecent)
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &Prediction{
		Score:      score,
		Confidence: confidenceFor(pattern.DataPoints),
		Factors:    factors,
	}, nil
}

// recentTrend compares the completion rate of the last seven usable
// plans against the seven before them.
func recentTrend(plans []models.StudyPlan) Trend {
	if len(plans) < 14 {
		return TrendStable
	}

	rate := func(window []models.StudyPlan) float64 {
		done := 0
		for _, p := range window {
			if p.Status == models.PlanCompleted {
				done++
			}
		}
		return float64(done) / float64(len(window))
	}

	recent := rate(plans[len(plans)-7:])
	previous := rate(plans[len(plans)-14 : len(plans)-7])

	switch {
	case recent-previous > trendBand:
		return TrendImproving
	case previous-recent > trendBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func (s *Service) recentPlanCount(ctx context.Context, studentID string, days int) (int, error) {
	since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	var count int64
	err := s.db.WithContext(ctx).Model(&models.StudyPlan{}).
		Where("student_id = ? AND plan_date >= ? AND status = ?", studentID, since, models.PlanCompleted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recent plans: %w", err)
	}
	return int(count), nil
}

// confidenceFor tiers prediction confidence by history size.
func confidenceFor(points int) float64 {
	switch {
	case points < 5:
		return 0.3
	case points < 10:
		return 0.5
	case points < 20:
		return 0.65
	case points < 50:
		return 0.8
	default:
		return 0.9
	}
}

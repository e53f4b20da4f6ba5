/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package orchestrator composes the adaptive signal services into one
// student health report. A failing component never fails the report;
// it contributes a neutral result instead.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/delay"
	"github.com/friendsincode/studyflow/internal/difficulty"
	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/fatigue"
	"github.com/friendsincode/studyflow/internal/feedback"
	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/pace"
	"github.com/friendsincode/studyflow/internal/weights"
)

// Component weights in the overall health score.
var componentWeights = map[string]float64{
	"progress":   0.25,
	"fatigue":    0.20,
	"pace":       0.15,
	"difficulty": 0.15,
	"delay":      0.15,
	"realtime":   0.10,
}

// Plans required before adaptive adjustments are enabled.
const MinPlansForAdaptation = 10

// A subject this far under the overall completion rate is weak.
const weakSubjectMargin = 15

const neutralScore = 50

// HealthStatus bands the overall score.
type HealthStatus string

const (
	StatusExcellent HealthStatus = "excellent" // >= 85
	StatusGood      HealthStatus = "good"      // >= 70
	StatusFair      HealthStatus = "fair"      // >= 55
	StatusPoor      HealthStatus = "poor"      // >= 40
	StatusCritical  HealthStatus = "critical"
)

// ComponentResult is one analyzer's contribution.
type ComponentResult struct {
	Score           float64  `json:"score"` // 0-100
	Degraded        bool     `json:"degraded"`
	Insights        []string `json:"insights,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Report is the orchestrated analysis for one student. Beyond the
// per-component scores it carries the structured adjustment data the
// components produced, so callers can act on the recommendation
// without re-running the individual services. Any of the structured
// fields may be absent when its component degraded.
type Report struct {
	StudentID           string                     `json:"student_id"`
	GeneratedAt         time.Time                  `json:"generated_at"`
	HealthScore         float64                    `json:"health_score"`
	Status              HealthStatus               `json:"status"`
	Components          map[string]ComponentResult `json:"components"`
	WeakSubjects        []string                   `json:"weak_subjects,omitempty"`
	AdaptiveAdjustments bool                       `json:"adaptive_adjustments"`
	Insights            []string                   `json:"insights,omitempty"`
	Recommendations     []string                   `json:"recommendations,omitempty"`

	RestDaySuggestions []fatigue.RestSuggestion       `json:"rest_day_suggestions,omitempty"`
	SubjectAdjustments []difficulty.SubjectAdjustment `json:"subject_adjustments,omitempty"`
	Weights            *weights.Weights               `json:"weights,omitempty"`
	DelayRisk          *delay.Prediction              `json:"delay_risk,omitempty"`
}

// Orchestrator runs the full analysis.
type Orchestrator struct {
	db     *gorm.DB
	logger zerolog.Logger
	bus    events.Publisher

	pace       *pace.Service
	fatigue    *fatigue.Service
	difficulty *difficulty.Service
	delay      *delay.Service
	weights    *weights.Service
	feedback   *feedback.Service
}

// New wires an orchestrator from its component services. bus may be
// nil when event publication is not needed.
func New(db *gorm.DB, bus events.Publisher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:         db,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		bus:        bus,
		pace:       pace.New(db, logger),
		fatigue:    fatigue.New(db, logger),
		difficulty: difficulty.New(db, logger),
		delay:      delay.New(db, logger),
		weights:    weights.New(db, logger),
		feedback:   feedback.New(db, logger),
	}
}

// Tuning overrides the engine's built in parameters. Zero values keep
// the defaults.
type Tuning struct {
	PaceAlpha           float64
	FatigueDailyMinutes int
	MinPlansForDecrease int
	WorkloadIncrease    float64
	WorkloadDecrease    float64
}

// ApplyTuning pushes overrides down to the component services.
func (o *Orchestrator) ApplyTuning(t Tuning) {
	o.pace.SetAlpha(t.PaceAlpha)
	o.fatigue.SetDailyThreshold(t.FatigueDailyMinutes)
	o.feedback.SetFatigueThreshold(t.FatigueDailyMinutes)
	o.feedback.SetMinPlansForDecrease(t.MinPlansForDecrease)
	o.feedback.SetWorkloadFactors(t.WorkloadIncrease, t.WorkloadDecrease)
}

// Analyze produces the health report for a student. Component
// failures degrade to neutral results; only the plan query itself can
// return an error.
func (o *Orchestrator) Analyze(ctx context.Context, studentID string) (*Report, error) {
	var plans []models.StudyPlan
	err := o.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}

	report := &Report{
		StudentID:           studentID,
		GeneratedAt:         time.Now(),
		Components:          make(map[string]ComponentResult),
		AdaptiveAdjustments: len(plans) >= MinPlansForAdaptation,
	}

	progress := o.progressComponent(plans, report)
	report.Components["progress"] = progress

	report.Components["fatigue"] = o.run("fatigue", func() (ComponentResult, error) {
		return o.fatigueComponent(ctx, studentID, report)
	})
	report.Components["pace"] = o.run("pace", func() (ComponentResult, error) {
		return o.paceComponent(ctx, studentID)
	})

	diffResult, spike := o.difficultyComponent(ctx, studentID, report)
	report.Components["difficulty"] = diffResult

	report.Components["delay"] = o.run("delay", func() (ComponentResult, error) {
		return o.delayComponent(ctx, studentID, spike, plans, report)
	})
	report.Components["realtime"] = o.run("realtime", func() (ComponentResult, error) {
		return o.realtimeComponent(ctx, studentID)
	})

	var score float64
	for name, weight := range componentWeights {
		score += weight * report.Components[name].Score
	}
	report.HealthScore = score
	report.Status = statusFor(score)

	for _, result := range report.Components {
		report.Insights = append(report.Insights, result.Insights...)
		report.Recommendations = append(report.Recommendations, result.Recommendations...)
	}

	if w, err := o.weights.Compute(ctx, studentID); err == nil {
		report.Weights = w
		if len(report.WeakSubjects) > 0 {
			if best := bestPeriod(w); best != "" {
				report.Recommendations = append(report.Recommendations,
					fmt.Sprintf("move %s sessions into the %s, the student's strongest period", report.WeakSubjects[0], best))
			}
		}
	}

	if o.bus != nil {
		o.bus.Publish(events.EventAnalysisCompleted, events.Payload{
			"student_id":   studentID,
			"health_score": report.HealthScore,
			"status":       string(report.Status),
		})
	}

	return report, nil
}

// run wraps a component, degrading to a neutral result on error.
func (o *Orchestrator) run(name string, fn func() (ComponentResult, error)) ComponentResult {
	result, err := fn()
	if err != nil {
		o.logger.Debug().Err(err).Str("analyzer", name).Msg("component degraded to neutral")
		return ComponentResult{Score: neutralScore, Degraded: true}
	}
	return result
}

func (o *Orchestrator) progressComponent(plans []models.StudyPlan, report *Report) ComponentResult {
	if len(plans) == 0 {
		return ComponentResult{Score: neutralScore, Degraded: true}
	}

	completed := 0
	bySubject := make(map[string][2]int) // total, completed
	for _, p := range plans {
		if p.Status == models.PlanCompleted {
			completed++
		}
		if p.Subject != "" {
			counts := bySubject[p.Subject]
			counts[0]++
			if p.Status == models.PlanCompleted {
				counts[1]++
			}
			bySubject[p.Subject] = counts
		}
	}

	overall := 100 * float64(completed) / float64(len(plans))
	result := ComponentResult{Score: overall}

	for subject, counts := range bySubject {
		rate := 100 * float64(counts[1]) / float64(counts[0])
		if rate < overall-weakSubjectMargin {
			report.WeakSubjects = append(report.WeakSubjects, subject)
		}
	}
	if len(report.WeakSubjects) > 0 {
		result.Insights = append(result.Insights,
			fmt.Sprintf("%d subject(s) lag the overall completion rate", len(report.WeakSubjects)))
		result.Recommendations = append(result.Recommendations,
			"schedule weak subjects into the student's strongest time periods")
	}
	return result
}

func (o *Orchestrator) fatigueComponent(ctx context.Context, studentID string, report *Report) (ComponentResult, error) {
	metrics, err := o.fatigue.Analyze(ctx, studentID)
	if err != nil {
		return ComponentResult{}, err
	}

	report.RestDaySuggestions = o.fatigue.SuggestRestDays(metrics, upcomingDays(time.Now(), 7))

	result := ComponentResult{Score: 100 - metrics.FatigueScore}
	if metrics.IntensityLevel == fatigue.IntensityHigh || metrics.IntensityLevel == fatigue.IntensityOverload {
		result.Insights = append(result.Insights,
			fmt.Sprintf("fatigue is %s after %d consecutive study days", metrics.IntensityLevel, metrics.ConsecutiveDays))
		result.Recommendations = append(result.Recommendations, "insert a rest day this week")
	}
	return result, nil
}

func (o *Orchestrator) paceComponent(ctx context.Context, studentID string) (ComponentResult, error) {
	analysis, err := o.pace.Analyze(ctx, studentID)
	if err != nil {
		return ComponentResult{}, err
	}

	score := neutralScore + (analysis.Velocity-1.0)*100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := ComponentResult{Score: score}
	if analysis.Confidence == pace.ConfidenceLow {
		result.Degraded = true
	}
	if analysis.Velocity < 0.85 {
		result.Insights = append(result.Insights, "sessions run noticeably over their estimates")
		result.Recommendations = append(result.Recommendations, "lengthen planned durations to match the observed pace")
	}
	return result, nil
}

// difficultyComponent also reports whether any subject needs easing,
// which feeds the delay prediction.
func (o *Orchestrator) difficultyComponent(ctx context.Context, studentID string, report *Report) (ComponentResult, bool) {
	adjustments, err := o.difficulty.AnalyzeSubjects(ctx, studentID)
	if err != nil {
		o.logger.Debug().Err(err).Str("analyzer", "difficulty").Msg("component degraded to neutral")
		return ComponentResult{Score: neutralScore, Degraded: true}, false
	}
	report.SubjectAdjustments = adjustments

	score := 75.0
	spike := false
	result := ComponentResult{}
	for _, adj := range adjustments {
		switch adj.RecommendedAdjustment {
		case difficulty.AdjustDown:
			score -= 15
			spike = true
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("ease difficulty in %s", adj.Subject))
		case difficulty.AdjustUp:
			score += 5
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("raise difficulty in %s", adj.Subject))
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	result.Score = score
	return result, spike
}

func (o *Orchestrator) delayComponent(ctx context.Context, studentID string, spike bool, plans []models.StudyPlan, report *Report) (ComponentResult, error) {
	sig := delay.Signals{DifficultySpike: spike}

	if len(plans) > 0 && len(report.WeakSubjects) > 0 {
		weak := make(map[string]bool, len(report.WeakSubjects))
		for _, s := range report.WeakSubjects {
			weak[s] = true
		}
		inWeak := 0
		for _, p := range plans {
			if weak[p.Subject] {
				inWeak++
			}
		}
		sig.WeakSubjectShare = float64(inWeak) / float64(len(plans))
	}

	prediction, err := o.delay.PredictWithSignals(ctx, studentID, sig)
	if err != nil {
		return ComponentResult{}, err
	}
	report.DelayRisk = prediction

	result := ComponentResult{Score: prediction.Score}
	if prediction.Confidence < 0.5 {
		result.Degraded = true
	}
	if prediction.Score < 40 {
		result.Insights = append(result.Insights, "on-time completion is at risk")
		result.Recommendations = append(result.Recommendations, "trim the upcoming week's plan volume")
	}
	return result, nil
}

func (o *Orchestrator) realtimeComponent(ctx context.Context, studentID string) (ComponentResult, error) {
	today := time.Now().Format("2006-01-02")
	fb, err := o.feedback.Generate(ctx, studentID, today)
	if err != nil {
		return ComponentResult{}, err
	}

	var score float64
	switch fb.EfficiencyRating {
	case feedback.RatingExcellent:
		score = 90
	case feedback.RatingGood:
		score = 75
	case feedback.RatingAverage:
		score = 60
	default:
		score = 40
	}

	result := ComponentResult{Score: score, Insights: fb.Messages}
	if fb.SuggestRest {
		result.Recommendations = append(result.Recommendations, "stop for today, the daily load threshold is passed")
	}
	return result, nil
}

// upcomingDays lists the n dates after from as "YYYY-MM-DD".
func upcomingDays(from time.Time, n int) []string {
	days := make([]string, n)
	for i := range days {
		days[i] = from.AddDate(0, 0, i+1).Format("2006-01-02")
	}
	return days
}

// bestPeriod picks the period with the highest learning weight, empty
// when no period has enough data.
func bestPeriod(w *weights.Weights) pace.TimePeriod {
	var best pace.TimePeriod
	bestWeight := 0.0
	for period, weight := range w.ByPeriod {
		if weight > bestWeight {
			best = period
			bestWeight = weight
		}
	}
	return best
}

func statusFor(score float64) HealthStatus {
	switch {
	case score >= 85:
		return StatusExcellent
	case score >= 70:
		return StatusGood
	case score >= 55:
		return StatusFair
	case score >= 40:
		return StatusPoor
	default:
		return StatusCritical
	}
}

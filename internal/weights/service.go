/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weights derives per-subject and per-time-slot learning
// weights from observed efficiency. A weight above 1.0 means the
// student does better than planned in that context.
package weights

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/pace"
)

// Bounds keep one outlier session from skewing a weight.
const (
	MinWeight = 0.5
	MaxWeight = 1.5
)

// Minimum sessions in a bucket before it gets its own weight.
const minBucketSessions = 3

// Weights is the computed weight profile.
type Weights struct {
	BySubject map[string]float64          `json:"by_subject"`
	ByPeriod  map[pace.TimePeriod]float64 `json:"by_period"`
}

// Service computes learning weights.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a weights service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "weights").Logger(),
	}
}

// Compute builds the weight profile from completed sessions.
// Efficiency per session is estimated/actual minutes; buckets with too
// little data are omitted and callers should treat them as 1.0.
func (s *Service) Compute(ctx context.Context, studentID string) (*Weights, error) {
	var sessions []models.StudySession
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND completed = ?", studentID, true).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	subjectSum := make(map[string]float64)
	subjectN := make(map[string]int)
	periodSum := make(map[pace.TimePeriod]float64)
	periodN := make(map[pace.TimePeriod]int)

	for _, sess := range sessions {
		if sess.EstimatedMinutes <= 0 || sess.ActualMinutes <= 0 {
			continue
		}
		eff := float64(sess.EstimatedMinutes) / float64(sess.ActualMinutes)

		if sess.Subject != "" {
			subjectSum[sess.Subject] += eff
			subjectN[sess.Subject]++
		}
		if sess.StartedAt != nil {
			period := pace.PeriodOf(sess.StartedAt.Hour())
			periodSum[period] += eff
			periodN[period]++
		}
	}

	w := &Weights{
		BySubject: make(map[string]float64),
		ByPeriod:  make(map[pace.TimePeriod]float64),
	}
	for subject, n := range subjectN {
		if n >= minBucketSessions {
			w.BySubject[subject] = clamp(subjectSum[subject] / float64(n))
		}
	}
	for period, n := range periodN {
		if n >= minBucketSessions {
			w.ByPeriod[period] = clamp(periodSum[period] / float64(n))
		}
	}
	return w, nil
}

// SubjectWeight returns the weight for a subject, 1.0 when unknown.
func (w *Weights) SubjectWeight(subject string) float64 {
	if w == nil {
		return 1.0
	}
	if v, ok := w.BySubject[subject]; ok {
		return v
	}
	return 1.0
}

// PeriodWeight returns the weight for a time period, 1.0 when unknown.
func (w *Weights) PeriodWeight(period pace.TimePeriod) float64 {
	if w == nil {
		return 1.0
	}
	if v, ok := w.ByPeriod[period]; ok {
		return v
	}
	return 1.0
}

func clamp(v float64) float64 {
	if v < MinWeight {
		return MinWeight
	}
	if v > MaxWeight {
		return MaxWeight
	}
	return v
}

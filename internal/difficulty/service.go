/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package difficulty tracks per-subject outcomes and recommends
// difficulty adjustments.
package difficulty

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

// Adjustment direction per subject.
const (
	AdjustDown = -1
	AdjustKeep = 0
	AdjustUp   = 1
)

// Minimum sessions in a subject before recommending a change.
const minSubjectSessions = 4

// SubjectAdjustment is the recommendation for one subject.
type SubjectAdjustment struct {
	Subject               string  `json:"subject"`
	CompletionRate        float64 `json:"completion_rate"` // 0-100
	AverageAccuracy       float64 `json:"average_accuracy"`
	Sessions              int     `json:"sessions"`
	RecommendedAdjustment int     `json:"recommended_adjustment"`
}

// Service computes per-subject difficulty recommendations.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a difficulty service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "difficulty").Logger(),
	}
}

// AnalyzeSubjects computes completion and accuracy per subject over
// the student's history. Subjects with too few sessions are reported
// with a keep recommendation.
func (s *Service) AnalyzeSubjects(ctx context.Context, studentID string) ([]SubjectAdjustment, error) {
	var sessions []models.StudySession
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND subject <> ''", studentID).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	type acc struct {
		total     int
		completed int
		accuracy  float64
		graded    int
	}
	bySubject := make(map[string]*acc)
	order := make([]string, 0)
	for _, sess := range sessions {
		a, ok := bySubject[sess.Subject]
		if !ok {
			a = &acc{}
			bySubject[sess.Subject] = a
			order = append(order, sess.Subject)
		}
		a.total++
		if sess.Completed {
			a.completed++
		}
		if sess.Accuracy > 0 {
			a.accuracy += sess.Accuracy
			a.graded++
		}
	}

	adjustments := make([]SubjectAdjustment, 0, len(bySubject))
	for _, subject := range order {
		a := bySubject[subject]
		adj := SubjectAdjustment{
			Subject:        subject,
			Sessions:       a.total,
			CompletionRate: 100 * float64(a.completed) / float64(a.total),
		}
		if a.graded > 0 {
			adj.AverageAccuracy = a.accuracy / float64(a.graded)
		}
		adj.RecommendedAdjustment = recommend(adj, a.graded > 0)
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// SubjectsNeedingAdjustment filters AnalyzeSubjects down to non-keep
// recommendations.
func (s *Service) SubjectsNeedingAdjustment(ctx context.Context, studentID string) ([]SubjectAdjustment, error) {
	all, err := s.AnalyzeSubjects(ctx, studentID)
	if err != nil {
		return nil, err
	}
	needing := make([]SubjectAdjustment, 0, len(all))
	for _, adj := range all {
		if adj.RecommendedAdjustment != AdjustKeep {
			needing = append(needing, adj)
		}
	}
	return needing, nil
}

func recommend(adj SubjectAdjustment, hasAccuracy bool) int {
	if adj.Sessions < minSubjectSessions {
		return AdjustKeep
	}
	if adj.CompletionRate < 60 || (hasAccuracy && adj.AverageAccuracy < 0.5) {
		return AdjustDown
	}
	if adj.CompletionRate > 90 && (!hasAccuracy || adj.AverageAccuracy > 0.85) {
		return AdjustUp
	}
	return AdjustKeep
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package conflict detects overlapping study plans within a day.
package conflict

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/timeline"
)

// ConflictInfo describes one detected overlap from the perspective of
// a single plan. Each plan keeps only its first detected conflict.
type ConflictInfo struct {
	ConflictingPlanID    string `json:"conflicting_plan_id"`
	ConflictingPlanTitle string `json:"conflicting_plan_title"`
	OverlapMinutes       int    `json:"overlap_minutes"`
	ConflictStart        string `json:"conflict_start"`
	ConflictEnd          string `json:"conflict_end"`
	Message              string `json:"message"`
}

// Detector finds time conflicts among plans.
type Detector struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a conflict detector.
func New(db *gorm.DB, logger zerolog.Logger) *Detector {
	return &Detector{
		db:     db,
		logger: logger.With().Str("component", "conflict").Logger(),
	}
}

// DetectTimeConflicts scans plans for overlapping assigned times.
// Plans without both times are ignored. The result maps plan ID to the
// first conflict found for that plan; intervals that merely touch do
// not conflict.
func DetectTimeConflicts(plans []models.StudyPlan) map[string]ConflictInfo {
	timed := make([]*models.StudyPlan, 0, len(plans))
	for i := range plans {
		if plans[i].HasTimes() {
			timed = append(timed, &plans[i])
		}
	}

	sort.Slice(timed, func(i, j int) bool {
		return timeline.ParseTimeToMinutes(*timed[i].StartTime) <
			timeline.ParseTimeToMinutes(*timed[j].StartTime)
	})

	// After sorting by start, only adjacent pairs need checking: any
	// overlap chain is reported pairwise along the sweep.
	conflicts := make(map[string]ConflictInfo)
	for i := 0; i+1 < len(timed); i++ {
		a, b := timed[i], timed[i+1]
		startA := timeline.ParseTimeToMinutes(*a.StartTime)
		endA := timeline.ParseTimeToMinutes(*a.EndTime)
		startB := timeline.ParseTimeToMinutes(*b.StartTime)
		endB := timeline.ParseTimeToMinutes(*b.EndTime)

		if !(startA < endB && endA > startB) {
			continue
		}

		overlapStart := maxInt(startA, startB)
		overlapEnd := minInt(endA, endB)
		info := func(other *models.StudyPlan) ConflictInfo {
			title := planTitle(other)
			return ConflictInfo{
				ConflictingPlanID:    other.ID,
				ConflictingPlanTitle: title,
				OverlapMinutes:       overlapEnd - overlapStart,
				ConflictStart:        timeline.MinutesToTimeString(overlapStart),
				ConflictEnd:          timeline.MinutesToTimeString(overlapEnd),
				Message: fmt.Sprintf("overlaps %s by %d minutes (%s-%s)",
					title,
					overlapEnd-overlapStart,
					timeline.MinutesToTimeString(overlapStart),
					timeline.MinutesToTimeString(overlapEnd)),
			}
		}

		if _, seen := conflicts[a.ID]; !seen {
			conflicts[a.ID] = info(b)
		}
		if _, seen := conflicts[b.ID]; !seen {
			conflicts[b.ID] = info(a)
		}
	}

	return conflicts
}

// CheckSinglePlanConflict returns the first existing plan that
// overlaps the candidate, or nil. Plans matching excludeID or lacking
// times are skipped.
func CheckSinglePlanConflict(candidate models.StudyPlan, existing []models.StudyPlan, excludeID string) *models.StudyPlan {
	if !candidate.HasTimes() {
		return nil
	}
	startA := timeline.ParseTimeToMinutes(*candidate.StartTime)
	endA := timeline.ParseTimeToMinutes(*candidate.EndTime)

	for i := range existing {
		p := &existing[i]
		if p.ID == excludeID || p.ID == candidate.ID || !p.HasTimes() {
			continue
		}
		startB := timeline.ParseTimeToMinutes(*p.StartTime)
		endB := timeline.ParseTimeToMinutes(*p.EndTime)
		if startA < endB && endA > startB {
			return p
		}
	}
	return nil
}

// CheckDay loads a student's plans for a date and reports conflicts.
func (d *Detector) CheckDay(ctx context.Context, studentID, date string) (map[string]ConflictInfo, error) {
	var plans []models.StudyPlan
	err := d.db.WithContext(ctx).
		Where("student_id = ? AND plan_date = ?", studentID, date).
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}

	conflicts := DetectTimeConflicts(plans)
	if len(conflicts) > 0 {
		d.logger.Debug().
			Str("student_id", studentID).
			Str("date", date).
			Int("conflicts", len(conflicts)).
			Msg("time conflicts detected")
	}
	return conflicts, nil
}

// planTitle names a plan for conflict messages. Subject is the closest
// thing plans carry to a title; the ID is a last resort.
func planTitle(p *models.StudyPlan) string {
	if p.Subject != "" {
		return p.Subject
	}
	return p.ID
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

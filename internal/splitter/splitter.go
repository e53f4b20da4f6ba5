/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package splitter breaks multi-episode lecture plans into per-episode
// units so each episode can be scheduled and tracked on its own.
package splitter

import (
	"github.com/google/uuid"

	"github.com/friendsincode/studyflow/internal/models"
)

// SplitPlanByEpisodes expands a lecture plan covering an inclusive
// episode range into one unit per episode. Non-lecture plans,
// single-episode plans, and plans whose lecture carries no episode
// duration metadata come back unchanged in a one-element slice; the
// metadata-less case is a deliberate fallback, not an error. Each unit
// carries the per-episode duration from the lecture metadata and keeps
// the parent's date, block and times.
func SplitPlanByEpisodes(plan models.StudyPlan, lecture *models.Lecture) []models.StudyPlan {
	if plan.ContentType != models.ContentLecture || plan.EpisodeEnd <= plan.EpisodeStart {
		return []models.StudyPlan{plan}
	}
	if !hasEpisodeMetadata(lecture) {
		return []models.StudyPlan{plan}
	}

	units := make([]models.StudyPlan, 0, plan.EpisodeEnd-plan.EpisodeStart+1)
	for ep := plan.EpisodeStart; ep <= plan.EpisodeEnd; ep++ {
		unit := plan
		unit.ID = uuid.NewString()
		unit.EpisodeStart = ep
		unit.EpisodeEnd = ep
		unit.DurationMinutes = lecture.EpisodeDuration(ep)
		unit.EstimatedMinutes = unit.DurationMinutes
		units = append(units, unit)
	}
	return units
}

// SplitForTimeAssignment splits like SplitPlanByEpisodes but clears
// any precomputed start and end times on the units: the parent's span
// no longer fits any single episode, so times must be reassigned.
func SplitForTimeAssignment(plan models.StudyPlan, lecture *models.Lecture) []models.StudyPlan {
	units := SplitPlanByEpisodes(plan, lecture)
	if len(units) == 1 && units[0].ID == plan.ID {
		return units
	}
	for i := range units {
		units[i].StartTime = nil
		units[i].EndTime = nil
	}
	return units
}

func hasEpisodeMetadata(lecture *models.Lecture) bool {
	return lecture != nil && (len(lecture.Episodes) > 0 || lecture.EpisodeMinutes > 0)
}

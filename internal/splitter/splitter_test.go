/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package splitter

import (
	"testing"

	"github.com/friendsincode/studyflow/internal/models"
)

func TestSplitPlanByEpisodes(t *testing.T) {
	lecture := &models.Lecture{
		ID:             "lec-1",
		EpisodeMinutes: 25,
		Episodes: []models.LectureEpisode{
			{EpisodeNumber: 3, DurationMinutes: 40},
		},
	}

	plan := models.StudyPlan{
		ID:           "plan-1",
		ContentType:  models.ContentLecture,
		ContentID:    "lec-1",
		PlanDate:     "2026-09-01",
		BlockIndex:   2,
		EpisodeStart: 2,
		EpisodeEnd:   4,
	}

	units := SplitPlanByEpisodes(plan, lecture)
	if len(units) != 3 {
		t.Fatalf("SplitPlanByEpisodes() produced %d units, want 3", len(units))
	}

	for i, unit := range units {
		ep := plan.EpisodeStart + i
		if unit.EpisodeStart != ep || unit.EpisodeEnd != ep {
			t.Errorf("unit %d range = (%d,%d), want (%d,%d)", i, unit.EpisodeStart, unit.EpisodeEnd, ep, ep)
		}
		if unit.ID == plan.ID || unit.ID == "" {
			t.Errorf("unit %d should have a fresh ID, got %q", i, unit.ID)
		}
		if unit.PlanDate != plan.PlanDate || unit.BlockIndex != plan.BlockIndex {
			t.Errorf("unit %d lost placement: date %q block %d", i, unit.PlanDate, unit.BlockIndex)
		}
	}

	if units[0].DurationMinutes != 25 {
		t.Errorf("episode 2 duration = %d, want lecture default 25", units[0].DurationMinutes)
	}
	if units[1].DurationMinutes != 40 {
		t.Errorf("episode 3 duration = %d, want override 40", units[1].DurationMinutes)
	}
}

func TestSplitPlanByEpisodesPassthrough(t *testing.T) {
	book := models.StudyPlan{ID: "b", ContentType: models.ContentBook, PageStart: 1, PageEnd: 30}
	if units := SplitPlanByEpisodes(book, nil); len(units) != 1 || units[0].ID != "b" {
		t.Errorf("book plan should pass through, got %v", units)
	}

	single := models.StudyPlan{ID: "s", ContentType: models.ContentLecture, EpisodeStart: 5, EpisodeEnd: 5}
	if units := SplitPlanByEpisodes(single, nil); len(units) != 1 || units[0].ID != "s" {
		t.Errorf("single-episode plan should pass through, got %v", units)
	}
}

func TestSplitPlanByEpisodesNoMetadata(t *testing.T) {
	plan := models.StudyPlan{
		ID:           "plan-1",
		ContentType:  models.ContentLecture,
		EpisodeStart: 2,
		EpisodeEnd:   4,
	}

	if units := SplitPlanByEpisodes(plan, nil); len(units) != 1 || units[0].ID != "plan-1" {
		t.Errorf("plan without lecture metadata should pass through untouched, got %d units", len(units))
	}

	bare := &models.Lecture{ID: "lec-1"}
	if units := SplitPlanByEpisodes(plan, bare); len(units) != 1 || units[0].ID != "plan-1" {
		t.Errorf("plan whose lecture has no episode durations should pass through untouched, got %d units", len(units))
	}
}

func TestSplitForTimeAssignment(t *testing.T) {
	lecture := &models.Lecture{ID: "lec-1", EpisodeMinutes: 30}
	start, end := "10:00", "12:00"
	plan := models.StudyPlan{
		ID:           "plan-1",
		ContentType:  models.ContentLecture,
		ContentID:    "lec-1",
		EpisodeStart: 1,
		EpisodeEnd:   2,
		StartTime:    &start,
		EndTime:      &end,
	}

	units := SplitForTimeAssignment(plan, lecture)
	if len(units) != 2 {
		t.Fatalf("SplitForTimeAssignment() produced %d units, want 2", len(units))
	}
	for i, unit := range units {
		if unit.StartTime != nil || unit.EndTime != nil {
			t.Errorf("unit %d kept stale times", i)
		}
	}

	// Passthrough keeps its times.
	single := models.StudyPlan{ID: "s", ContentType: models.ContentLecture, EpisodeStart: 1, EpisodeEnd: 1, StartTime: &start}
	units = SplitForTimeAssignment(single, lecture)
	if len(units) != 1 || units[0].StartTime == nil {
		t.Errorf("passthrough should keep times, got %v", units)
	}

	// No metadata means no split and no time invalidation.
	units = SplitForTimeAssignment(plan, nil)
	if len(units) != 1 || units[0].StartTime == nil {
		t.Errorf("metadata-less plan should pass through with times intact, got %v", units)
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package conflict

import (
	"testing"

	"github.com/friendsincode/studyflow/internal/models"
)

func timedPlan(id, start, end string) models.StudyPlan {
	return models.StudyPlan{ID: id, StartTime: &start, EndTime: &end}
}

func TestDetectTimeConflicts(t *testing.T) {
	tests := []struct {
		name  string
		plans []models.StudyPlan
		want  map[string]ConflictInfo
	}{
		{
			name: "simple overlap reported on both plans",
			plans: []models.StudyPlan{
				timedPlan("a", "10:00", "11:00"),
				timedPlan("b", "10:30", "11:30"),
			},
			want: map[string]ConflictInfo{
				"a": {ConflictingPlanID: "b", OverlapMinutes: 30, ConflictStart: "10:30", ConflictEnd: "11:00"},
				"b": {ConflictingPlanID: "a", OverlapMinutes: 30, ConflictStart: "10:30", ConflictEnd: "11:00"},
			},
		},
		{
			name: "touching intervals do not conflict",
			plans: []models.StudyPlan{
				timedPlan("a", "09:00", "10:00"),
				timedPlan("b", "10:00", "11:00"),
			},
			want: map[string]ConflictInfo{},
		},
		{
			name: "plans without times are ignored",
			plans: []models.StudyPlan{
				{ID: "a"},
				timedPlan("b", "10:00", "11:00"),
			},
			want: map[string]ConflictInfo{},
		},
		{
			name: "first conflict wins per plan",
			plans: []models.StudyPlan{
				timedPlan("a", "09:00", "10:00"),
				timedPlan("b", "09:30", "10:30"),
				timedPlan("c", "10:15", "11:00"),
			},
			want: map[string]ConflictInfo{
				"a": {ConflictingPlanID: "b", OverlapMinutes: 30, ConflictStart: "09:30", ConflictEnd: "10:00"},
				"b": {ConflictingPlanID: "a", OverlapMinutes: 30, ConflictStart: "09:30", ConflictEnd: "10:00"},
				"c": {ConflictingPlanID: "b", OverlapMinutes: 15, ConflictStart: "10:15", ConflictEnd: "10:30"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTimeConflicts(tt.plans)
			if len(got) != len(tt.want) {
				t.Fatalf("DetectTimeConflicts() = %v, want %v", got, tt.want)
			}
			for id, want := range tt.want {
				g := got[id]
				if g.ConflictingPlanID != want.ConflictingPlanID ||
					g.OverlapMinutes != want.OverlapMinutes ||
					g.ConflictStart != want.ConflictStart ||
					g.ConflictEnd != want.ConflictEnd {
					t.Errorf("conflict[%s] = %+v, want %+v", id, g, want)
				}
			}
		})
	}
}

func TestDetectTimeConflictsDescribesOtherPlan(t *testing.T) {
	a := timedPlan("a", "10:00", "11:00")
	a.Subject = "math"
	b := timedPlan("b", "10:30", "11:30")
	b.Subject = "english"

	got := DetectTimeConflicts([]models.StudyPlan{a, b})

	if got["a"].ConflictingPlanTitle != "english" {
		t.Errorf("conflict[a].ConflictingPlanTitle = %q, want english", got["a"].ConflictingPlanTitle)
	}
	if got["b"].ConflictingPlanTitle != "math" {
		t.Errorf("conflict[b].ConflictingPlanTitle = %q, want math", got["b"].ConflictingPlanTitle)
	}
	want := "overlaps english by 30 minutes (10:30-11:00)"
	if got["a"].Message != want {
		t.Errorf("conflict[a].Message = %q, want %q", got["a"].Message, want)
	}

	// Untitled plans fall back to the plan ID.
	got = DetectTimeConflicts([]models.StudyPlan{
		timedPlan("a", "10:00", "11:00"),
		timedPlan("b", "10:30", "11:30"),
	})
	if got["a"].ConflictingPlanTitle != "b" {
		t.Errorf("untitled conflict title = %q, want b", got["a"].ConflictingPlanTitle)
	}
}

func TestCheckSinglePlanConflict(t *testing.T) {
	existing := []models.StudyPlan{
		timedPlan("a", "09:00", "10:00"),
		timedPlan("b", "11:00", "12:00"),
	}

	if got := CheckSinglePlanConflict(timedPlan("x", "09:30", "10:30"), existing, ""); got == nil || got.ID != "a" {
		t.Errorf("CheckSinglePlanConflict() = %v, want plan a", got)
	}

	if got := CheckSinglePlanConflict(timedPlan("x", "09:30", "10:30"), existing, "a"); got != nil {
		t.Errorf("CheckSinglePlanConflict() with exclude = %v, want nil", got)
	}

	if got := CheckSinglePlanConflict(timedPlan("x", "10:00", "11:00"), existing, ""); got != nil {
		t.Errorf("CheckSinglePlanConflict() touching = %v, want nil", got)
	}

	if got := CheckSinglePlanConflict(models.StudyPlan{ID: "x"}, existing, ""); got != nil {
		t.Errorf("CheckSinglePlanConflict() without times = %v, want nil", got)
	}
}

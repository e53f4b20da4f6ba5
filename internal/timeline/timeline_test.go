/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"testing"

	"github.com/friendsincode/studyflow/internal/models"
)

func strPtr(s string) *string { return &s }

func TestParseTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:30", 570},
		{"23:59", 1439},
		{"14:05:33", 845},
		{"bad", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ParseTimeToMinutes(tt.in); got != tt.want {
			t.Errorf("ParseTimeToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMinutesToTimeString(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{570, "09:30"},
		{1439, "23:59"},
		{61, "01:01"},
	}

	for _, tt := range tests {
		if got := MinutesToTimeString(tt.in); got != tt.want {
			t.Errorf("MinutesToTimeString(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildOccupiedIntervals(t *testing.T) {
	plans := []models.StudyPlan{
		{StartTime: strPtr("10:00"), EndTime: strPtr("11:00")},
		{StartTime: strPtr("09:00"), EndTime: strPtr("10:30")}, // overlaps previous
		{StartTime: nil, EndTime: strPtr("12:00")},             // skipped
		{StartTime: strPtr("08:00"), EndTime: strPtr("08:30")}, // clipped out below slot
		{StartTime: strPtr("11:00"), EndTime: strPtr("11:30")}, // touches, merges
	}

	got := BuildOccupiedIntervals(plans, 540, 780) // 09:00-13:00
	want := []Interval{{Start: 540, End: 690}}

	if len(got) != len(want) {
		t.Fatalf("BuildOccupiedIntervals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInsertOccupiedInterval(t *testing.T) {
	occupied := []Interval{{Start: 600, End: 630}, {Start: 700, End: 720}}

	got := InsertOccupiedInterval(occupied, Interval{Start: 630, End: 700})
	if len(got) != 1 || got[0] != (Interval{Start: 600, End: 720}) {
		t.Errorf("InsertOccupiedInterval() = %v, want single [600,720)", got)
	}

	// Input must be unchanged.
	if occupied[0] != (Interval{Start: 600, End: 630}) || len(occupied) != 2 {
		t.Errorf("input slice mutated: %v", occupied)
	}
}

func TestFindFirstFreeGap(t *testing.T) {
	tests := []struct {
		name      string
		slotStart int
		slotEnd   int
		occupied  []Interval
		required  int
		want      *Interval
	}{
		{
			name:      "gap after first busy block",
			slotStart: 540, slotEnd: 720, // 09:00-12:00
			occupied: []Interval{{Start: 570, End: 600}}, // 09:30-10:00
			required: 45,
			want:     &Interval{Start: 600, End: 645}, // 10:00-10:45
		},
		{
			name:      "leading gap too small, fits between",
			slotStart: 540, slotEnd: 720,
			occupied: []Interval{{Start: 550, End: 600}, {Start: 660, End: 700}},
			required: 30,
			want:     &Interval{Start: 600, End: 630},
		},
		{
			name:      "fits at slot start",
			slotStart: 540, slotEnd: 720,
			occupied: []Interval{{Start: 650, End: 700}},
			required: 60,
			want:     &Interval{Start: 540, End: 600},
		},
		{
			name:      "no fit",
			slotStart: 540, slotEnd: 600,
			occupied: []Interval{{Start: 550, End: 590}},
			required: 30,
			want:     nil,
		},
		{
			name:      "zero required",
			slotStart: 540, slotEnd: 720,
			required: 0,
			want:     nil,
		},
		{
			name:      "empty slot fits whole request",
			slotStart: 540, slotEnd: 720,
			required: 180,
			want:     &Interval{Start: 540, End: 720},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindFirstFreeGap(tt.slotStart, tt.slotEnd, tt.occupied, tt.required)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("FindFirstFreeGap() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("FindFirstFreeGap() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestFindLargestFreeGap(t *testing.T) {
	tests := []struct {
		name      string
		slotStart int
		slotEnd   int
		occupied  []Interval
		want      *Interval
	}{
		{
			name:      "largest between blocks",
			slotStart: 540, slotEnd: 780,
			occupied: []Interval{{Start: 560, End: 580}, {Start: 640, End: 660}},
			want:     &Interval{Start: 660, End: 780},
		},
		{
			name:      "earliest wins ties",
			slotStart: 540, slotEnd: 660,
			occupied: []Interval{{Start: 580, End: 620}}, // two 40-minute gaps
			want:     &Interval{Start: 540, End: 580},
		},
		{
			name:      "fully covered",
			slotStart: 540, slotEnd: 600,
			occupied: []Interval{{Start: 540, End: 600}},
			want:     nil,
		},
		{
			name:      "empty slot",
			slotStart: 540, slotEnd: 720,
			want: &Interval{Start: 540, End: 720},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindLargestFreeGap(tt.slotStart, tt.slotEnd, tt.occupied)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("FindLargestFreeGap() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("FindLargestFreeGap() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

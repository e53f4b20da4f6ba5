/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline implements the minute-of-day interval model used by
// schedule placement and conflict checks. All functions are pure.
package timeline

import (
	"fmt"
	"sort"

	"github.com/friendsincode/studyflow/internal/models"
)

// Interval is a half-open [Start, End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Duration returns the interval length in minutes.
func (iv Interval) Duration() int {
	return iv.End - iv.Start
}

// ParseTimeToMinutes converts an "HH:mm" string to minutes since
// midnight. Only the first five characters are read, so "HH:mm:ss"
// values stored by older clients parse the same way. Callers pass
// well-formed times; malformed input yields 0.
func ParseTimeToMinutes(t string) int {
	if len(t) < 5 {
		return 0
	}
	var h, m int
	if _, err := fmt.Sscanf(t[:5], "%2d:%2d", &h, &m); err != nil {
		return 0
	}
	return h*60 + m
}

// MinutesToTimeString converts minutes since midnight to "HH:mm".
func MinutesToTimeString(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// BuildOccupiedIntervals derives the merged occupied intervals for a
// slot from plans that carry assigned times. Plans without both times
// are skipped, intervals are clipped to the slot, and empty or
// inverted results are dropped before sorting and merging. Touching
// intervals merge into one.
func BuildOccupiedIntervals(plans []models.StudyPlan, slotStart, slotEnd int) []Interval {
	occupied := make([]Interval, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if !p.HasTimes() {
			continue
		}
		start := ParseTimeToMinutes(*p.StartTime)
		end := ParseTimeToMinutes(*p.EndTime)
		if start < slotStart {
			start = slotStart
		}
		if end > slotEnd {
			end = slotEnd
		}
		if end <= start {
			continue
		}
		occupied = append(occupied, Interval{Start: start, End: end})
	}

	sort.Slice(occupied, func(i, j int) bool {
		return occupied[i].Start < occupied[j].Start
	})

	return mergeSorted(occupied)
}

// InsertOccupiedInterval returns a new occupied list with iv merged
// in. The input slice is not modified.
func InsertOccupiedInterval(occupied []Interval, iv Interval) []Interval {
	merged := make([]Interval, 0, len(occupied)+1)
	merged = append(merged, occupied...)
	merged = append(merged, iv)

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})

	return mergeSorted(merged)
}

// FindFirstFreeGap scans the slot greedily and returns the earliest
// gap of at least required minutes, or nil when none fits. The
// returned interval is trimmed to exactly required minutes.
func FindFirstFreeGap(slotStart, slotEnd int, occupied []Interval, required int) *Interval {
	if required <= 0 || slotEnd <= slotStart {
		return nil
	}

	cursor := slotStart
	for _, iv := range occupied {
		if iv.Start-cursor >= required {
			return &Interval{Start: cursor, End: cursor + required}
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if slotEnd-cursor >= required {
		return &Interval{Start: cursor, End: cursor + required}
	}
	return nil
}

// FindLargestFreeGap returns the largest free interval inside the
// slot, the earliest one on ties, or nil when the slot is fully
// covered.
func FindLargestFreeGap(slotStart, slotEnd int, occupied []Interval) *Interval {
	var best *Interval

	consider := func(start, end int) {
		if end <= start {
			return
		}
		if best == nil || end-start > best.Duration() {
			best = &Interval{Start: start, End: end}
		}
	}

	cursor := slotStart
	for _, iv := range occupied {
		consider(cursor, iv.Start)
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	consider(cursor, slotEnd)

	return best
}

// mergeSorted collapses a start-sorted interval list, joining spans
// that overlap or touch.
func mergeSorted(sorted []Interval) []Interval {
	if len(sorted) == 0 {
		return sorted
	}

	merged := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reorder recalculates the timed layout of a day's plans
// inside one slot after a move or removal.
package reorder

import (
	"sort"

	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/timeline"
)

// Mode selects the recalculation direction.
type Mode string

const (
	// ModePush keeps each plan at or after its current start, pushing
	// later plans down when overlaps appear.
	ModePush Mode = "push"
	// ModePull packs plans upward from the slot start, closing gaps.
	ModePull Mode = "pull"
)

// EmptySlot is a free span left after recalculation. AfterItemID and
// BeforeItemID name the plans bounding the span; either is empty when
// the span touches the slot edge.
type EmptySlot struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	AfterItemID     string `json:"after_item_id,omitempty"`
	BeforeItemID    string `json:"before_item_id,omitempty"`
}

// Change is a plan whose times moved.
type Change struct {
	PlanID    string `json:"plan_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Result is the recalculated layout.
type Result struct {
	Changes    []Change    `json:"changes"`
	EmptySlots []EmptySlot `json:"empty_slots"`
	Overflowed []string    `json:"overflowed"` // plans pushed past the slot end
}

// Recalculate lays the timed plans out again within [slotStart,
// slotEnd). Plans without times are ignored. Input is not modified.
func Recalculate(plans []models.StudyPlan, slotStart, slotEnd int, mode Mode) *Result {
	type item struct {
		id       string
		start    int
		duration int
	}

	items := make([]item, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if !p.HasTimes() {
			continue
		}
		start := timeline.ParseTimeToMinutes(*p.StartTime)
		end := timeline.ParseTimeToMinutes(*p.EndTime)
		if end <= start {
			continue
		}
		items = append(items, item{id: p.ID, start: start, duration: end - start})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].start < items[j].start })

	type placement struct {
		id         string
		start, end int
	}

	result := &Result{}
	cursor := slotStart
	var occupied []timeline.Interval
	var placed []placement

	for _, it := range items {
		start := cursor
		if mode == ModePush && it.start > cursor {
			start = it.start
		}
		end := start + it.duration
		if end > slotEnd {
			result.Overflowed = append(result.Overflowed, it.id)
			continue
		}

		if start != it.start {
			result.Changes = append(result.Changes, Change{
				PlanID:    it.id,
				StartTime: timeline.MinutesToTimeString(start),
				EndTime:   timeline.MinutesToTimeString(end),
			})
		}
		occupied = timeline.InsertOccupiedInterval(occupied, timeline.Interval{Start: start, End: end})
		placed = append(placed, placement{id: it.id, start: start, end: end})
		cursor = end
	}

	// Remaining free spans become reusable empty slots, each naming
	// the plans it sits between.
	gap := timeline.FindFirstFreeGap(slotStart, slotEnd, occupied, 1)
	for gap != nil {
		full := expandGap(slotStart, slotEnd, occupied, gap.Start)
		slot := EmptySlot{
			Start:           timeline.MinutesToTimeString(full.Start),
			End:             timeline.MinutesToTimeString(full.End),
			DurationMinutes: full.Duration(),
		}
		for _, p := range placed {
			if p.end == full.Start {
				slot.AfterItemID = p.id
			}
			if p.start == full.End {
				slot.BeforeItemID = p.id
			}
		}
		result.EmptySlots = append(result.EmptySlots, slot)
		occupied = timeline.InsertOccupiedInterval(occupied, full)
		gap = timeline.FindFirstFreeGap(slotStart, slotEnd, occupied, 1)
	}

	return result
}

// expandGap widens a one-minute seed into the whole free span
// containing start.
func expandGap(slotStart, slotEnd int, occupied []timeline.Interval, start int) timeline.Interval {
	end := slotEnd
	for _, iv := range occupied {
		if iv.Start >= start && iv.Start < end {
			end = iv.Start
		}
	}
	begin := slotStart
	for _, iv := range occupied {
		if iv.End <= start && iv.End > begin {
			begin = iv.End
		}
	}
	return timeline.Interval{Start: begin, End: end}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package placement assigns unplaced study units to free gaps inside
// a time slot under a selectable strategy.
package placement

import (
	"errors"

	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/timeline"
)

// Strategy selects how gaps are chosen.
type Strategy string

const (
	// StrategyFirstFit takes the earliest gap that fits.
	StrategyFirstFit Strategy = "first_fit"
	// StrategyBestFit takes the tightest gap that fits.
	StrategyBestFit Strategy = "best_fit"
	// StrategySpread centers each unit in the largest remaining gap.
	StrategySpread Strategy = "spread"
)

// ErrUnknownStrategy is returned for an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown placement strategy")

// Placement is one assigned unit.
type Placement struct {
	PlanID    string `json:"plan_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Result reports assignments and what did not fit.
type Result struct {
	Placed   []Placement `json:"placed"`
	Unplaced []string    `json:"unplaced"` // plan IDs
}

// Place assigns each plan's duration into the slot, updating the
// occupied set as it goes. Plans are taken in input order; a plan
// whose duration no longer fits is reported unplaced rather than
// failing the batch.
func Place(slotStart, slotEnd int, occupied []timeline.Interval, plans []models.StudyPlan, strategy Strategy) (*Result, error) {
	switch strategy {
	case StrategyFirstFit, StrategyBestFit, StrategySpread:
	case "":
		strategy = StrategyFirstFit
	default:
		return nil, ErrUnknownStrategy
	}

	result := &Result{}
	for _, plan := range plans {
		required := plan.DurationMinutes
		if required <= 0 {
			required = models.DefaultUnitMinutes
		}

		gap := pickGap(slotStart, slotEnd, occupied, required, strategy)
		if gap == nil {
			result.Unplaced = append(result.Unplaced, plan.ID)
			continue
		}

		result.Placed = append(result.Placed, Placement{
			PlanID:    plan.ID,
			StartTime: timeline.MinutesToTimeString(gap.Start),
			EndTime:   timeline.MinutesToTimeString(gap.End),
		})
		occupied = timeline.InsertOccupiedInterval(occupied, *gap)
	}
	return result, nil
}

func pickGap(slotStart, slotEnd int, occupied []timeline.Interval, required int, strategy Strategy) *timeline.Interval {
	switch strategy {
	case StrategyBestFit:
		return bestFit(slotStart, slotEnd, occupied, required)
	case StrategySpread:
		largest := timeline.FindLargestFreeGap(slotStart, slotEnd, occupied)
		if largest == nil || largest.Duration() < required {
			return nil
		}
		start := largest.Start + (largest.Duration()-required)/2
		return &timeline.Interval{Start: start, End: start + required}
	default:
		return timeline.FindFirstFreeGap(slotStart, slotEnd, occupied, required)
	}
}

// bestFit walks every gap and keeps the smallest one that still fits.
func bestFit(slotStart, slotEnd int, occupied []timeline.Interval, required int) *timeline.Interval {
	var best *timeline.Interval
	bestSize := 0

	consider := func(start, end int) {
		size := end - start
		if size < required {
			return
		}
		if best == nil || size < bestSize {
			best = &timeline.Interval{Start: start, End: start + required}
			bestSize = size
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

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/placement"
	"github.com/friendsincode/studyflow/internal/reorder"
	"github.com/friendsincode/studyflow/internal/telemetry"
	"github.com/friendsincode/studyflow/internal/timeline"
)

func (a *API) handleScheduleConflicts(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}

	conflicts, err := a.conflictDet.CheckDay(r.Context(), studentID, date)
	if err != nil {
		a.logger.Error().Err(err).Msg("conflict check failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if len(conflicts) > 0 {
		telemetry.ConflictsDetectedTotal.Add(float64(len(conflicts)))
		a.publisher.Publish(events.EventConflictDetected, events.Payload{
			"student_id": studentID,
			"date":       date,
			"conflicts":  len(conflicts),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date,
		"conflicts": conflicts,
	})
}

// slotForDate resolves the timetable slot covering a calendar date and block.
func (a *API) slotForDate(r *http.Request, studentID, date string, blockIndex int) (*models.TimeSlot, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, err
	}

	var slot models.TimeSlot
	result := a.db.WithContext(r.Context()).
		Where("student_id = ? AND day_of_week = ? AND block_index = ?",
			studentID, int(day.Weekday()), blockIndex).
		First(&slot)
	if result.Error != nil {
		return nil, result.Error
	}
	return &slot, nil
}

func (a *API) handleScheduleGaps(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}
	blockIndex, _ := strconv.Atoi(r.URL.Query().Get("block"))
	required, _ := strconv.Atoi(r.URL.Query().Get("required"))

	slot, err := a.slotForDate(r, studentID, date, blockIndex)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no_slot")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	var plans []models.StudyPlan
	if err := a.db.WithContext(r.Context()).
		Where("student_id = ? AND plan_date = ? AND block_index = ?", studentID, date, blockIndex).
		Find(&plans).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	slotStart := timeline.ParseTimeToMinutes(slot.StartTime)
	slotEnd := timeline.ParseTimeToMinutes(slot.EndTime)
	occupied := timeline.BuildOccupiedIntervals(plans, slotStart, slotEnd)

	resp := map[string]any{
		"date":      date,
		"block":     blockIndex,
		"slot":      map[string]string{"start": slot.StartTime, "end": slot.EndTime},
		"first_fit": nil,
		"largest":   nil,
	}

	if required > 0 {
		if gap := timeline.FindFirstFreeGap(slotStart, slotEnd, occupied, required); gap != nil {
			resp["first_fit"] = map[string]string{
				"start": timeline.MinutesToTimeString(gap.Start),
				"end":   timeline.MinutesToTimeString(gap.End),
			}
		}
	}
	if gap := timeline.FindLargestFreeGap(slotStart, slotEnd, occupied); gap != nil {
		resp["largest"] = map[string]any{
			"start":   timeline.MinutesToTimeString(gap.Start),
			"end":     timeline.MinutesToTimeString(gap.End),
			"minutes": gap.Duration(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSchedulePlace(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Date       string `json:"date"`
		BlockIndex int    `json:"block_index"`
		Strategy   string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}
	if req.Strategy == "" {
		req.Strategy = string(placement.StrategyFirstFit)
	}

	slot, err := a.slotForDate(r, studentID, req.Date, req.BlockIndex)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no_slot")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	var plans []models.StudyPlan
	if err := a.db.WithContext(r.Context()).
		Where("student_id = ? AND plan_date = ? AND block_index = ?", studentID, req.Date, req.BlockIndex).
		Order("created_at").
		Find(&plans).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	slotStart := timeline.ParseTimeToMinutes(slot.StartTime)
	slotEnd := timeline.ParseTimeToMinutes(slot.EndTime)
	occupied := timeline.BuildOccupiedIntervals(plans, slotStart, slotEnd)

	untimed := make([]models.StudyPlan, 0, len(plans))
	for _, plan := range plans {
		if !plan.HasTimes() {
			untimed = append(untimed, plan)
		}
	}

	result, err := placement.Place(slotStart, slotEnd, occupied, untimed, placement.Strategy(req.Strategy))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_strategy")
		return
	}

	err = a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		for _, placed := range result.Placed {
			updates := map[string]any{
				"start_time": placed.StartTime,
				"end_time":   placed.EndTime,
			}
			if err := tx.Model(&models.StudyPlan{}).Where("id = ?", placed.PlanID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("persist placements failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateStudent(r, studentID)
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleScheduleReorder(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req struct {
		Date       string `json:"date"`
		BlockIndex int    `json:"block_index"`
		Mode       string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date_required")
		return
	}
	if req.Mode == "" {
		req.Mode = string(reorder.ModePush)
	}

	slot, err := a.slotForDate(r, studentID, req.Date, req.BlockIndex)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no_slot")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	var plans []models.StudyPlan
	if err := a.db.WithContext(r.Context()).
		Where("student_id = ? AND plan_date = ? AND block_index = ?", studentID, req.Date, req.BlockIndex).
		Find(&plans).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	slotStart := timeline.ParseTimeToMinutes(slot.StartTime)
	slotEnd := timeline.ParseTimeToMinutes(slot.EndTime)

	result := reorder.Recalculate(plans, slotStart, slotEnd, reorder.Mode(req.Mode))

	err = a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		for _, change := range result.Changes {
			updates := map[string]any{
				"start_time": change.StartTime,
				"end_time":   change.EndTime,
			}
			if err := tx.Model(&models.StudyPlan{}).Where("id = ?", change.PlanID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("persist reorder failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publishAuditEvent(r, events.EventAuditPlanReorder, events.Payload{
		"student_id": studentID,
		"date":       req.Date,
		"mode":       req.Mode,
		"changes":    len(result.Changes),
	})
	a.invalidateStudent(r, studentID)

	writeJSON(w, http.StatusOK, result)
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/conflict"
	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/splitter"
	"github.com/friendsincode/studyflow/internal/timeline"
)

func (a *API) handlePlansList(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	query := a.db.WithContext(r.Context()).Where("student_id = ?", studentID)
	if date := r.URL.Query().Get("date"); date != "" {
		query = query.Where("plan_date = ?", date)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		query = query.Where("plan_date >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query = query.Where("plan_date <= ?", to)
	}

	var plans []models.StudyPlan
	if err := query.Order("plan_date, block_index, start_time").Find(&plans).Error; err != nil {
		a.logger.Error().Err(err).Msg("list plans failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (a *API) handlePlansCreate(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		PlanDate        string  `json:"plan_date"`
		BlockIndex      int     `json:"block_index"`
		Subject         string  `json:"subject"`
		ContentType     string  `json:"content_type"`
		ContentID       string  `json:"content_id"`
		EpisodeStart    int     `json:"episode_start"`
		EpisodeEnd      int     `json:"episode_end"`
		PageStart       int     `json:"page_start"`
		PageEnd         int     `json:"page_end"`
		StartTime       *string `json:"start_time"`
		EndTime         *string `json:"end_time"`
		DurationMinutes int     `json:"duration_minutes"`
		IsReschedulable *bool   `json:"is_reschedulable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.PlanDate == "" {
		writeError(w, http.StatusBadRequest, "plan_date_required")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject_required")
		return
	}

	plan := models.StudyPlan{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		PlanDate:        req.PlanDate,
		BlockIndex:      req.BlockIndex,
		Subject:         req.Subject,
		ContentType:     models.ContentType(req.ContentType),
		ContentID:       req.ContentID,
		EpisodeStart:    req.EpisodeStart,
		EpisodeEnd:      req.EpisodeEnd,
		PageStart:       req.PageStart,
		PageEnd:         req.PageEnd,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		Status:          models.PlanPlanned,
		IsReschedulable: true,
	}
	if req.IsReschedulable != nil {
		plan.IsReschedulable = *req.IsReschedulable
	}
	if plan.DurationMinutes == 0 && plan.HasTimes() {
		plan.DurationMinutes = timeline.ParseTimeToMinutes(*plan.EndTime) - timeline.ParseTimeToMinutes(*plan.StartTime)
	}
	if plan.EstimatedMinutes == 0 {
		plan.EstimatedMinutes = plan.DurationMinutes
	}

	// A timed plan must not overlap existing timed plans on the same day.
	if plan.HasTimes() {
		var existing []models.StudyPlan
		err := a.db.WithContext(r.Context()).
			Where("student_id = ? AND plan_date = ?", studentID, plan.PlanDate).
			Find(&existing).Error
		if err != nil {
			a.logger.Error().Err(err).Msg("load day plans failed")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if other := conflict.CheckSinglePlanConflict(plan, existing, ""); other != nil {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":               "time_conflict",
				"conflicting_plan_id": other.ID,
			})
			return
		}
	}

	if err := a.db.WithContext(r.Context()).Create(&plan).Error; err != nil {
		a.logger.Error().Err(err).Msg("create plan failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publisher.Publish(events.EventPlanCreated, events.Payload{
		"student_id": studentID,
		"plan_id":    plan.ID,
		"date":       plan.PlanDate,
	})
	a.invalidateStudent(r, studentID)

	writeJSON(w, http.StatusCreated, plan)
}

func (a *API) handlePlanComplete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	planID := chi.URLParam(r, "planID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		ActualMinutes int     `json:"actual_minutes"`
		Accuracy      float64 `json:"accuracy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var plan models.StudyPlan
	result := a.db.WithContext(r.Context()).First(&plan, "id = ? AND student_id = ?", planID, studentID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	now := time.Now()
	plan.Status = models.PlanCompleted
	plan.ActualMinutes = req.ActualMinutes
	plan.CompletedAt = &now

	startedAt := now.Add(-time.Duration(req.ActualMinutes) * time.Minute)
	session := models.StudySession{
		ID:               uuid.NewString(),
		StudentID:        studentID,
		PlanID:           plan.ID,
		Date:             plan.PlanDate,
		Subject:          plan.Subject,
		StartedAt:        &startedAt,
		EndedAt:          &now,
		EstimatedMinutes: plan.EstimatedMinutes,
		ActualMinutes:    req.ActualMinutes,
		Completed:        true,
		Accuracy:         req.Accuracy,
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&plan).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("complete plan failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publisher.Publish(events.EventPlanCompleted, events.Payload{
		"student_id": studentID,
		"plan_id":    plan.ID,
		"date":       plan.PlanDate,
	})
	a.invalidateStudent(r, studentID)

	writeJSON(w, http.StatusOK, plan)
}

func (a *API) handlePlanSplit(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	planID := chi.URLParam(r, "planID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var plan models.StudyPlan
	result := a.db.WithContext(r.Context()).First(&plan, "id = ? AND student_id = ?", planID, studentID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var lecture *models.Lecture
	if plan.ContentType == models.ContentLecture && plan.ContentID != "" {
		var lec models.Lecture
		if err := a.db.WithContext(r.Context()).Preload("Episodes").First(&lec, "id = ?", plan.ContentID).Error; err == nil {
			lecture = &lec
		}
	}

	units := splitter.SplitForTimeAssignment(plan, lecture)
	if len(units) == 1 && units[0].ID == plan.ID {
		// Nothing to split.
		writeJSON(w, http.StatusOK, units)
		return
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.StudyPlan{}, "id = ?", plan.ID).Error; err != nil {
			return err
		}
		return tx.Create(&units).Error
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("split plan failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publisher.Publish(events.EventPlanSplit, events.Payload{
		"student_id": studentID,
		"plan_id":    plan.ID,
		"units":      len(units),
	})
	a.invalidateStudent(r, studentID)

	writeJSON(w, http.StatusOK, units)
}

// invalidateStudent clears cached analysis after a data change.
func (a *API) invalidateStudent(r *http.Request, studentID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateStudent(r.Context(), studentID); err != nil {
		a.logger.Debug().Err(err).Str("student_id", studentID).Msg("cache invalidation failed")
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/timeline"
)

func (a *API) handleStudentsList(w http.ResponseWriter, r *http.Request) {
	var students []models.Student
	if err := a.db.WithContext(r.Context()).Find(&students).Error; err != nil {
		a.logger.Error().Err(err).Msg("list students failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (a *API) handleStudentsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Name     string `json:"name"`
		Grade    string `json:"grade"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	student := models.Student{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Name:     req.Name,
		Grade:    req.Grade,
		Timezone: req.Timezone,
	}

	if err := a.db.WithContext(r.Context()).Create(&student).Error; err != nil {
		a.logger.Error().Err(err).Msg("create student failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("student_id", student.ID).Msg("student created")
	writeJSON(w, http.StatusCreated, student)
}

func (a *API) handleStudentsGet(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_id_required")
		return
	}
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var student models.Student
	result := a.db.WithContext(r.Context()).First(&student, "id = ?", studentID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("get student failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var slots []models.TimeSlot
	err := a.db.WithContext(r.Context()).
		Where("student_id = ?", studentID).
		Order("day_of_week, block_index").
		Find(&slots).Error
	if err != nil {
		a.logger.Error().Err(err).Msg("list slots failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (a *API) handleSlotsCreate(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req struct {
		DayOfWeek  int    `json:"day_of_week"`
		BlockIndex int    `json:"block_index"`
		StartTime  string `json:"start_time"`
		EndTime    string `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		writeError(w, http.StatusBadRequest, "invalid_day_of_week")
		return
	}

	start := timeline.ParseTimeToMinutes(req.StartTime)
	end := timeline.ParseTimeToMinutes(req.EndTime)
	if end <= start {
		writeError(w, http.StatusBadRequest, "invalid_time_range")
		return
	}

	slot := models.TimeSlot{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		DayOfWeek:       req.DayOfWeek,
		BlockIndex:      req.BlockIndex,
		StartTime:       req.StartTime[:5],
		EndTime:         req.EndTime[:5],
		DurationMinutes: end - start,
	}

	if err := a.db.WithContext(r.Context()).Create(&slot).Error; err != nil {
		a.logger.Error().Err(err).Msg("create slot failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusCreated, slot)
}

func (a *API) handleSlotsDelete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	slotID := chi.URLParam(r, "slotID")

	result := a.db.WithContext(r.Context()).
		Where("id = ? AND student_id = ?", slotID, studentID).
		Delete(&models.TimeSlot{})
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("delete slot failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

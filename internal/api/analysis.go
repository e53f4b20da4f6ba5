/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/orchestrator"
	"github.com/friendsincode/studyflow/internal/telemetry"
	"github.com/friendsincode/studyflow/internal/weights"
)

func (a *API) handleAnalysisReport(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"

	if a.cache != nil && !refresh {
		var cached orchestrator.Report
		if found, _ := a.cache.GetReport(r.Context(), studentID, &cached); found {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	report, err := a.orchestrator.Analyze(r.Context(), studentID)
	if err != nil {
		telemetry.AnalysisRunsTotal.WithLabelValues("error").Inc()
		a.logger.Error().Err(err).Str("student_id", studentID).Msg("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis_failed")
		return
	}
	telemetry.AnalysisRunsTotal.WithLabelValues("ok").Inc()

	if a.cache != nil {
		if err := a.cache.SetReport(r.Context(), studentID, report); err != nil {
			a.logger.Debug().Err(err).Msg("report cache write failed")
		}
	}

	a.publishAuditEvent(r, events.EventAuditAnalysisRun, events.Payload{
		"student_id":   studentID,
		"health_score": report.HealthScore,
		"status":       string(report.Status),
	})

	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleAnalysisPace(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	analysis, err := a.paceSvc.Analyze(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (a *API) handleAnalysisFatigue(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	metrics, err := a.fatigueSvc.Analyze(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	// Suggest rest days over the coming week.
	next := make([]string, 7)
	today := time.Now()
	for i := range next {
		next[i] = today.AddDate(0, 0, i+1).Format("2006-01-02")
	}
	suggestions := a.fatigueSvc.SuggestRestDays(metrics, next)

	for _, s := range suggestions {
		a.publisher.Publish(events.EventRestSuggested, events.Payload{
			"student_id": studentID,
			"date":       s.Date,
			"reason":     s.Reason,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":          metrics,
		"rest_suggestions": suggestions,
	})
}

func (a *API) handleAnalysisDifficulty(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	adjustments, err := a.difficultySvc.AnalyzeSubjects(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, adjustments)
}

func (a *API) handleAnalysisDelay(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	pattern, err := a.delaySvc.AnalyzePattern(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	prediction, err := a.delaySvc.Predict(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pattern":    pattern,
		"prediction": prediction,
	})
}

func (a *API) handleAnalysisWeights(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if a.cache != nil {
		var cached weights.Weights
		if found, _ := a.cache.GetWeights(r.Context(), studentID, &cached); found {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	computed, err := a.weightsSvc.Compute(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		if err := a.cache.SetWeights(r.Context(), studentID, computed); err != nil {
			a.logger.Debug().Err(err).Msg("weights cache write failed")
		}
	}

	writeJSON(w, http.StatusOK, computed)
}

func (a *API) handleFeedbackDaily(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !a.studentScope(r, studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	if a.cache != nil {
		var cached map[string]any
		if found, _ := a.cache.GetFeedback(r.Context(), studentID, date, &cached); found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	fb, err := a.feedbackSvc.Generate(r.Context(), studentID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		if err := a.cache.SetFeedback(r.Context(), studentID, date, fb); err != nil {
			a.logger.Debug().Err(err).Msg("feedback cache write failed")
		}
	}

	if fb.WorkloadFactor != 1.0 {
		a.publisher.Publish(events.EventWorkloadAdjusted, events.Payload{
			"student_id": studentID,
			"date":       date,
			"factor":     fb.WorkloadFactor,
		})
	}

	writeJSON(w, http.StatusOK, fb)
}

// parseEventTypes splits the "types" query parameter into event types.
func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	types := make([]events.EventType, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			types = append(types, events.EventType(p))
		}
	}
	return types
}

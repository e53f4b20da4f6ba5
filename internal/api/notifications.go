/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/studyflow/internal/auth"
	"github.com/friendsincode/studyflow/internal/notifications"
)

// NotificationAPI handles notification-related API endpoints.
type NotificationAPI struct {
	svc *notifications.Service
}

// NewNotificationAPI creates a new notification API handler.
func NewNotificationAPI(svc *notifications.Service) *NotificationAPI {
	return &NotificationAPI{svc: svc}
}

// RegisterRoutes adds notification routes to the router.
func (n *NotificationAPI) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", n.handleList)
		r.Get("/unread-count", n.handleUnreadCount)
		r.Post("/mark-all-read", n.handleMarkAllRead)
		r.Post("/{id}/read", n.handleMarkRead)
	})
}

// studentFor resolves the student whose notifications the caller may read.
// Students see their own; tutors and admins pass an explicit student query.
func studentFor(r *http.Request) string {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	if claims.StudentID != "" {
		return claims.StudentID
	}
	return r.URL.Query().Get("student")
}

// handleList returns the student's notifications.
func (n *NotificationAPI) handleList(w http.ResponseWriter, r *http.Request) {
	studentID := studentFor(r)
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_required")
		return
	}

	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items, total, err := n.svc.GetStudentNotifications(r.Context(), studentID, unreadOnly, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// handleUnreadCount returns the count of unread notifications.
func (n *NotificationAPI) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	studentID := studentFor(r)
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_required")
		return
	}

	count, err := n.svc.GetUnreadCount(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unread_count": count,
	})
}

// handleMarkRead marks a single notification as read.
func (n *NotificationAPI) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	studentID := studentFor(r)
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_required")
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		writeError(w, http.StatusBadRequest, "id_required")
		return
	}

	if err := n.svc.MarkAsRead(r.Context(), notificationID, studentID); err != nil {
		if err.Error() == "notification not found" {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMarkAllRead marks all notifications as read.
func (n *NotificationAPI) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	studentID := studentFor(r)
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_required")
		return
	}

	if err := n.svc.MarkAllAsRead(r.Context(), studentID); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

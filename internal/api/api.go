/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/audit"
	"github.com/friendsincode/studyflow/internal/auth"
	"github.com/friendsincode/studyflow/internal/cache"
	"github.com/friendsincode/studyflow/internal/conflict"
	"github.com/friendsincode/studyflow/internal/delay"
	"github.com/friendsincode/studyflow/internal/difficulty"
	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/fatigue"
	"github.com/friendsincode/studyflow/internal/feedback"
	"github.com/friendsincode/studyflow/internal/models"
	"github.com/friendsincode/studyflow/internal/orchestrator"
	"github.com/friendsincode/studyflow/internal/pace"
	"github.com/friendsincode/studyflow/internal/weights"
)

// API exposes HTTP handlers.
type API struct {
	db              *gorm.DB
	jwtSecret       []byte
	orchestrator    *orchestrator.Orchestrator
	feedbackSvc     *feedback.Service
	conflictDet     *conflict.Detector
	paceSvc         *pace.Service
	fatigueSvc      *fatigue.Service
	difficultySvc   *difficulty.Service
	delaySvc        *delay.Service
	weightsSvc      *weights.Service
	auditSvc        *audit.Service
	notificationAPI *NotificationAPI
	cache           *cache.Cache
	bus             *events.Bus
	publisher       events.Publisher
	logger          zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, orch *orchestrator.Orchestrator, feedbackSvc *feedback.Service, conflictDet *conflict.Detector, auditSvc *audit.Service, analysisCache *cache.Cache, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		db:            db,
		jwtSecret:     jwtSecret,
		orchestrator:  orch,
		feedbackSvc:   feedbackSvc,
		conflictDet:   conflictDet,
		paceSvc:       pace.New(db, logger),
		fatigueSvc:    fatigue.New(db, logger),
		difficultySvc: difficulty.New(db, logger),
		delaySvc:      delay.New(db, logger),
		weightsSvc:    weights.New(db, logger),
		auditSvc:      auditSvc,
		cache:         analysisCache,
		bus:           bus,
		publisher:     bus,
		logger:        logger,
	}
}

// SetPublisher routes outgoing events through p instead of the local
// bus. Used to bridge events cluster-wide when NATS is enabled;
// subscriptions stay on the local bus, which the bridge feeds.
func (a *API) SetPublisher(p events.Publisher) {
	if p != nil {
		a.publisher = p
	}
}

// SetNotificationAPI sets the notification API handler.
func (a *API) SetNotificationAPI(notifAPI *NotificationAPI) {
	a.notificationAPI = notifAPI
}

// ApplyTuning pushes engine parameter overrides into the per-signal
// services behind the analysis endpoints.
func (a *API) ApplyTuning(t orchestrator.Tuning) {
	a.paceSvc.SetAlpha(t.PaceAlpha)
	a.fatigueSvc.SetDailyThreshold(t.FatigueDailyMinutes)
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleAuthLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Route("/students", func(r chi.Router) {
				r.Get("/", a.handleStudentsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleTutor)).Post("/", a.handleStudentsCreate)
				r.Route("/{studentID}", func(r chi.Router) {
					r.Get("/", a.handleStudentsGet)

					r.Route("/slots", func(sr chi.Router) {
						sr.Get("/", a.handleSlotsList)
						sr.With(a.requireRoles(models.RoleAdmin, models.RoleTutor)).Post("/", a.handleSlotsCreate)
						sr.With(a.requireRoles(models.RoleAdmin, models.RoleTutor)).Delete("/{slotID}", a.handleSlotsDelete)
					})

					r.Route("/plans", func(plr chi.Router) {
						plr.Get("/", a.handlePlansList)
						plr.Post("/", a.handlePlansCreate)
						plr.Post("/{planID}/complete", a.handlePlanComplete)
						plr.Post("/{planID}/split", a.handlePlanSplit)
					})

					r.Route("/schedule", func(scr chi.Router) {
						scr.Get("/conflicts", a.handleScheduleConflicts)
						scr.Get("/gaps", a.handleScheduleGaps)
						scr.Post("/place", a.handleSchedulePlace)
						scr.With(a.requireRoles(models.RoleAdmin, models.RoleTutor)).Post("/reorder", a.handleScheduleReorder)
					})

					r.Route("/analysis", func(an chi.Router) {
						an.Get("/", a.handleAnalysisReport)
						an.Get("/pace", a.handleAnalysisPace)
						an.Get("/fatigue", a.handleAnalysisFatigue)
						an.Get("/difficulty", a.handleAnalysisDifficulty)
						an.Get("/delay", a.handleAnalysisDelay)
						an.Get("/weights", a.handleAnalysisWeights)
					})

					r.Get("/feedback", a.handleFeedbackDaily)
				})
			})

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{keyID}", a.handleAPIKeysRevoke)
			})

			// Audit log routes (admin only)
			pr.Route("/audit", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin))
				r.Get("/", a.handleAuditList)
			})

			// Notifications
			if a.notificationAPI != nil {
				a.notificationAPI.RegisterRoutes(pr)
			}

			pr.Get("/feedback/stream", a.handleFeedbackStream)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range claims.Roles {
				if _, exists := allowedSet[role]; exists {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

// studentScope rejects students reaching into other students' records.
// Tutors and admins pass through.
func (a *API) studentScope(r *http.Request, studentID string) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return false
	}
	for _, role := range claims.Roles {
		if role == string(models.RoleAdmin) || role == string(models.RoleTutor) {
			return true
		}
	}
	return claims.StudentID == studentID
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["actor"] = claims.UserID
	}

	return payload
}

// publishAuditEvent publishes an audit event with user and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.publisher.Publish(eventType, payload)
}

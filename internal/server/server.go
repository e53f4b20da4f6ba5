/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/api"
	"github.com/friendsincode/studyflow/internal/audit"
	"github.com/friendsincode/studyflow/internal/cache"
	"github.com/friendsincode/studyflow/internal/config"
	"github.com/friendsincode/studyflow/internal/conflict"
	"github.com/friendsincode/studyflow/internal/db"
	"github.com/friendsincode/studyflow/internal/eventbus"
	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/feedback"
	"github.com/friendsincode/studyflow/internal/notifications"
	"github.com/friendsincode/studyflow/internal/orchestrator"
	"github.com/friendsincode/studyflow/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db              *gorm.DB
	cache           *cache.Cache
	api             *api.API
	bus             *events.Bus
	natsBus         *eventbus.NATSBus
	orchestrator    *orchestrator.Orchestrator
	feedbackSvc     *feedback.Service
	conflictDet     *conflict.Detector
	auditSvc        *audit.Service
	notificationSvc *notifications.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New builds a fully wired server for the given configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("studyflow-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket connections
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Feedback stream subscribers hold their connection open.
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:    addr,
		Handler: srv.router,
		// Keep header deadline to protect against slowloris, but leave
		// body deadlines to the middleware timeout so feedback stream
		// connections are not terminated.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// Redis cache for analysis reports, feedback, and weights.
	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	analysisCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = analysisCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	// NATS bridge for multi-instance event fanout.
	if s.cfg.NATSEnabled {
		natsBus, err := eventbus.New(s.cfg.NATSURL, s.bus, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", s.cfg.NATSURL).
				Msg("NATS connection failed, falling back to in-process events")
		} else {
			s.natsBus = natsBus
			s.DeferClose(func() error { return s.natsBus.Close() })
			s.logger.Info().Str("url", s.cfg.NATSURL).Msg("NATS event bridge connected")
		}
	}

	// Components that emit events publish through the NATS bridge when
	// it is up so every instance sees them; the bridge feeds the local
	// bus first, so in-process subscribers are unaffected.
	var publisher events.Publisher = s.bus
	if s.natsBus != nil {
		publisher = s.natsBus
	}

	s.orchestrator = orchestrator.New(database, publisher, s.logger)
	s.feedbackSvc = feedback.New(database, s.logger)
	s.conflictDet = conflict.New(database, s.logger)

	// Audit service for security and adaptation logging
	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	// Notification service for reminders and adaptation alerts
	notifCfg := notifications.ConfigFromEnv()
	s.notificationSvc = notifications.NewService(database, s.bus, notifCfg, s.logger)

	s.api = api.New(s.db, []byte(s.cfg.JWTSigningKey), s.orchestrator, s.feedbackSvc, s.conflictDet, s.auditSvc, s.cache, s.bus, s.logger)
	s.api.SetPublisher(publisher)

	notificationAPI := api.NewNotificationAPI(s.notificationSvc)
	s.api.SetNotificationAPI(notificationAPI)

	s.applyTuning()

	return nil
}

func (s *Server) applyTuning() {
	t := s.cfg.Tuning
	if t == (config.Tuning{}) {
		return
	}

	tuning := orchestrator.Tuning{
		PaceAlpha:           t.PaceAlpha,
		FatigueDailyMinutes: t.FatigueDailyMinutes,
		MinPlansForDecrease: t.MinPlansForAdaptation,
		WorkloadIncrease:    t.WorkloadIncrease,
		WorkloadDecrease:    t.WorkloadDecrease,
	}
	s.orchestrator.ApplyTuning(tuning)
	s.api.ApplyTuning(tuning)

	s.feedbackSvc.SetFatigueThreshold(t.FatigueDailyMinutes)
	s.feedbackSvc.SetMinPlansForDecrease(t.MinPlansForAdaptation)
	s.feedbackSvc.SetWorkloadFactors(t.WorkloadIncrease, t.WorkloadDecrease)

	s.logger.Info().Str("path", s.cfg.TuningPath).Msg("engine tuning overrides applied")
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Start database metrics updater
	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	// Start audit service
	if s.auditSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.auditSvc.Start(ctx)
		}()
	}

	// Start notification service
	if s.notificationSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.notificationSvc.Start(ctx)
		}()
	}

	// Start cache invalidation listener
	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached analysis artifacts when the
// underlying student data changes.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	studentUpdated := s.bus.Subscribe(events.EventStudentUpdated)
	planUpdated := s.bus.Subscribe(events.EventPlanUpdated)
	contentUpdated := s.bus.Subscribe(events.EventContentUpdated)
	planCompleted := s.bus.Subscribe(events.EventPlanCompleted)
	planSplit := s.bus.Subscribe(events.EventPlanSplit)

	defer func() {
		s.bus.Unsubscribe(events.EventStudentUpdated, studentUpdated)
		s.bus.Unsubscribe(events.EventPlanUpdated, planUpdated)
		s.bus.Unsubscribe(events.EventContentUpdated, contentUpdated)
		s.bus.Unsubscribe(events.EventPlanCompleted, planCompleted)
		s.bus.Unsubscribe(events.EventPlanSplit, planSplit)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidate := func(payload events.Payload, reason string) {
		studentID, ok := payload["student_id"].(string)
		if !ok || studentID == "" {
			return
		}
		s.logger.Debug().Str("student_id", studentID).Str("reason", reason).
			Msg("invalidating student cache")
		if err := s.cache.InvalidateStudent(ctx, studentID); err != nil {
			s.logger.Warn().Err(err).Str("student_id", studentID).Msg("cache invalidation failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case payload := <-studentUpdated:
			invalidate(payload, "student updated")

		case payload := <-planUpdated:
			invalidate(payload, "plan updated")

		case payload := <-contentUpdated:
			invalidate(payload, "content updated")

		case payload := <-planCompleted:
			invalidate(payload, "plan completed")

		case payload := <-planSplit:
			invalidate(payload, "plan split")
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

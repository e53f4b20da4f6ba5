/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	apiKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	apiKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)
	planReorder := s.bus.Subscribe(events.EventAuditPlanReorder)
	analysisRun := s.bus.Subscribe(events.EventAuditAnalysisRun)
	planSplit := s.bus.Subscribe(events.EventPlanSplit)
	workloadAdjusted := s.bus.Subscribe(events.EventWorkloadAdjusted)

	defer func() {
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, apiKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, apiKeyRevoke)
		s.bus.Unsubscribe(events.EventAuditPlanReorder, planReorder)
		s.bus.Unsubscribe(events.EventAuditAnalysisRun, analysisRun)
		s.bus.Unsubscribe(events.EventPlanSplit, planSplit)
		s.bus.Unsubscribe(events.EventWorkloadAdjusted, workloadAdjusted)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-apiKeyCreate:
			s.logAuditEntry(ctx, "apikey.create", payload)

		case payload := <-apiKeyRevoke:
			s.logAuditEntry(ctx, "apikey.revoke", payload)

		case payload := <-planReorder:
			s.logAuditEntry(ctx, "plan.reorder", payload)

		case payload := <-analysisRun:
			s.logAuditEntry(ctx, "analysis.run", payload)

		case payload := <-planSplit:
			s.logAuditEntry(ctx, "plan.split", payload)

		case payload := <-workloadAdjusted:
			s.logAuditEntry(ctx, "workload.adjust", payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action string, payload events.Payload) {
	entry := &models.AuditEntry{
		Action: action,
	}

	if studentID, ok := payload["student_id"].(string); ok {
		entry.StudentID = studentID
	}
	if actor, ok := payload["actor"].(string); ok {
		entry.Actor = actor
	}

	detail := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case "student_id", "actor":
		default:
			detail[k] = v
		}
	}
	if len(detail) > 0 {
		if data, err := json.Marshal(detail); err == nil {
			entry.Detail = string(data)
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", entry.Action).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit entries.
type QueryFilters struct {
	StudentID *string
	Actor     *string
	Action    *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit entries with filters.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditEntry, int64, error) {
	var entries []models.AuditEntry
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditEntry{})

	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Actor != nil {
		query = query.Where("actor = ?", *filters.Actor)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("created_at >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("created_at <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

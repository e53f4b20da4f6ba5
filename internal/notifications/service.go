/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
)

// Config holds notification service configuration.
type Config struct {
	// Reminder settings
	ReminderCheckInterval time.Duration
	ReminderLeadMinutes   int
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() Config {
	interval, _ := time.ParseDuration(getEnv("STUDYFLOW_REMINDER_CHECK_INTERVAL", "1m"))
	lead, _ := strconv.Atoi(getEnv("STUDYFLOW_REMINDER_LEAD_MINUTES", "30"))

	return Config{
		ReminderCheckInterval: interval,
		ReminderLeadMinutes:   lead,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Service handles notification creation and study reminder scheduling.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool

	now func() time.Time
}

// NewService creates a new notification service.
func NewService(db *gorm.DB, bus *events.Bus, config Config, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		config: config,
		logger: logger.With().Str("component", "notifications").Logger(),
		now:    time.Now,
	}
}

// Start begins the notification service, subscribing to events and running the reminder scheduler.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Msg("notification service starting")

	restSuggested := s.bus.Subscribe(events.EventRestSuggested)
	workloadAdjusted := s.bus.Subscribe(events.EventWorkloadAdjusted)
	conflictDetected := s.bus.Subscribe(events.EventConflictDetected)
	analysisCompleted := s.bus.Subscribe(events.EventAnalysisCompleted)

	defer func() {
		s.bus.Unsubscribe(events.EventRestSuggested, restSuggested)
		s.bus.Unsubscribe(events.EventWorkloadAdjusted, workloadAdjusted)
		s.bus.Unsubscribe(events.EventConflictDetected, conflictDetected)
		s.bus.Unsubscribe(events.EventAnalysisCompleted, analysisCompleted)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	reminderTicker := time.NewTicker(s.config.ReminderCheckInterval)
	defer reminderTicker.Stop()

	s.logger.Info().Msg("notification service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification service stopping")
			return

		case payload := <-restSuggested:
			s.handleRestSuggested(ctx, payload)

		case payload := <-workloadAdjusted:
			s.handleWorkloadAdjusted(ctx, payload)

		case payload := <-conflictDetected:
			s.handleConflictDetected(ctx, payload)

		case payload := <-analysisCompleted:
			s.handleAnalysisCompleted(ctx, payload)

		case <-reminderTicker.C:
			s.processReminders(ctx)
		}
	}
}

// handleRestSuggested creates a rest day notification for a student.
func (s *Service) handleRestSuggested(ctx context.Context, payload events.Payload) {
	studentID, _ := payload["student_id"].(string)
	if studentID == "" {
		return
	}

	date, _ := payload["date"].(string)
	reason, _ := payload["reason"].(string)
	if reason == "" {
		reason = "Recent study intensity has been high."
	}

	body := reason
	if date != "" {
		body = fmt.Sprintf("Consider resting on %s. %s", date, reason)
	}

	s.Create(ctx, &models.Notification{
		StudentID: studentID,
		Kind:      models.NotificationRestSuggestion,
		Title:     "Rest Day Suggested",
		Body:      body,
	})
}

// handleWorkloadAdjusted notifies the student of a workload change.
func (s *Service) handleWorkloadAdjusted(ctx context.Context, payload events.Payload) {
	studentID, _ := payload["student_id"].(string)
	if studentID == "" {
		return
	}

	factor, _ := payload["factor"].(float64)
	var body string
	switch {
	case factor > 1.0:
		body = "Recent completion has been strong. Tomorrow's workload has been increased."
	case factor < 1.0 && factor > 0:
		body = "Recent completion has been low. Tomorrow's workload has been reduced."
	default:
		body = "Tomorrow's workload has been adjusted."
	}

	s.Create(ctx, &models.Notification{
		StudentID: studentID,
		Kind:      models.NotificationWorkloadChange,
		Title:     "Workload Adjusted",
		Body:      body,
	})
}

// handleConflictDetected notifies the student about overlapping plans.
func (s *Service) handleConflictDetected(ctx context.Context, payload events.Payload) {
	studentID, _ := payload["student_id"].(string)
	if studentID == "" {
		return
	}

	date, _ := payload["date"].(string)
	count := 0
	if c, ok := payload["conflicts"].(int); ok {
		count = c
	} else if c, ok := payload["conflicts"].(float64); ok {
		count = int(c)
	}

	body := "Some of your study plans overlap in time. Review your schedule."
	if date != "" && count > 0 {
		body = fmt.Sprintf("%d plans on %s overlap in time. Review your schedule.", count, date)
	}

	s.Create(ctx, &models.Notification{
		StudentID: studentID,
		Kind:      models.NotificationConflict,
		Title:     "Schedule Conflict",
		Body:      body,
	})
}

// handleAnalysisCompleted forwards recommendations from an analysis run.
func (s *Service) handleAnalysisCompleted(ctx context.Context, payload events.Payload) {
	studentID, _ := payload["student_id"].(string)
	if studentID == "" {
		return
	}

	recs, _ := payload["recommendations"].([]string)
	if len(recs) == 0 {
		return
	}

	for _, rec := range recs {
		s.Create(ctx, &models.Notification{
			StudentID: studentID,
			Kind:      models.NotificationRecommendation,
			Title:     "Study Recommendation",
			Body:      rec,
		})
	}
}

// processReminders finds plans starting soon today and reminds their students.
func (s *Service) processReminders(ctx context.Context) {
	now := s.now()
	today := now.Format("2006-01-02")

	var plans []models.StudyPlan
	if err := s.db.WithContext(ctx).
		Where("plan_date = ? AND status = ?", today, models.PlanPlanned).
		Where("start_time IS NOT NULL").
		Find(&plans).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to load plans for reminders")
		return
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	lead := s.config.ReminderLeadMinutes
	window := int(s.config.ReminderCheckInterval / time.Minute)
	if window < 1 {
		window = 1
	}

	for _, plan := range plans {
		if plan.StartTime == nil {
			continue
		}
		start := parseMinutes(*plan.StartTime)
		remindAt := start - lead
		if nowMinutes < remindAt || nowMinutes >= remindAt+window {
			continue
		}

		// Skip if a reminder for this plan was already created.
		var existing int64
		s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("student_id = ? AND kind = ? AND body LIKE ?",
				plan.StudentID, models.NotificationReminder, "%"+plan.ID+"%").
			Count(&existing)
		if existing > 0 {
			continue
		}

		s.Create(ctx, &models.Notification{
			StudentID: plan.StudentID,
			Kind:      models.NotificationReminder,
			Title:     fmt.Sprintf("Upcoming: %s", plan.Subject),
			Body: fmt.Sprintf("Your %s session starts at %s. (plan %s)",
				plan.Subject, (*plan.StartTime)[:5], plan.ID),
		})
	}
}

func parseMinutes(value string) int {
	if len(value) < 5 {
		return 0
	}
	var h, m int
	if _, err := fmt.Sscanf(value[:5], "%2d:%2d", &h, &m); err != nil {
		return 0
	}
	return h*60 + m
}

// Create persists a notification.
func (s *Service) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Error().Err(err).Str("id", notification.ID).Msg("failed to save notification")
		return err
	}
	return nil
}

// GetStudentNotifications retrieves notifications for a student.
func (s *Service) GetStudentNotifications(ctx context.Context, studentID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("student_id = ?", studentID)

	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read.
func (s *Service) MarkAsRead(ctx context.Context, notificationID, studentID string) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND student_id = ? AND read_at IS NULL", notificationID, studentID).
		Update("read_at", now)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// MarkAllAsRead marks all unread notifications as read for a student.
func (s *Service) MarkAllAsRead(ctx context.Context, studentID string) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("student_id = ? AND read_at IS NULL", studentID).
		Update("read_at", now).Error
}

// GetUnreadCount returns the count of unread notifications for a student.
func (s *Service) GetUnreadCount(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("student_id = ? AND read_at IS NULL", studentID).
		Count(&count).Error
	return count, err
}

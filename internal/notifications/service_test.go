/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}, &models.StudyPlan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateAndUnreadCount(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, events.NewBus(), ConfigFromEnv(), zerolog.Nop())
	ctx := context.Background()

	studentID := uuid.NewString()
	for i := 0; i < 3; i++ {
		err := svc.Create(ctx, &models.Notification{
			StudentID: studentID,
			Kind:      models.NotificationRecommendation,
			Title:     "tip",
			Body:      "study earlier",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := svc.GetUnreadCount(ctx, studentID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 3 {
		t.Errorf("unread count = %d, want 3", count)
	}
}

func TestMarkAsRead(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, events.NewBus(), ConfigFromEnv(), zerolog.Nop())
	ctx := context.Background()

	studentID := uuid.NewString()
	n := &models.Notification{
		StudentID: studentID,
		Kind:      models.NotificationConflict,
		Title:     "conflict",
	}
	if err := svc.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.MarkAsRead(ctx, n.ID, studentID); err != nil {
		t.Fatalf("mark as read: %v", err)
	}

	count, _ := svc.GetUnreadCount(ctx, studentID)
	if count != 0 {
		t.Errorf("unread count = %d, want 0", count)
	}

	// Marking an already-read notification reports not found.
	if err := svc.MarkAsRead(ctx, n.ID, studentID); err == nil {
		t.Error("expected error on second mark")
	}
}

func TestMarkAllAsRead(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, events.NewBus(), ConfigFromEnv(), zerolog.Nop())
	ctx := context.Background()

	studentID := uuid.NewString()
	other := uuid.NewString()
	for i := 0; i < 2; i++ {
		svc.Create(ctx, &models.Notification{StudentID: studentID, Kind: models.NotificationReminder})
	}
	svc.Create(ctx, &models.Notification{StudentID: other, Kind: models.NotificationReminder})

	if err := svc.MarkAllAsRead(ctx, studentID); err != nil {
		t.Fatalf("mark all: %v", err)
	}

	count, _ := svc.GetUnreadCount(ctx, studentID)
	if count != 0 {
		t.Errorf("student unread = %d, want 0", count)
	}
	otherCount, _ := svc.GetUnreadCount(ctx, other)
	if otherCount != 1 {
		t.Errorf("other student unread = %d, want 1", otherCount)
	}
}

func TestGetStudentNotificationsFilters(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, events.NewBus(), ConfigFromEnv(), zerolog.Nop())
	ctx := context.Background()

	studentID := uuid.NewString()
	read := &models.Notification{StudentID: studentID, Kind: models.NotificationReminder, Title: "old"}
	svc.Create(ctx, read)
	svc.MarkAsRead(ctx, read.ID, studentID)
	svc.Create(ctx, &models.Notification{StudentID: studentID, Kind: models.NotificationReminder, Title: "new"})

	all, total, err := svc.GetStudentNotifications(ctx, studentID, false, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("all: got %d/%d, want 2/2", len(all), total)
	}

	unread, total, err := svc.GetStudentNotifications(ctx, studentID, true, 10, 0)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if total != 1 || len(unread) != 1 || unread[0].Title != "new" {
		t.Errorf("unread: got %d/%d, want the unread one", len(unread), total)
	}
}

func TestProcessRemindersCreatesReminderOnce(t *testing.T) {
	db := testDB(t)
	cfg := Config{ReminderCheckInterval: time.Minute, ReminderLeadMinutes: 30}
	svc := NewService(db, events.NewBus(), cfg, zerolog.Nop())

	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	studentID := uuid.NewString()
	start := "09:00"
	end := "10:00"
	plan := models.StudyPlan{
		ID:        uuid.NewString(),
		StudentID: studentID,
		PlanDate:  "2026-03-02",
		Subject:   "math",
		StartTime: &start,
		EndTime:   &end,
		Status:    models.PlanPlanned,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	ctx := context.Background()
	svc.processReminders(ctx)
	svc.processReminders(ctx)

	var count int64
	db.Model(&models.Notification{}).
		Where("student_id = ? AND kind = ?", studentID, models.NotificationReminder).
		Count(&count)
	if count != 1 {
		t.Errorf("reminder count = %d, want 1", count)
	}
}

func TestProcessRemindersOutsideWindow(t *testing.T) {
	db := testDB(t)
	cfg := Config{ReminderCheckInterval: time.Minute, ReminderLeadMinutes: 30}
	svc := NewService(db, events.NewBus(), cfg, zerolog.Nop())

	// Two hours before the plan, no reminder yet.
	now := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	studentID := uuid.NewString()
	start := "09:00"
	end := "10:00"
	db.Create(&models.StudyPlan{
		ID:        uuid.NewString(),
		StudentID: studentID,
		PlanDate:  "2026-03-02",
		Subject:   "math",
		StartTime: &start,
		EndTime:   &end,
		Status:    models.PlanPlanned,
	})

	svc.processReminders(context.Background())

	var count int64
	db.Model(&models.Notification{}).Where("student_id = ?", studentID).Count(&count)
	if count != 0 {
		t.Errorf("reminder count = %d, want 0", count)
	}
}

func TestEventDrivenNotifications(t *testing.T) {
	db := testDB(t)
	bus := events.NewBus()
	svc := NewService(db, bus, Config{ReminderCheckInterval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	// Let Start subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	studentID := uuid.NewString()
	bus.Publish(events.EventRestSuggested, events.Payload{
		"student_id": studentID,
		"date":       "2026-03-03",
		"reason":     "Five consecutive study days.",
	})

	deadline := time.After(2 * time.Second)
	for {
		var count int64
		db.Model(&models.Notification{}).
			Where("student_id = ? AND kind = ?", studentID, models.NotificationRestSuggestion).
			Count(&count)
		if count == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("rest suggestion notification never created")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

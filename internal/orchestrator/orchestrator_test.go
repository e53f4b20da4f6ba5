/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/difficulty"
	"github.com/friendsincode/studyflow/internal/events"
	"github.com/friendsincode/studyflow/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.StudyPlan{}, &models.StudySession{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompletedPlans(t *testing.T, db *gorm.DB, subject string, total, completed int) {
	t.Helper()
	today := time.Now().Format("2006-01-02")
	for i := 0; i < total; i++ {
		status := models.PlanPlanned
		if i < completed {
			status = models.PlanCompleted
		}
		plan := models.StudyPlan{
			ID:        fmt.Sprintf("%s-%d", subject, i),
			StudentID: "stu-1",
			PlanDate:  today,
			Subject:   subject,
			Status:    status,
		}
		if err := db.Create(&plan).Error; err != nil {
			t.Fatalf("seed plan: %v", err)
		}
	}
}

func TestAnalyzeNoData(t *testing.T) {
	o := New(testDB(t), nil, zerolog.Nop())

	report, err := o.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Every component must be present even with an empty history.
	for _, name := range []string{"progress", "fatigue", "pace", "difficulty", "delay", "realtime"} {
		if _, ok := report.Components[name]; !ok {
			t.Errorf("component %q missing from report", name)
		}
	}
	if report.AdaptiveAdjustments {
		t.Error("AdaptiveAdjustments = true with no plans")
	}
	if report.Components["progress"].Score != neutralScore || !report.Components["progress"].Degraded {
		t.Errorf("progress = %+v, want degraded neutral", report.Components["progress"])
	}
}

func TestAnalyzeHealthyStudent(t *testing.T) {
	db := testDB(t)
	o := New(db, nil, zerolog.Nop())

	seedCompletedPlans(t, db, "math", 6, 6)
	seedCompletedPlans(t, db, "english", 6, 6)

	report, err := o.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !report.AdaptiveAdjustments {
		t.Errorf("AdaptiveAdjustments = false with %d plans", 12)
	}
	if report.Components["progress"].Score != 100 {
		t.Errorf("progress score = %v, want 100", report.Components["progress"].Score)
	}
	if len(report.WeakSubjects) != 0 {
		t.Errorf("WeakSubjects = %v, want none", report.WeakSubjects)
	}
	if report.Status == StatusCritical {
		t.Errorf("Status = %v for a fully completing student", report.Status)
	}
}

func TestAnalyzeWeakSubject(t *testing.T) {
	db := testDB(t)
	o := New(db, nil, zerolog.Nop())

	seedCompletedPlans(t, db, "math", 10, 10)
	seedCompletedPlans(t, db, "english", 10, 2)

	report, err := o.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(report.WeakSubjects) != 1 || report.WeakSubjects[0] != "english" {
		t.Errorf("WeakSubjects = %v, want [english]", report.WeakSubjects)
	}
}

func TestAnalyzeStructuredRecommendation(t *testing.T) {
	db := testDB(t)
	o := New(db, nil, zerolog.Nop())

	seedCompletedPlans(t, db, "math", 12, 12)

	// Seven straight heavy days: enough history for difficulty,
	// weights and delay, and deep enough into overload that rest
	// days get proposed.
	now := time.Now()
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		started := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.Local)
		sess := models.StudySession{
			ID:               fmt.Sprintf("sess-%d", i),
			StudentID:        "stu-1",
			Date:             day.Format("2006-01-02"),
			Subject:          "math",
			StartedAt:        &started,
			EstimatedMinutes: 240,
			ActualMinutes:    240,
			Completed:        true,
			Accuracy:         0.95,
		}
		if err := db.Create(&sess).Error; err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}

	report, err := o.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(report.RestDaySuggestions) == 0 {
		t.Error("RestDaySuggestions empty after a seven day overload streak")
	}
	var mathAdj *difficulty.SubjectAdjustment
	for i := range report.SubjectAdjustments {
		if report.SubjectAdjustments[i].Subject == "math" {
			mathAdj = &report.SubjectAdjustments[i]
		}
	}
	if mathAdj == nil {
		t.Fatalf("SubjectAdjustments = %v, want an entry for math", report.SubjectAdjustments)
	}
	if mathAdj.RecommendedAdjustment != difficulty.AdjustUp {
		t.Errorf("math adjustment = %d, want up for a high-accuracy completing subject", mathAdj.RecommendedAdjustment)
	}
	if report.Weights == nil {
		t.Fatal("Weights missing from report")
	}
	if report.Weights.BySubject["math"] == 0 {
		t.Errorf("Weights.BySubject = %v, want a math weight", report.Weights.BySubject)
	}
	if report.DelayRisk == nil {
		t.Fatal("DelayRisk missing from report")
	} else if report.DelayRisk.Confidence <= 0 {
		t.Errorf("DelayRisk.Confidence = %v, want > 0 with history", report.DelayRisk.Confidence)
	}
}

func TestAnalyzePublishesEvent(t *testing.T) {
	db := testDB(t)
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventAnalysisCompleted)
	o := New(db, bus, zerolog.Nop())

	if _, err := o.Analyze(context.Background(), "stu-1"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	select {
	case payload := <-sub:
		if payload["student_id"] != "stu-1" {
			t.Errorf("event payload = %v", payload)
		}
	default:
		t.Error("no analysis.completed event published")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score float64
		want  HealthStatus
	}{
		{90, StatusExcellent},
		{85, StatusExcellent},
		{70, StatusGood},
		{55, StatusFair},
		{40, StatusPoor},
		{39, StatusCritical},
	}
	for _, tt := range tests {
		if got := statusFor(tt.score); got != tt.want {
			t.Errorf("statusFor(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

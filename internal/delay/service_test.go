/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package delay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.StudyPlan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPlan(t *testing.T, db *gorm.DB, id, date string, status models.PlanStatus, completedAt *time.Time) {
	t.Helper()
	plan := models.StudyPlan{
		ID:          id,
		StudentID:   "stu-1",
		PlanDate:    date,
		Status:      status,
		CompletedAt: completedAt,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func datePtr(date string) *time.Time {
	ts, _ := time.Parse("2006-01-02", date)
	return &ts
}

func TestAnalyzePatternEmpty(t *testing.T) {
	svc := New(testDB(t), zerolog.Nop())

	pattern, err := svc.AnalyzePattern(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("AnalyzePattern() error = %v", err)
	}
	if pattern.DataPoints != 0 || pattern.RecentTrend != TrendStable {
		t.Errorf("AnalyzePattern() = %+v, want empty stable pattern", pattern)
	}
}

func TestAnalyzePatternDelaysAndStreak(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	// Two completed with 1 and 3 day delays, then three unfinished.
	seedPlan(t, db, "p1", "2026-08-01", models.PlanCompleted, datePtr("2026-08-02"))
	seedPlan(t, db, "p2", "2026-08-02", models.PlanCompleted, datePtr("2026-08-05"))
	seedPlan(t, db, "p3", "2026-08-03", models.PlanPlanned, nil)
	seedPlan(t, db, "p4", "2026-08-04", models.PlanSkipped, nil)
	seedPlan(t, db, "p5", "2026-08-05", models.PlanPlanned, nil)

	pattern, err := svc.AnalyzePattern(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("AnalyzePattern() error = %v", err)
	}
	if pattern.AverageDelayDays != 2 {
		t.Errorf("AverageDelayDays = %v, want 2", pattern.AverageDelayDays)
	}
	if pattern.ConsecutiveIncompleteStreak != 3 {
		t.Errorf("ConsecutiveIncompleteStreak = %d, want 3", pattern.ConsecutiveIncompleteStreak)
	}
	if pattern.CompletionRate != 40 {
		t.Errorf("CompletionRate = %v, want 40", pattern.CompletionRate)
	}
}

func TestRecentTrend(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	// Previous week: 7/7 completed. Recent week: 2/7 completed.
	for i := 0; i < 7; i++ {
		date := fmt.Sprintf("2026-08-%02d", 10+i)
		seedPlan(t, db, "prev-"+date, date, models.PlanCompleted, nil)
	}
	for i := 0; i < 7; i++ {
		date := fmt.Sprintf("2026-08-%02d", 17+i)
		status := models.PlanPlanned
		if i < 2 {
			status = models.PlanCompleted
		}
		seedPlan(t, db, "recent-"+date, date, status, nil)
	}

	pattern, err := svc.AnalyzePattern(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("AnalyzePattern() error = %v", err)
	}
	if pattern.RecentTrend != TrendDeclining {
		t.Errorf("RecentTrend = %v, want declining", pattern.RecentTrend)
	}
}

func TestPredictWithSignals(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	// Recent dates so the low-activity factor does not fire.
	today := time.Now().Format("2006-01-02")
	for i := 0; i < 10; i++ {
		seedPlan(t, db, fmt.Sprintf("p%d", i), today, models.PlanCompleted, nil)
	}

	pred, err := svc.PredictWithSignals(context.Background(), "stu-1", Signals{
		DifficultySpike:  true,
		WeakSubjectShare: 0.7,
	})
	if err != nil {
		t.Fatalf("PredictWithSignals() error = %v", err)
	}

	// Base 100, difficulty spike -10, weak subjects -10, consistent +5.
	if pred.Score != 85 {
		t.Errorf("Score = %v, want 85 (factors %v)", pred.Score, pred.Factors)
	}
	if pred.Confidence != 0.65 {
		t.Errorf("Confidence = %v, want 0.65 for 10 points", pred.Confidence)
	}
}

func TestConfidenceTiers(t *testing.T) {
	tests := []struct {
		points int
		want   float64
	}{
		{0, 0.3},
		{5, 0.5},
		{10, 0.65},
		{20, 0.8},
		{50, 0.9},
	}
	for _, tt := range tests {
		if got := confidenceFor(tt.points); got != tt.want {
			t.Errorf("confidenceFor(%d) = %v, want %v", tt.points, got, tt.want)
		}
	}
}

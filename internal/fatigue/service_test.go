/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package fatigue

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
	if err := db.AutoMigrate(&models.StudySession{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func seedDay(t *testing.T, db *gorm.DB, studentID, date string, minutes int) {
	t.Helper()
	sess := models.StudySession{
		ID:            fmt.Sprintf("%s-%s", studentID, date),
		StudentID:     studentID,
		Date:          date,
		ActualMinutes: minutes,
		Completed:     true,
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestAnalyzeNoHistory(t *testing.T) {
	svc := New(testDB(t), zerolog.Nop())
	svc.now = fixedNow

	metrics, err := svc.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if metrics.FatigueScore != 0 || metrics.IntensityLevel != IntensityLow {
		t.Errorf("Analyze() = %+v, want zero score low intensity", metrics)
	}
}

func TestAnalyzeOverload(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())
	svc.now = fixedNow

	// Ten consecutive heavy days ending yesterday.
	for i := 0; i < 10; i++ {
		date := fixedNow().AddDate(0, 0, -1-i).Format("2006-01-02")
		seedDay(t, db, "stu-1", date, 240)
	}

	metrics, err := svc.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if metrics.ConsecutiveDays != 10 {
		t.Errorf("ConsecutiveDays = %d, want 10", metrics.ConsecutiveDays)
	}
	if metrics.IntensityLevel != IntensityOverload {
		t.Errorf("IntensityLevel = %v, want overload (score %v)", metrics.IntensityLevel, metrics.FatigueScore)
	}
	if metrics.SuggestedIntensityAdjustment != -0.3 {
		t.Errorf("SuggestedIntensityAdjustment = %v, want -0.3", metrics.SuggestedIntensityAdjustment)
	}
}

func TestAnalyzeStreakBrokenByGap(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())
	svc.now = fixedNow

	seedDay(t, db, "stu-1", "2026-08-30", 60)
	seedDay(t, db, "stu-1", "2026-08-29", 60)
	seedDay(t, db, "stu-1", "2026-08-26", 60) // gap before the streak

	metrics, err := svc.Analyze(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if metrics.ConsecutiveDays != 2 {
		t.Errorf("ConsecutiveDays = %d, want 2", metrics.ConsecutiveDays)
	}
}

func TestSuggestRestDays(t *testing.T) {
	svc := New(testDB(t), zerolog.Nop())
	next := []string{"2026-09-01", "2026-09-02", "2026-09-03", "2026-09-04", "2026-09-05", "2026-09-06", "2026-09-07"}

	overload := &Metrics{IntensityLevel: IntensityOverload, ConsecutiveDays: 9}
	got := svc.SuggestRestDays(overload, next)
	if len(got) != 2 {
		t.Fatalf("SuggestRestDays(overload) = %d suggestions, want 2", len(got))
	}
	if got[0].Date != "2026-09-01" || got[0].Priority != "high" {
		t.Errorf("first suggestion = %+v, want high priority tomorrow", got[0])
	}

	high := &Metrics{IntensityLevel: IntensityHigh}
	got = svc.SuggestRestDays(high, next)
	if len(got) != 1 || got[0].Date != "2026-09-03" || got[0].Priority != "medium" {
		t.Errorf("SuggestRestDays(high) = %+v, want one medium suggestion on day 3", got)
	}

	low := &Metrics{IntensityLevel: IntensityLow}
	if got = svc.SuggestRestDays(low, next); got != nil {
		t.Errorf("SuggestRestDays(low) = %v, want nil", got)
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package difficulty

import (
	"context"
	"fmt"
	"testing"

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

func seedSubject(t *testing.T, db *gorm.DB, subject string, total, completed int, accuracy float64) {
	t.Helper()
	for i := 0; i < total; i++ {
		sess := models.StudySession{
			ID:        fmt.Sprintf("%s-%d", subject, i),
			StudentID: "stu-1",
			Subject:   subject,
			Completed: i < completed,
			Accuracy:  accuracy,
		}
		if err := db.Create(&sess).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestAnalyzeSubjects(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	seedSubject(t, db, "math", 10, 10, 0.92)   // strong, adjust up
	seedSubject(t, db, "english", 10, 4, 0.55) // struggling, adjust down
	seedSubject(t, db, "science", 10, 8, 0.75) // fine, keep
	seedSubject(t, db, "history", 2, 0, 0)     // too thin, keep

	got, err := svc.AnalyzeSubjects(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("AnalyzeSubjects() error = %v", err)
	}

	want := map[string]int{
		"math":    AdjustUp,
		"english": AdjustDown,
		"science": AdjustKeep,
		"history": AdjustKeep,
	}
	if len(got) != len(want) {
		t.Fatalf("AnalyzeSubjects() returned %d subjects, want %d", len(got), len(want))
	}
	for _, adj := range got {
		if adj.RecommendedAdjustment != want[adj.Subject] {
			t.Errorf("%s recommendation = %d, want %d (completion %.0f, accuracy %.2f)",
				adj.Subject, adj.RecommendedAdjustment, want[adj.Subject], adj.CompletionRate, adj.AverageAccuracy)
		}
	}
}

func TestSubjectsNeedingAdjustment(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	seedSubject(t, db, "math", 10, 10, 0.95)
	seedSubject(t, db, "science", 10, 8, 0.75)

	got, err := svc.SubjectsNeedingAdjustment(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("SubjectsNeedingAdjustment() error = %v", err)
	}
	if len(got) != 1 || got[0].Subject != "math" || got[0].RecommendedAdjustment != AdjustUp {
		t.Errorf("SubjectsNeedingAdjustment() = %+v, want math up", got)
	}
}

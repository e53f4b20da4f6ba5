/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package feedback

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

const day = "2026-08-31"

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.StudySession{}, &models.StudyPlan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, id string, estimated, actual int) {
	t.Helper()
	sess := models.StudySession{
		ID: id, StudentID: "stu-1", Date: day,
		EstimatedMinutes: estimated, ActualMinutes: actual, Completed: true,
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func seedPlans(t *testing.T, db *gorm.DB, total, completed int) {
	t.Helper()
	for i := 0; i < total; i++ {
		status := models.PlanPlanned
		if i < completed {
			status = models.PlanCompleted
		}
		plan := models.StudyPlan{ID: fmt.Sprintf("p%d", i), StudentID: "stu-1", PlanDate: day, Status: status}
		if err := db.Create(&plan).Error; err != nil {
			t.Fatalf("seed plan: %v", err)
		}
	}
}

func TestGenerateNeutralOnEmptyDay(t *testing.T) {
	svc := New(testDB(t), zerolog.Nop())

	fb, err := svc.Generate(context.Background(), "stu-1", day)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if fb.EfficiencyRating != RatingGood || fb.WorkloadFactor != 1.0 || fb.SuggestRest {
		t.Errorf("Generate() = %+v, want neutral feedback", fb)
	}
}

func TestGenerateEfficiencyBands(t *testing.T) {
	tests := []struct {
		estimated int
		actual    int
		want      EfficiencyRating
	}{
		{100, 70, RatingExcellent},
		{100, 100, RatingGood},
		{100, 125, RatingAverage},
		{100, 150, RatingPoor},
	}

	for _, tt := range tests {
		db := testDB(t)
		svc := New(db, zerolog.Nop())
		seedSession(t, db, "s1", tt.estimated, tt.actual)

		fb, err := svc.Generate(context.Background(), "stu-1", day)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if fb.EfficiencyRating != tt.want {
			t.Errorf("rating for %d/%d = %v, want %v", tt.actual, tt.estimated, fb.EfficiencyRating, tt.want)
		}
	}
}

func TestGenerateRestAndWorkload(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	seedSession(t, db, "s1", 100, 110)
	seedSession(t, db, "s2", 90, 100)
	seedPlans(t, db, 4, 4)

	fb, err := svc.Generate(context.Background(), "stu-1", day)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !fb.SuggestRest {
		t.Errorf("SuggestRest = false with %d minutes studied", fb.MinutesStudied)
	}
	if fb.WorkloadFactor != WorkloadIncrease {
		t.Errorf("WorkloadFactor = %v, want increase %v", fb.WorkloadFactor, WorkloadIncrease)
	}
}

func TestGenerateWorkloadDecrease(t *testing.T) {
	db := testDB(t)
	svc := New(db, zerolog.Nop())

	seedPlans(t, db, 4, 1) // 25% completion across 4 plans

	fb, err := svc.Generate(context.Background(), "stu-1", day)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if fb.WorkloadFactor != WorkloadDecrease {
		t.Errorf("WorkloadFactor = %v, want decrease %v", fb.WorkloadFactor, WorkloadDecrease)
	}
}

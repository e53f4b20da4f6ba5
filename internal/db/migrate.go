/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Platform-level models
		&models.User{},
		&models.APIKey{},
		&models.AuditEntry{},

		// Student data
		&models.Student{},
		&models.TimeSlot{},
		&models.ExclusionDate{},
		&models.StudyPlan{},
		&models.StudySession{},

		// Content catalog
		&models.Lecture{},
		&models.LectureEpisode{},
		&models.Book{},

		// Messaging
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/studyflow/internal/db"
	"github.com/friendsincode/studyflow/internal/models"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database to a fresh state",
	Long: `Reset Studyflow to a fresh state.

Drops all tables, including users, students, plans, sessions, and the
audit trail, then re-creates the empty schema.

WARNING: This action is irreversible! All data will be lost.

Examples:
  # Interactive reset (will prompt for confirmation)
  studyflow reset

  # Force reset without confirmation
  studyflow reset --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println("This will DELETE ALL DATA from Studyflow:")
		fmt.Println("  - all users and API keys")
		fmt.Println("  - all students, time slots, and study plans")
		fmt.Println("  - all study sessions and analysis history")
		fmt.Println("  - all notifications and audit entries")
		fmt.Println()
		fmt.Print("Type 'yes' to confirm reset: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	logger.Info().Msg("starting database reset")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()

	tables := []any{
		&models.Notification{},
		&models.AuditEntry{},
		&models.APIKey{},
		&models.StudySession{},
		&models.StudyPlan{},
		&models.ExclusionDate{},
		&models.TimeSlot{},
		&models.LectureEpisode{},
		&models.Lecture{},
		&models.Book{},
		&models.Student{},
		&models.User{},
	}
	for _, table := range tables {
		if err := database.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table %T: %w", table, err)
		}
	}

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("re-create schema: %w", err)
	}

	logger.Info().Msg("database reset complete")
	return nil
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/friendsincode/studyflow/internal/auth"
	"github.com/friendsincode/studyflow/internal/db"
	"github.com/friendsincode/studyflow/internal/models"
)

var (
	bootstrapEmail    string
	bootstrapPassword string
	bootstrapAPIKey   bool
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial admin account",
	Long: `Creates the first admin user so the HTTP API can be used. Refuses to
run when an admin already exists. With --api-key an API key is issued
for the new account and printed once.

Examples:
  studyflow bootstrap --email admin@example.com --password secret
  studyflow bootstrap --email admin@example.com --password secret --api-key`,
	RunE: runBootstrap,
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapEmail, "email", "", "Admin email address (required)")
	bootstrapCmd.Flags().StringVar(&bootstrapPassword, "password", "", "Admin password (required)")
	bootstrapCmd.Flags().BoolVar(&bootstrapAPIKey, "api-key", false, "Also issue an API key and print it")
	bootstrapCmd.MarkFlagRequired("email")
	bootstrapCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var existing models.User
	err = database.Where("role = ?", models.RoleAdmin).First(&existing).Error
	if err == nil {
		return fmt.Errorf("an admin account already exists (%s)", existing.Email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check existing admins: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(bootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    bootstrapEmail,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.Info().Str("email", user.Email).Msg("admin account created")

	if bootstrapAPIKey {
		plaintext, apiKey, err := auth.GenerateAPIKey(user.ID, "bootstrap", 90*24*time.Hour)
		if err != nil {
			return fmt.Errorf("generate api key: %w", err)
		}
		if err := database.Create(apiKey).Error; err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
		fmt.Printf("API key (shown once): %s\n", plaintext)
	}

	return nil
}

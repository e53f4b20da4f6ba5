/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/studyflow/internal/db"
	"github.com/friendsincode/studyflow/internal/orchestrator"
)

var analyzeStudentID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-shot analysis for a student",
	Long: `Runs the full adaptation analysis for one student and prints the
health report as JSON. Useful for debugging tuning changes without
going through the HTTP API.

Examples:
  studyflow analyze --student 6f1c2a9e-...
  studyflow analyze --student 6f1c2a9e-... | jq .health_score`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeStudentID, "student", "", "Student ID to analyze (required)")
	analyzeCmd.MarkFlagRequired("student")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	orch := orchestrator.New(database, nil, logger)
	if t := cfg.Tuning; t.PaceAlpha != 0 || t.FatigueDailyMinutes != 0 || t.MinPlansForAdaptation != 0 || t.WorkloadIncrease != 0 || t.WorkloadDecrease != 0 {
		orch.ApplyTuning(orchestrator.Tuning{
			PaceAlpha:           t.PaceAlpha,
			FatigueDailyMinutes: t.FatigueDailyMinutes,
			MinPlansForDecrease: t.MinPlansForAdaptation,
			WorkloadIncrease:    t.WorkloadIncrease,
			WorkloadDecrease:    t.WorkloadDecrease,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := orch.Analyze(ctx, analyzeStudentID)
	if err != nil {
		return fmt.Errorf("analyze student %s: %w", analyzeStudentID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

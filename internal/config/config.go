/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSEnabled   bool
	NATSURL       string
	InstanceID    string

	// Optional tuning file for the adaptation engine.
	TuningPath string
	Tuning     Tuning
}

// Tuning overrides the adaptation engine's built-in parameters. Zero
// values mean "keep the default".
type Tuning struct {
	PaceAlpha             float64 `yaml:"pace_alpha"`
	FatigueDailyMinutes   int     `yaml:"fatigue_daily_minutes"`
	MinPlansForAdaptation int     `yaml:"min_plans_for_adaptation"`
	WorkloadIncrease      float64 `yaml:"workload_increase"`
	WorkloadDecrease      float64 `yaml:"workload_decrease"`
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("STUDYFLOW_ENV", "development"),
		HTTPBind:      getEnv("STUDYFLOW_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("STUDYFLOW_HTTP_PORT", 8080),
		BaseURL:       getEnv("STUDYFLOW_BASE_URL", ""),
		DBBackend:     DatabaseBackend(getEnv("STUDYFLOW_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("STUDYFLOW_DB_DSN", ""),
		JWTSigningKey: getEnv("STUDYFLOW_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("STUDYFLOW_METRICS_BIND", "127.0.0.1:9000"),

		TracingEnabled:    getEnvBool("STUDYFLOW_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("STUDYFLOW_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("STUDYFLOW_TRACING_SAMPLE_RATE", 1.0),

		RedisAddr:     getEnv("STUDYFLOW_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("STUDYFLOW_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("STUDYFLOW_REDIS_DB", 0),
		NATSEnabled:   getEnvBool("STUDYFLOW_NATS_ENABLED", false),
		NATSURL:       getEnv("STUDYFLOW_NATS_URL", "nats://localhost:4222"),
		InstanceID:    getEnv("STUDYFLOW_INSTANCE_ID", ""),

		TuningPath: getEnv("STUDYFLOW_TUNING_FILE", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("STUDYFLOW_DB_DSN must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("STUDYFLOW_JWT_SIGNING_KEY must be provided in production")
	}

	if cfg.TuningPath != "" {
		tuning, err := loadTuning(cfg.TuningPath)
		if err != nil {
			return nil, fmt.Errorf("load tuning file: %w", err)
		}
		cfg.Tuning = tuning
	}

	return cfg, nil
}

func loadTuning(path string) (Tuning, error) {
	var tuning Tuning
	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, err
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, err
	}
	return tuning, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

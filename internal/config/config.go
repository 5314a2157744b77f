/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
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
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Refresh pipeline configuration
	RefreshInterval time.Duration // how often scheduled refreshes are drained and dispatched

	// Redis profile cache (optional; caching is skipped when addr is empty)
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	// NATS refresh dispatch (optional; tasks are logged locally when empty)
	NATSURL     string
	NATSSubject string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnv("SHELLFF_ENV", "development"),
		HTTPBind:        getEnv("SHELLFF_HTTP_BIND", "0.0.0.0"),
		HTTPPort:        getEnvInt("SHELLFF_HTTP_PORT", 8080),
		DBBackend:       DatabaseBackend(getEnv("SHELLFF_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:           getEnv("SHELLFF_DB_DSN", ""),
		RefreshInterval: time.Duration(getEnvInt("SHELLFF_REFRESH_INTERVAL_SECONDS", 60)) * time.Second,
		RedisAddr:       getEnv("SHELLFF_REDIS_ADDR", ""),
		RedisPassword:   getEnv("SHELLFF_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("SHELLFF_REDIS_DB", 0),
		ProfileCacheTTL: time.Duration(getEnvInt("SHELLFF_PROFILE_CACHE_TTL_SECONDS", 300)) * time.Second,
		NATSURL:         getEnv("SHELLFF_NATS_URL", ""),
		NATSSubject:     getEnv("SHELLFF_NATS_SUBJECT", "shellff.index.refresh"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SHELLFF_DB_DSN must be provided")
	}

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("SHELLFF_REFRESH_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

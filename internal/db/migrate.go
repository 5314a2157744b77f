/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Catalog
		&models.Release{},
		&models.ReleaseTrack{},

		// Derived signal side-tables (written by the analytics rollup job,
		// read-only from this service)
		&models.ReleaseSignal{},
		&models.TrackSignal{},
		&models.ListenerProfile{},

		// Observability
		&models.AuditLog{},
		&models.UsageEvent{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return nil
}

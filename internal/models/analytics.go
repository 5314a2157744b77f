/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// UsageEvent stores fire-and-forget product telemetry. Rows are written by the
// analytics recorder off the hot path; readers are offline reporting jobs.
type UsageEvent struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(64);index;not null" json:"name"`
	UserID    *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Target    string         `gorm:"type:varchar(64)" json:"target,omitempty"`
	Details   map[string]any `gorm:"type:jsonb;serializer:json" json:"details"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName returns the table name for GORM.
func (UsageEvent) TableName() string {
	return "usage_events"
}

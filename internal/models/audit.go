/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for catalog pipeline operations.
const (
	AuditActionCatalogSearch   AuditAction = "catalog.search"
	AuditActionRefreshSchedule AuditAction = "catalog.refresh_schedule"
	AuditActionFullRebuild     AuditAction = "catalog.full_rebuild"
)

// AuditLog records pipeline actions for traceability.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	UserID       *string        `gorm:"type:uuid;index:idx_audit_user" json:"user_id,omitempty"` // NULL for system actions
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type"`
	ResourceID   string         `gorm:"type:varchar(64)" json:"resource_id"`
	Details      map[string]any `gorm:"type:jsonb;serializer:json" json:"details"`
	RequestID    string         `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}

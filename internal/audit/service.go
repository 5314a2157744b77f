/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit
// entries. A failed write is logged and dropped; audit persistence is never
// part of the originating operation's success contract.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	searchEvents := s.bus.Subscribe(events.EventAuditSearch)
	refreshEvents := s.bus.Subscribe(events.EventAuditRefreshSchedule)
	rebuildEvents := s.bus.Subscribe(events.EventAuditFullRebuild)

	defer func() {
		s.bus.Unsubscribe(events.EventAuditSearch, searchEvents)
		s.bus.Unsubscribe(events.EventAuditRefreshSchedule, refreshEvents)
		s.bus.Unsubscribe(events.EventAuditFullRebuild, rebuildEvents)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-searchEvents:
			s.logAuditEntry(ctx, models.AuditActionCatalogSearch, "catalog", payload)

		case payload := <-refreshEvents:
			s.logAuditEntry(ctx, models.AuditActionRefreshSchedule, "release", payload)

		case payload := <-rebuildEvents:
			s.logAuditEntry(ctx, models.AuditActionFullRebuild, "catalog", payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, resourceType string, payload events.Payload) {
	entry := &models.AuditLog{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Action:       action,
		ResourceType: resourceType,
		Details:      make(map[string]any),
		CreatedAt:    time.Now(),
	}

	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if releaseID, ok := payload["release_id"].(string); ok {
		entry.ResourceID = releaseID
	}
	if requestID, ok := payload["request_id"].(string); ok {
		entry.RequestID = requestID
	}

	for k, v := range payload {
		switch k {
		case "user_id", "release_id", "request_id":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID    *string
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit logs with filters, newest first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

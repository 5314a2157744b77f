/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package analytics records fire-and-forget usage telemetry. Recording
// failures are logged and dropped; they never propagate to the operation
// that produced the event.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
)

// Recorder persists usage events published on the bus.
type Recorder struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewRecorder creates a usage event recorder.
func NewRecorder(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Recorder {
	return &Recorder{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// Start subscribes to usage events and persists them until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	subscribed := []events.EventType{
		events.EventUsageSearch,
		events.EventUsagePersonalizationApplied,
		events.EventUsageProfileUnavailable,
		events.EventUsageRefreshScheduled,
		events.EventUsageRefreshDispatch,
	}

	channels := make([]events.Subscriber, 0, len(subscribed))
	for _, eventType := range subscribed {
		channels = append(channels, r.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range subscribed {
			r.bus.Unsubscribe(eventType, channels[i])
		}
	}()

	r.logger.Info().Msg("analytics recorder started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("analytics recorder stopping")
			return

		case payload := <-channels[0]:
			r.Record(ctx, string(events.EventUsageSearch), payload)
		case payload := <-channels[1]:
			r.Record(ctx, string(events.EventUsagePersonalizationApplied), payload)
		case payload := <-channels[2]:
			r.Record(ctx, string(events.EventUsageProfileUnavailable), payload)
		case payload := <-channels[3]:
			r.Record(ctx, string(events.EventUsageRefreshScheduled), payload)
		case payload := <-channels[4]:
			r.Record(ctx, string(events.EventUsageRefreshDispatch), payload)
		}
	}
}

// Record writes one usage event row. Errors are contained here.
func (r *Recorder) Record(ctx context.Context, name string, payload events.Payload) {
	event := &models.UsageEvent{
		ID:        uuid.NewString(),
		Name:      name,
		Details:   make(map[string]any),
		CreatedAt: time.Now(),
	}

	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		event.UserID = &userID
	}
	if releaseID, ok := payload["release_id"].(string); ok {
		event.Target = releaseID
	}

	for k, v := range payload {
		switch k {
		case "user_id", "release_id":
		default:
			event.Details[k] = v
		}
	}

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.logger.Warn().Err(err).Str("name", name).Msg("failed to record usage event")
	}
}

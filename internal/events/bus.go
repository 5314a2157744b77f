/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Catalog mutation events published by the data-access layer after a
	// write to releases or release_tracks completes.
	EventReleaseMutated EventType = "catalog.release_mutated"
	EventTrackMutated   EventType = "catalog.track_mutated"

	// Audit events (consumed by the audit service).
	EventAuditSearch          EventType = "audit.catalog.search"
	EventAuditRefreshSchedule EventType = "audit.catalog.refresh_schedule"
	EventAuditFullRebuild     EventType = "audit.catalog.full_rebuild"

	// Usage telemetry events (consumed by the analytics recorder).
	EventUsageSearch                 EventType = "usage.catalog.search"
	EventUsagePersonalizationApplied EventType = "usage.personalization.applied"
	EventUsageProfileUnavailable     EventType = "usage.personalization.profile_unavailable"
	EventUsageRefreshScheduled       EventType = "usage.catalog.refresh_scheduled"
	EventUsageRefreshDispatch        EventType = "usage.catalog.refresh_dispatch"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Publishing never blocks: a
// subscriber that cannot keep up drops events rather than stalling the
// publisher, which keeps telemetry off the critical path.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers without blocking.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}

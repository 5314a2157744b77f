/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package refresh maintains the deduplicated in-memory queue of index refresh
// tasks and the watcher that feeds and drains it. Pending tasks do not
// survive a restart; the full-rebuild path compensates.
package refresh

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/telemetry"
)

// Reason records why a refresh was requested.
type Reason string

const (
	ReasonReleaseMutated Reason = "release-mutated"
	ReasonTrackMutated   Reason = "track-mutated"
	ReasonManualRebuild  Reason = "manual-rebuild"
)

// DefaultRegion is used when a schedule call names no regions.
const DefaultRegion = "global"

// Task is one unit of "recompute ranking signals for this release in these
// regions". Identity is releaseID + sorted regions + reason; a newer schedule
// under the same identity replaces the older task outright.
type Task struct {
	ReleaseID   string    `json:"release_id"`
	Regions     []string  `json:"regions"`
	Reason      Reason    `json:"reason"`
	ScheduledAt time.Time `json:"scheduled_at"`
	TriggeredBy *string   `json:"triggered_by,omitempty"`
}

// Key returns the dedup identity of the task.
func (t Task) Key() string {
	return taskKey(t.ReleaseID, t.Regions, t.Reason)
}

// ScheduleInput is a refresh request.
type ScheduleInput struct {
	ReleaseID   string
	Regions     []string
	Reason      Reason
	TriggeredBy *string
}

// Scheduler owns the pending task map. Enqueue and drain take the same lock,
// so a drain is always an exhaustive snapshot and no enqueue is lost between
// drains.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]Task

	bus    *events.Bus
	logger zerolog.Logger
	now    func() time.Time
}

// NewScheduler creates a refresh scheduler.
func NewScheduler(bus *events.Bus, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		pending: make(map[string]Task),
		bus:     bus,
		logger:  logger.With().Str("component", "refresh_scheduler").Logger(),
		now:     time.Now,
	}
}

// ScheduleRegionalRefresh enqueues a task, replacing any pending task with
// the same identity (last write wins). Every call emits one audit and one
// usage event regardless of whether it was a fresh enqueue or a replacement.
func (s *Scheduler) ScheduleRegionalRefresh(in ScheduleInput) {
	if in.ReleaseID == "" {
		return
	}

	task := Task{
		ReleaseID:   in.ReleaseID,
		Regions:     normalizeRegions(in.Regions),
		Reason:      in.Reason,
		ScheduledAt: s.now(),
		TriggeredBy: in.TriggeredBy,
	}

	s.mu.Lock()
	s.pending[task.Key()] = task
	depth := len(s.pending)
	s.mu.Unlock()

	telemetry.RefreshTasksScheduled.WithLabelValues(string(in.Reason)).Inc()
	telemetry.RefreshQueueDepth.Set(float64(depth))

	payload := events.Payload{
		"release_id": task.ReleaseID,
		"regions":    task.Regions,
		"reason":     string(task.Reason),
	}
	if task.TriggeredBy != nil {
		payload["user_id"] = *task.TriggeredBy
	}
	s.bus.Publish(events.EventAuditRefreshSchedule, payload)
	s.bus.Publish(events.EventUsageRefreshScheduled, payload)

	s.logger.Debug().
		Str("release_id", task.ReleaseID).
		Strs("regions", task.Regions).
		Str("reason", string(task.Reason)).
		Msg("refresh scheduled")
}

// DrainScheduledRefreshes atomically removes and returns every pending task.
// An immediate second call returns an empty slice.
func (s *Scheduler) DrainScheduledRefreshes() []Task {
	s.mu.Lock()
	drained := s.pending
	s.pending = make(map[string]Task)
	s.mu.Unlock()

	telemetry.RefreshQueueDepth.Set(0)

	tasks := make([]Task, 0, len(drained))
	for _, task := range drained {
		tasks = append(tasks, task)
	}
	return tasks
}

// ProcessScheduledRefreshes drains the queue and, when anything was pending,
// emits one usage event carrying the drained count. The caller dispatches
// the returned tasks.
func (s *Scheduler) ProcessScheduledRefreshes() []Task {
	tasks := s.DrainScheduledRefreshes()
	if len(tasks) == 0 {
		return tasks
	}

	s.bus.Publish(events.EventUsageRefreshDispatch, events.Payload{
		"task_count": len(tasks),
	})

	s.logger.Info().Int("task_count", len(tasks)).Msg("refresh queue drained")
	return tasks
}

// PendingCount reports the current queue depth.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// PendingKeys reports the dedup keys currently queued, sorted.
func (s *Scheduler) PendingKeys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for key := range s.pending {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// normalizeRegions deduplicates and sorts region codes so that permutations
// of the same set collide to one task. Empty input defaults to ["global"].
func normalizeRegions(regions []string) []string {
	seen := make(map[string]struct{}, len(regions))
	normalized := make([]string, 0, len(regions))
	for _, region := range regions {
		region = strings.TrimSpace(region)
		if region == "" {
			continue
		}
		if _, dup := seen[region]; dup {
			continue
		}
		seen[region] = struct{}{}
		normalized = append(normalized, region)
	}
	if len(normalized) == 0 {
		return []string{DefaultRegion}
	}
	sort.Strings(normalized)
	return normalized
}

func taskKey(releaseID string, regions []string, reason Reason) string {
	return releaseID + "|" + strings.Join(regions, ",") + "|" + string(reason)
}

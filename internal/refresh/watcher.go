/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/telemetry"
)

// DefaultInterval bounds the staleness window for ranking signals.
const DefaultInterval = 60 * time.Second

// Dispatcher hands drained tasks to the external reindexing service.
type Dispatcher interface {
	Dispatch(ctx context.Context, tasks []Task) error
}

// ReleaseLister enumerates the catalog for full rebuilds.
type ReleaseLister interface {
	AllReleaseIDs(ctx context.Context) ([]string, error)
}

// Watcher converts catalog mutation events into refresh tasks and drives the
// periodic drain/dispatch loop. It subscribes to the mutation events the
// data-access callbacks publish, so it has no coupling to GORM itself.
type Watcher struct {
	scheduler  *Scheduler
	bus        *events.Bus
	dispatcher Dispatcher
	releases   ReleaseLister
	logger     zerolog.Logger
	interval   time.Duration

	// dispatchMu serializes drain+dispatch so concurrent triggers (timer,
	// DispatchNow, shutdown) cannot interleave batches.
	dispatchMu sync.Mutex
}

// NewWatcher creates a mutation watcher.
func NewWatcher(scheduler *Scheduler, bus *events.Bus, dispatcher Dispatcher, releases ReleaseLister, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		scheduler:  scheduler,
		bus:        bus,
		dispatcher: dispatcher,
		releases:   releases,
		logger:     logger.With().Str("component", "mutation_watcher").Logger(),
		interval:   interval,
	}
}

// Start subscribes to mutation events and runs the periodic dispatch loop
// until the context is cancelled. Dispatch runs on its own goroutine, fed by
// a single-slot trigger: a slow dispatcher must never stop this loop from
// consuming mutation events, or the bus would drop them once the subscriber
// buffer fills. One final drain runs on shutdown so tasks enqueued just
// before exit still get dispatched.
func (w *Watcher) Start(ctx context.Context) {
	releaseMutated := w.bus.Subscribe(events.EventReleaseMutated)
	trackMutated := w.bus.Subscribe(events.EventTrackMutated)
	defer func() {
		w.bus.Unsubscribe(events.EventReleaseMutated, releaseMutated)
		w.bus.Unsubscribe(events.EventTrackMutated, trackMutated)
	}()

	trigger := make(chan struct{}, 1)
	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		for range trigger {
			w.dispatchPending(ctx)
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("mutation watcher started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("mutation watcher stopping")
			close(trigger)
			dispatchWG.Wait()
			w.dispatchPending(context.Background())
			return

		case payload := <-releaseMutated:
			w.HandleMutation(ReasonReleaseMutated, payload)

		case payload := <-trackMutated:
			w.HandleMutation(ReasonTrackMutated, payload)

		case <-ticker.C:
			// Coalesce: if a dispatch is already running or queued, this
			// tick's work rides along with the pending trigger.
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

// HandleMutation schedules one refresh per release id carried by a mutation
// event. Exported so synthetic events can drive it directly in tests.
func (w *Watcher) HandleMutation(reason Reason, payload events.Payload) {
	ids, _ := payload["release_ids"].([]string)
	if len(ids) == 0 {
		return
	}

	var triggeredBy *string
	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		triggeredBy = &userID
	}

	for _, releaseID := range ids {
		if releaseID == "" {
			continue
		}
		w.scheduler.ScheduleRegionalRefresh(ScheduleInput{
			ReleaseID:   releaseID,
			Reason:      reason,
			TriggeredBy: triggeredBy,
		})
	}
}

// TriggerFullRebuild schedules one manual-rebuild task per release in the
// catalog, bypassing mutation detection. This is the recovery path after
// watcher downtime or schema migrations. Returns the number of releases
// scheduled.
func (w *Watcher) TriggerFullRebuild(ctx context.Context, regions []string, triggeredBy *string) (int, error) {
	ids, err := w.releases.AllReleaseIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("full rebuild: %w", err)
	}

	for _, releaseID := range ids {
		w.scheduler.ScheduleRegionalRefresh(ScheduleInput{
			ReleaseID:   releaseID,
			Regions:     regions,
			Reason:      ReasonManualRebuild,
			TriggeredBy: triggeredBy,
		})
	}

	payload := events.Payload{
		"release_count": len(ids),
		"regions":       normalizeRegions(regions),
	}
	if triggeredBy != nil {
		payload["user_id"] = *triggeredBy
	}
	w.bus.Publish(events.EventAuditFullRebuild, payload)

	w.logger.Info().Int("release_count", len(ids)).Msg("full rebuild scheduled")
	return len(ids), nil
}

// DispatchNow drains the queue and dispatches immediately, outside the timer.
// Used by the rebuild CLI and by shutdown.
func (w *Watcher) DispatchNow(ctx context.Context) int {
	return w.dispatchPending(ctx)
}

func (w *Watcher) dispatchPending(ctx context.Context) int {
	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()

	tasks := w.scheduler.ProcessScheduledRefreshes()
	if len(tasks) == 0 {
		return 0
	}

	if err := w.dispatcher.Dispatch(ctx, tasks); err != nil {
		// Dispatch failure loses this batch; the next mutation or a manual
		// rebuild re-enqueues the affected releases.
		w.logger.Error().Err(err).Int("task_count", len(tasks)).Msg("refresh dispatch failed")
		return 0
	}

	telemetry.RefreshTasksDispatched.Add(float64(len(tasks)))
	return len(tasks)
}

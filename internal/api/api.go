/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface of the catalog pipeline. Request
// validation happens here; the services below assume validated inputs.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/actor"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/audit"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/refresh"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/search"
)

// API exposes HTTP handlers.
type API struct {
	searchSvc *search.Service
	scheduler *refresh.Scheduler
	watcher   *refresh.Watcher
	auditSvc  *audit.Service
	logger    zerolog.Logger
}

// New creates the API handler set.
func New(searchSvc *search.Service, scheduler *refresh.Scheduler, watcher *refresh.Watcher, auditSvc *audit.Service, logger zerolog.Logger) *API {
	return &API{
		searchSvc: searchSvc,
		scheduler: scheduler,
		watcher:   watcher,
		auditSvc:  auditSvc,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts the catalog pipeline routes.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/search", a.handleSearch)
		r.Post("/catalog/reindex", a.handleReindex)
		r.Get("/catalog/refresh-queue", a.handleRefreshQueue)
		r.Get("/audit", a.handleAuditQuery)
	})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}

	releaseTake, ok := parseTake(q.Get("take"), q.Get("release_take"))
	if !ok {
		writeError(w, http.StatusBadRequest, "release take must be between 1 and 50")
		return
	}
	trackTake, ok := parseTake(q.Get("track_take"), "")
	if !ok {
		writeError(w, http.StatusBadRequest, "track take must be between 1 and 50")
		return
	}

	userID := q.Get("user_id")
	if id, ok := actor.UserIDFromContext(r.Context()); ok {
		userID = id
	}

	resp, err := a.searchSvc.Search(r.Context(), search.Request{
		Query:        query,
		ReleaseTake:  releaseTake,
		TrackTake:    trackTake,
		Region:       q.Get("region"),
		Personalized: q.Get("personalized") == "true",
		UserID:       userID,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("query", query).Msg("catalog search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type reindexRequest struct {
	Regions []string `json:"regions"`
}

func (a *API) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil {
		// Body is optional; an empty body rebuilds for the default region.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var triggeredBy *string
	if userID, ok := actor.UserIDFromContext(r.Context()); ok {
		triggeredBy = &userID
	}

	count, err := a.watcher.TriggerFullRebuild(r.Context(), req.Regions, triggeredBy)
	if err != nil {
		a.logger.Error().Err(err).Msg("full rebuild failed")
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"scheduled": count,
	})
}

func (a *API) handleRefreshQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": a.scheduler.PendingCount(),
		"keys":    a.scheduler.PendingKeys(),
	})
}

func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := audit.QueryFilters{
		Limit:  100,
		Offset: 0,
	}
	if userID := q.Get("user_id"); userID != "" {
		filters.UserID = &userID
	}
	if action := q.Get("action"); action != "" {
		a := models.AuditAction(action)
		filters.Action = &a
	}
	if start := q.Get("start"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			filters.StartTime = &t
		}
	}
	if end := q.Get("end"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			filters.EndTime = &t
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 500 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filters.Offset = offset
	}

	logs, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}

// parseTake validates a take parameter. The first non-empty value wins;
// absent values default inside the search service.
func parseTake(values ...string) (int, bool) {
	for _, value := range values {
		if value == "" {
			continue
		}
		take, err := strconv.Atoi(value)
		if err != nil || take < 1 || take > search.MaxTake {
			return 0, false
		}
		return take, true
	}
	return 0, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

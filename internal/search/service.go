/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package search orchestrates catalog search: candidate fetch, signal fetch,
// relevance scoring, personalization, and result assembly.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/ranking"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/telemetry"
)

// Take limits. The HTTP boundary rejects anything above MaxTake before it
// reaches this service.
const (
	DefaultTake = 20
	MaxTake     = 50
)

// DefaultRegion is the effective region when a request does not name one.
const DefaultRegion = "global"

// Catalog is the data access needed by the search service.
type Catalog interface {
	SearchReleases(ctx context.Context, query string, limit int) ([]models.Release, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]models.ReleaseTrack, error)
	ReleasesByIDs(ctx context.Context, ids []string) (map[string]models.Release, error)
	ReleaseSignals(ctx context.Context, ids []string) (map[string]models.ReleaseSignal, error)
	TrackSignals(ctx context.Context, ids []string) (map[string]models.TrackSignal, error)
	ListenerProfile(ctx context.Context, userID string) (*models.ListenerProfile, error)
}

// Service performs catalog searches.
type Service struct {
	catalog Catalog
	bus     *events.Bus
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a search service.
func NewService(catalog Catalog, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		bus:     bus,
		logger:  logger.With().Str("component", "catalog_search").Logger(),
		now:     time.Now,
	}
}

// Request is a validated search request.
type Request struct {
	Query        string
	ReleaseTake  int
	TrackTake    int
	Region       string
	Personalized bool
	UserID       string
}

// SignalSummary echoes the raw signals a result was scored with.
type SignalSummary struct {
	PlayCount       int64    `json:"play_count"`
	EditorialWeight int      `json:"editorial_weight"`
	Genres          []string `json:"genres"`
}

// ReleaseResult is one scored release.
type ReleaseResult struct {
	Release         models.Release           `json:"release"`
	Score           float64                  `json:"score"`
	Breakdown       ranking.Breakdown        `json:"breakdown"`
	Signals         SignalSummary            `json:"signals"`
	Personalization *ranking.Personalization `json:"personalization"`
}

// TrackResult is one scored track.
type TrackResult struct {
	Track           models.ReleaseTrack      `json:"track"`
	Score           float64                  `json:"score"`
	Breakdown       ranking.Breakdown        `json:"breakdown"`
	Signals         SignalSummary            `json:"signals"`
	Personalization *ranking.Personalization `json:"personalization"`
}

// PersonalizationMeta summarizes the personalization outcome of a search.
type PersonalizationMeta struct {
	Requested          bool           `json:"requested"`
	Applied            bool           `json:"applied"`
	ProfileUnavailable bool           `json:"profile_unavailable"`
	ReasonCounts       map[string]int `json:"reason_counts"`
}

// Meta is the search response metadata.
type Meta struct {
	Query           string              `json:"query"`
	Region          string              `json:"region"`
	Personalization PersonalizationMeta `json:"personalization"`
}

// Response is a complete search result.
type Response struct {
	Releases []ReleaseResult `json:"releases"`
	Tracks   []TrackResult   `json:"tracks"`
	Meta     Meta            `json:"meta"`
}

// Search runs a catalog search. Only candidate-fetch failures propagate;
// personalization and telemetry degrade without failing the call.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	started := s.now()

	region := req.Region
	if region == "" {
		region = DefaultRegion
	}
	releaseTake := clampTake(req.ReleaseTake)
	trackTake := clampTake(req.TrackTake)

	resp := &Response{
		Releases: []ReleaseResult{},
		Tracks:   []TrackResult{},
		Meta: Meta{
			Query:  req.Query,
			Region: region,
			Personalization: PersonalizationMeta{
				Requested:    req.Personalized,
				ReasonCounts: map[string]int{},
			},
		},
	}

	if req.Query == "" {
		s.emitSearchEvents(req, resp)
		return resp, nil
	}

	releases, err := s.catalog.SearchReleases(ctx, req.Query, releaseTake)
	if err != nil {
		return nil, err
	}
	tracks, err := s.catalog.SearchTracks(ctx, req.Query, trackTake)
	if err != nil {
		return nil, err
	}

	// Signal fetches are bounded to the candidate ids from the page above.
	releaseIDs := make([]string, 0, len(releases))
	for _, release := range releases {
		releaseIDs = append(releaseIDs, release.ID)
	}
	trackIDs := make([]string, 0, len(tracks))
	trackReleaseIDSet := make(map[string]struct{}, len(tracks))
	trackReleaseIDs := make([]string, 0, len(tracks))
	for _, track := range tracks {
		trackIDs = append(trackIDs, track.ID)
		if _, ok := trackReleaseIDSet[track.ReleaseID]; !ok {
			trackReleaseIDSet[track.ReleaseID] = struct{}{}
			trackReleaseIDs = append(trackReleaseIDs, track.ReleaseID)
		}
	}

	releaseSignals, err := s.catalog.ReleaseSignals(ctx, releaseIDs)
	if err != nil {
		return nil, err
	}
	trackSignals, err := s.catalog.TrackSignals(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	trackReleases, err := s.catalog.ReleasesByIDs(ctx, trackReleaseIDs)
	if err != nil {
		return nil, err
	}

	profile := s.loadProfile(ctx, req, &resp.Meta.Personalization)
	now := s.now()

	for _, release := range releases {
		sig := releaseSignals[release.ID]
		result := ranking.Score(ranking.Candidate{
			Kind:      ranking.KindRelease,
			CreatorID: release.CreatorID,
			CreatedAt: release.CreatedAt,
			Signals: ranking.Signals{
				PlayCount:       float64(sig.PlayCount),
				EditorialWeight: float64(sig.EditorialWeight),
				Genres:          sig.Genres,
			},
		}, profile, now)

		resp.Releases = append(resp.Releases, ReleaseResult{
			Release:   release,
			Score:     result.Score,
			Breakdown: result.Breakdown,
			Signals: SignalSummary{
				PlayCount:       sig.PlayCount,
				EditorialWeight: sig.EditorialWeight,
				Genres:          sig.Genres,
			},
			Personalization: result.Personalization,
		})
	}

	for _, track := range tracks {
		sig := trackSignals[track.ID]
		// Personalization matches against the owning release's creator.
		creatorID := ""
		if release, ok := trackReleases[track.ReleaseID]; ok {
			creatorID = release.CreatorID
		}

		result := ranking.Score(ranking.Candidate{
			Kind:      ranking.KindTrack,
			CreatorID: creatorID,
			CreatedAt: track.CreatedAt,
			Signals: ranking.Signals{
				PlayCount:       float64(sig.PlayCount),
				EditorialWeight: float64(sig.EditorialWeight),
				Genres:          sig.Genres,
			},
		}, profile, now)

		resp.Tracks = append(resp.Tracks, TrackResult{
			Track:     track,
			Score:     result.Score,
			Breakdown: result.Breakdown,
			Signals: SignalSummary{
				PlayCount:       sig.PlayCount,
				EditorialWeight: sig.EditorialWeight,
				Genres:          sig.Genres,
			},
			Personalization: result.Personalization,
		})
	}

	// Stable sort: ties keep candidate fetch order.
	sort.SliceStable(resp.Releases, func(i, j int) bool {
		return resp.Releases[i].Score > resp.Releases[j].Score
	})
	sort.SliceStable(resp.Tracks, func(i, j int) bool {
		return resp.Tracks[i].Score > resp.Tracks[j].Score
	})

	for _, result := range resp.Releases {
		if result.Personalization == nil {
			continue
		}
		for _, reason := range result.Personalization.Reasons {
			resp.Meta.Personalization.ReasonCounts[reason]++
		}
	}

	telemetry.SearchesTotal.WithLabelValues(boolLabel(req.Personalized)).Inc()
	telemetry.SearchDuration.Observe(s.now().Sub(started).Seconds())

	s.emitSearchEvents(req, resp)
	return resp, nil
}

// loadProfile fetches the listener profile when personalization is requested.
// Absent profiles and fetch failures both degrade to an un-personalized
// search; only the metadata flags distinguish the outcomes to the caller.
func (s *Service) loadProfile(ctx context.Context, req Request, meta *PersonalizationMeta) *ranking.Profile {
	if !req.Personalized || req.UserID == "" {
		return nil
	}

	profile, err := s.catalog.ListenerProfile(ctx, req.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("listener profile fetch failed, continuing without personalization")
		meta.ProfileUnavailable = true
		return nil
	}
	if profile == nil {
		meta.ProfileUnavailable = true
		return nil
	}

	meta.Applied = true
	return &ranking.Profile{
		FavoriteGenres:   profile.FavoriteGenres,
		FollowedCreators: profile.FollowedCreators,
	}
}

func (s *Service) emitSearchEvents(req Request, resp *Response) {
	payload := events.Payload{
		"query":         req.Query,
		"region":        resp.Meta.Region,
		"release_count": len(resp.Releases),
		"track_count":   len(resp.Tracks),
		"personalized":  req.Personalized,
		"applied":       resp.Meta.Personalization.Applied,
	}
	if req.UserID != "" {
		payload["user_id"] = req.UserID
	}

	s.bus.Publish(events.EventAuditSearch, payload)
	s.bus.Publish(events.EventUsageSearch, payload)

	if resp.Meta.Personalization.Applied {
		s.bus.Publish(events.EventUsagePersonalizationApplied, events.Payload{
			"query":   req.Query,
			"user_id": req.UserID,
		})
	}
	if req.Personalized && resp.Meta.Personalization.ProfileUnavailable {
		s.bus.Publish(events.EventUsageProfileUnavailable, events.Payload{
			"query":   req.Query,
			"user_id": req.UserID,
		})
	}
}

func clampTake(take int) int {
	if take <= 0 {
		return DefaultTake
	}
	if take > MaxTake {
		return MaxTake
	}
	return take
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

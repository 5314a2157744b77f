/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog is the data-access layer for catalog candidates, aggregated
// ranking signals, and listener personalization profiles. No ranking logic
// lives here.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
)

const profileCacheKeyPrefix = "shellff:cache:profile:"

// Repository reads catalog rows and signal side-tables. The Redis client is
// optional; with a nil client every profile read goes straight to the store.
type Repository struct {
	db         *gorm.DB
	redis      *redis.Client
	logger     zerolog.Logger
	profileTTL time.Duration
}

// NewRepository creates a catalog repository.
func NewRepository(db *gorm.DB, redisClient *redis.Client, profileTTL time.Duration, logger zerolog.Logger) *Repository {
	if profileTTL <= 0 {
		profileTTL = 5 * time.Minute
	}
	return &Repository{
		db:         db,
		redis:      redisClient,
		logger:     logger.With().Str("component", "catalog_repository").Logger(),
		profileTTL: profileTTL,
	}
}

// SearchReleases returns up to limit releases whose title or description
// contains the query, case-insensitive, newest first.
func (r *Repository) SearchReleases(ctx context.Context, query string, limit int) ([]models.Release, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var releases []models.Release
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}
	return releases, nil
}

// SearchTracks returns up to limit tracks whose title contains the query,
// case-insensitive, ordered by intra-release position.
func (r *Repository) SearchTracks(ctx context.Context, query string, limit int) ([]models.ReleaseTrack, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var tracks []models.ReleaseTrack
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ?", pattern).
		Order("position ASC").
		Limit(limit).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	return tracks, nil
}

// ReleasesByIDs fetches the given releases, keyed by id. Used to resolve the
// owning release of track candidates; the id list is always bounded by the
// requested page size.
func (r *Repository) ReleasesByIDs(ctx context.Context, ids []string) (map[string]models.Release, error) {
	result := make(map[string]models.Release, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var releases []models.Release
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&releases).Error; err != nil {
		return nil, fmt.Errorf("releases by ids: %w", err)
	}
	for _, release := range releases {
		result[release.ID] = release
	}
	return result, nil
}

// ReleaseSignals batch-fetches signal rows for the given release ids. Missing
// rows are simply absent from the map; callers score those at zero.
func (r *Repository) ReleaseSignals(ctx context.Context, ids []string) (map[string]models.ReleaseSignal, error) {
	result := make(map[string]models.ReleaseSignal, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var signals []models.ReleaseSignal
	if err := r.db.WithContext(ctx).Where("release_id IN ?", ids).Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("release signals: %w", err)
	}
	for _, sig := range signals {
		result[sig.ReleaseID] = sig
	}
	return result, nil
}

// TrackSignals batch-fetches signal rows for the given track ids.
func (r *Repository) TrackSignals(ctx context.Context, ids []string) (map[string]models.TrackSignal, error) {
	result := make(map[string]models.TrackSignal, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var signals []models.TrackSignal
	if err := r.db.WithContext(ctx).Where("track_id IN ?", ids).Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("track signals: %w", err)
	}
	for _, sig := range signals {
		result[sig.TrackID] = sig
	}
	return result, nil
}

// ListenerProfile fetches one listener's personalization profile, with a
// Redis read-through when a client is configured. A missing profile returns
// (nil, nil); only transport failures return an error.
func (r *Repository) ListenerProfile(ctx context.Context, userID string) (*models.ListenerProfile, error) {
	if userID == "" {
		return nil, nil
	}

	if cached := r.cachedProfile(ctx, userID); cached != nil {
		return cached, nil
	}

	var profile models.ListenerProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listener profile: %w", err)
	}

	r.cacheProfile(ctx, &profile)
	return &profile, nil
}

// AllReleaseIDs lists every release id in the catalog, for full rebuilds.
func (r *Repository) AllReleaseIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Release{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list release ids: %w", err)
	}
	return ids, nil
}

func (r *Repository) cachedProfile(ctx context.Context, userID string) *models.ListenerProfile {
	if r.redis == nil {
		return nil
	}

	data, err := r.redis.Get(ctx, profileCacheKeyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
		}
		return nil
	}

	var profile models.ListenerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("profile cache entry corrupt")
		return nil
	}
	return &profile
}

func (r *Repository) cacheProfile(ctx context.Context, profile *models.ListenerProfile) {
	if r.redis == nil {
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, profileCacheKeyPrefix+profile.UserID, data, r.profileTTL).Err(); err != nil {
		r.logger.Warn().Err(err).Str("user_id", profile.UserID).Msg("profile cache write failed")
	}
}

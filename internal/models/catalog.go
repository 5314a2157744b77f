/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ReleaseType enumerates catalog release formats.
type ReleaseType string

const (
	ReleaseTypeSingle      ReleaseType = "single"
	ReleaseTypeEP          ReleaseType = "ep"
	ReleaseTypeAlbum       ReleaseType = "album"
	ReleaseTypeCompilation ReleaseType = "compilation"
)

// Release is a catalog entry owned by a creator. Identity is immutable,
// metadata is not.
type Release struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string      `gorm:"index;not null" json:"title"`
	Description *string     `gorm:"type:text" json:"description,omitempty"`
	CoverArtKey string      `gorm:"type:varchar(512)" json:"cover_art_key"`
	ReleaseType ReleaseType `gorm:"type:varchar(16)" json:"release_type"`
	CreatorID   string      `gorm:"type:uuid;index;not null" json:"creator_id"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Release) TableName() string {
	return "releases"
}

// ReleaseTrack is one track within a release. Position orders tracks inside
// their release and is not globally unique.
type ReleaseTrack struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ReleaseID string    `gorm:"type:uuid;index;not null" json:"release_id"`
	Title     string    `gorm:"index;not null" json:"title"`
	Duration  *int      `json:"duration,omitempty"` // seconds
	Position  int       `gorm:"not null" json:"position"`
	AudioKey  string    `gorm:"type:varchar(512)" json:"audio_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ReleaseTrack) TableName() string {
	return "release_tracks"
}

// ReleaseSignal holds aggregated popularity and editorial signals for a
// release. Rows are written by the analytics rollup job; a missing row means
// zero plays and no editorial weight.
type ReleaseSignal struct {
	ReleaseID       string    `gorm:"type:uuid;primaryKey" json:"release_id"`
	PlayCount       int64     `gorm:"not null;default:0" json:"play_count"`
	EditorialWeight int       `gorm:"not null;default:0" json:"editorial_weight"`
	Genres          []string  `gorm:"type:jsonb;serializer:json" json:"genres"`
	TrendingRegions []string  `gorm:"type:jsonb;serializer:json" json:"trending_regions"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ReleaseSignal) TableName() string {
	return "release_signals"
}

// TrackSignal is the per-track analogue of ReleaseSignal.
type TrackSignal struct {
	TrackID         string    `gorm:"type:uuid;primaryKey" json:"track_id"`
	PlayCount       int64     `gorm:"not null;default:0" json:"play_count"`
	EditorialWeight int       `gorm:"not null;default:0" json:"editorial_weight"`
	Genres          []string  `gorm:"type:jsonb;serializer:json" json:"genres"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (TrackSignal) TableName() string {
	return "track_signals"
}

// ListenerProfile stores per-listener personalization signals. Not every
// listener has one; absence is the normal case, not an error.
type ListenerProfile struct {
	UserID           string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	FavoriteGenres   []string  `gorm:"type:jsonb;serializer:json" json:"favorite_genres"`
	FollowedCreators []string  `gorm:"type:jsonb;serializer:json" json:"followed_creators"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ListenerProfile) TableName() string {
	return "listener_profiles"
}

/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ranking turns raw catalog signals and an optional listener profile
// into a normalized composite relevance score. It performs no I/O.
package ranking

import (
	"math"
	"time"
)

// Base weights. They sum to 1.0 so an unboosted composite stays in [0,1].
const (
	popularityWeight = 0.6
	recencyWeight    = 0.3
	editorialWeightF = 0.1
)

// Normalization constants.
const (
	// playCountLogDivisor caps the normalized popularity at 1 around one
	// million plays: log10(1e6)/6 = 1.
	playCountLogDivisor = 6.0
	// editorialCap is the curator weight that saturates the editorial boost.
	editorialCap = 5.0
	// recencyHorizonDays is the age at which recency bottoms out at 0.
	recencyHorizonDays = 365.0
)

// Personalization boosts. Track matches weigh slightly less than release
// matches because they are one step removed from the creator relationship.
const (
	releaseFollowedCreatorBoost = 0.25
	releaseFavoredGenreBoost    = 0.15
	trackFollowedCreatorBoost   = 0.20
	trackFavoredGenreBoost      = 0.10
)

// Personalization reason tags reported on scored results.
const (
	ReasonFollowedCreator = "followed-creator"
	ReasonFavoredGenre    = "favored-genre"
)

// Kind distinguishes release and track candidates; it selects the boost tier.
type Kind string

const (
	KindRelease Kind = "release"
	KindTrack   Kind = "track"
)

// Signals are the raw aggregated inputs for one candidate. A candidate with
// no signal row scores with the zero value.
type Signals struct {
	PlayCount       float64
	EditorialWeight float64
	Genres          []string
}

// Profile carries a listener's personalization signals.
type Profile struct {
	FavoriteGenres   []string
	FollowedCreators []string
}

// Candidate is one scorable catalog entry. For tracks, CreatorID is the
// owning release's creator.
type Candidate struct {
	Kind      Kind
	CreatorID string
	CreatedAt time.Time
	Signals   Signals
}

// Breakdown reports the normalized per-signal scores behind a composite.
type Breakdown struct {
	Popularity float64 `json:"popularity"`
	Recency    float64 `json:"recency"`
	Editorial  float64 `json:"editorial"`
}

// Personalization explains how a listener profile affected a score. It is
// present whenever a profile was available, even with no matches.
type Personalization struct {
	Applied       bool     `json:"applied"`
	Reasons       []string `json:"reasons"`
	MatchedGenres []string `json:"matched_genres"`
	Multiplier    float64  `json:"multiplier"`
}

// Result is a fully scored candidate. Personalization is nil iff no profile
// was supplied.
type Result struct {
	Score           float64          `json:"score"`
	Breakdown       Breakdown        `json:"breakdown"`
	Personalization *Personalization `json:"personalization"`
}

// PopularityScore compresses heavy-tailed play counts into [0,1].
func PopularityScore(playCount float64) float64 {
	if playCount <= 0 || math.IsNaN(playCount) || math.IsInf(playCount, 0) {
		return 0
	}
	return math.Min(1, math.Log10(playCount+1)/playCountLogDivisor)
}

// RecencyScore decays linearly from 1 (brand new) to 0 at one year old.
func RecencyScore(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Seconds() / 86400
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Max(0, 1-math.Min(ageDays, recencyHorizonDays)/recencyHorizonDays)
}

// EditorialBoost normalizes curator-assigned weights into [0,1].
func EditorialBoost(weight float64) float64 {
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0
	}
	return math.Min(1, weight/editorialCap)
}

// Score computes the composite relevance for a candidate. The profile may be
// nil; scoring is fully deterministic.
func Score(c Candidate, profile *Profile, now time.Time) Result {
	breakdown := Breakdown{
		Popularity: PopularityScore(c.Signals.PlayCount),
		Recency:    RecencyScore(c.CreatedAt, now),
		Editorial:  EditorialBoost(c.Signals.EditorialWeight),
	}

	base := breakdown.Popularity*popularityWeight +
		breakdown.Recency*recencyWeight +
		breakdown.Editorial*editorialWeightF

	personalization := personalize(c, profile)

	multiplier := 1.0
	if personalization != nil {
		multiplier = personalization.Multiplier
	}

	return Result{
		Score:           base * multiplier,
		Breakdown:       breakdown,
		Personalization: personalization,
	}
}

// personalize computes the boost multiplier and its explanation. The two
// boosts are additive: a candidate can earn both in one score.
func personalize(c Candidate, profile *Profile) *Personalization {
	if profile == nil {
		return nil
	}

	creatorBoost := releaseFollowedCreatorBoost
	genreBoost := releaseFavoredGenreBoost
	if c.Kind == KindTrack {
		creatorBoost = trackFollowedCreatorBoost
		genreBoost = trackFavoredGenreBoost
	}

	p := &Personalization{
		Reasons:       []string{},
		MatchedGenres: []string{},
		Multiplier:    1.0,
	}

	if c.CreatorID != "" && containsString(profile.FollowedCreators, c.CreatorID) {
		p.Multiplier += creatorBoost
		p.Reasons = append(p.Reasons, ReasonFollowedCreator)
	}

	if matched := intersectStrings(c.Signals.Genres, profile.FavoriteGenres); len(matched) > 0 {
		p.Multiplier += genreBoost
		p.Reasons = append(p.Reasons, ReasonFavoredGenre)
		p.MatchedGenres = matched
	}

	p.Applied = len(p.Reasons) > 0
	return p
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func intersectStrings(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var matched []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			matched = append(matched, s)
		}
	}
	return matched
}

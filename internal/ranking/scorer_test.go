package ranking

import (
	"math"
	"testing"
	"time"
)

func TestPopularityScoreBounds(t *testing.T) {
	tests := []struct {
		name      string
		playCount float64
	}{
		{"zero", 0},
		{"negative", -10},
		{"one", 1},
		{"thousand", 1000},
		{"million", 1_000_000},
		{"billion", 1_000_000_000},
		{"nan", math.NaN()},
		{"positive_inf", math.Inf(1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score := PopularityScore(tc.playCount)
			if score < 0 || score > 1 {
				t.Fatalf("popularity score out of bounds: %f", score)
			}
		})
	}

	if PopularityScore(0) != 0 {
		t.Fatalf("expected zero plays to score 0")
	}
	if PopularityScore(math.NaN()) != 0 {
		t.Fatalf("expected NaN plays to score 0")
	}
	if got := PopularityScore(1_000_000); got != 1 {
		t.Fatalf("expected one million plays to saturate at 1, got %f", got)
	}
}

func TestPopularityScoreMonotonic(t *testing.T) {
	prev := -1.0
	for _, plays := range []float64{0, 1, 10, 500, 10_000, 250_000, 2_000_000} {
		score := PopularityScore(plays)
		if score < prev {
			t.Fatalf("popularity decreased at %f plays: %f < %f", plays, score, prev)
		}
		prev = score
	}
}

func TestRecencyScore(t *testing.T) {
	now := time.Now()

	if got := RecencyScore(now, now); got != 1 {
		t.Fatalf("brand-new item should score 1, got %f", got)
	}
	if got := RecencyScore(now.AddDate(0, 0, -400), now); got != 0 {
		t.Fatalf("items older than a year should score 0, got %f", got)
	}
	// Clock skew: createdAt in the future must not exceed 1.
	if got := RecencyScore(now.Add(48*time.Hour), now); got != 1 {
		t.Fatalf("future createdAt should clamp to 1, got %f", got)
	}

	prev := 2.0
	for _, days := range []int{0, 30, 180, 364, 365, 400} {
		score := RecencyScore(now.AddDate(0, 0, -days), now)
		if score < 0 || score > 1 {
			t.Fatalf("recency out of bounds at %d days: %f", days, score)
		}
		if score > prev {
			t.Fatalf("recency increased with age at %d days", days)
		}
		prev = score
	}
}

func TestEditorialBoostBounds(t *testing.T) {
	if EditorialBoost(0) != 0 || EditorialBoost(-3) != 0 {
		t.Fatalf("non-positive weights should score 0")
	}
	if EditorialBoost(math.Inf(1)) != 0 {
		t.Fatalf("non-finite weight should score 0")
	}
	if got := EditorialBoost(5); got != 1 {
		t.Fatalf("weight 5 should saturate at 1, got %f", got)
	}
	if got := EditorialBoost(100); got != 1 {
		t.Fatalf("weight above cap should stay at 1, got %f", got)
	}
	if got := EditorialBoost(2); math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("expected weight 2 to score 0.4, got %f", got)
	}
}

func TestScoreWithoutProfileHasNilPersonalization(t *testing.T) {
	result := Score(Candidate{
		Kind:      KindRelease,
		CreatorID: "creator-1",
		CreatedAt: time.Now(),
		Signals:   Signals{PlayCount: 100},
	}, nil, time.Now())

	if result.Personalization != nil {
		t.Fatalf("expected nil personalization without a profile")
	}
}

func TestScoreWithNonMatchingProfile(t *testing.T) {
	result := Score(Candidate{
		Kind:      KindRelease,
		CreatorID: "creator-1",
		CreatedAt: time.Now(),
		Signals:   Signals{PlayCount: 100, Genres: []string{"jazz"}},
	}, &Profile{
		FavoriteGenres:   []string{"afro"},
		FollowedCreators: []string{"creator-2"},
	}, time.Now())

	p := result.Personalization
	if p == nil {
		t.Fatalf("expected personalization payload with a profile present")
	}
	if p.Applied {
		t.Fatalf("expected applied=false with no matches")
	}
	if p.Multiplier != 1.0 {
		t.Fatalf("expected multiplier exactly 1.0, got %f", p.Multiplier)
	}
	if len(p.Reasons) != 0 || len(p.MatchedGenres) != 0 {
		t.Fatalf("expected empty reasons and matches, got %v / %v", p.Reasons, p.MatchedGenres)
	}
}

func TestPersonalizationAdditivity(t *testing.T) {
	now := time.Now()
	profile := &Profile{
		FavoriteGenres:   []string{"afro"},
		FollowedCreators: []string{"creator-b"},
	}
	base := Candidate{
		Kind:      KindRelease,
		CreatedAt: now,
		Signals:   Signals{PlayCount: 1000},
	}

	none := base
	none.CreatorID = "creator-x"

	creatorOnly := base
	creatorOnly.CreatorID = "creator-b"

	genreOnly := base
	genreOnly.CreatorID = "creator-x"
	genreOnly.Signals.Genres = []string{"afro"}

	both := base
	both.CreatorID = "creator-b"
	both.Signals.Genres = []string{"afro"}

	mNone := Score(none, profile, now).Personalization.Multiplier
	mCreator := Score(creatorOnly, profile, now).Personalization.Multiplier
	mGenre := Score(genreOnly, profile, now).Personalization.Multiplier
	mBoth := Score(both, profile, now).Personalization.Multiplier

	if mNone != 1.0 {
		t.Fatalf("no-match multiplier must be exactly 1.0, got %f", mNone)
	}
	if mCreator <= mNone || mGenre <= mNone {
		t.Fatalf("single-match multipliers must exceed 1.0: creator=%f genre=%f", mCreator, mGenre)
	}
	if mBoth <= mCreator || mBoth <= mGenre {
		t.Fatalf("double match must exceed single matches: both=%f", mBoth)
	}
	if math.Abs(mBoth-(1.0+0.25+0.15)) > 1e-9 {
		t.Fatalf("release double match should be 1.40, got %f", mBoth)
	}

	bothScore := Score(both, profile, now)
	if len(bothScore.Personalization.MatchedGenres) != 1 || bothScore.Personalization.MatchedGenres[0] != "afro" {
		t.Fatalf("expected matched genre afro, got %v", bothScore.Personalization.MatchedGenres)
	}
}

func TestTrackBoostsAreLowerThanReleaseBoosts(t *testing.T) {
	now := time.Now()
	profile := &Profile{
		FavoriteGenres:   []string{"afro"},
		FollowedCreators: []string{"creator-b"},
	}
	candidate := Candidate{
		CreatorID: "creator-b",
		CreatedAt: now,
		Signals:   Signals{PlayCount: 1000, Genres: []string{"afro"}},
	}

	release := candidate
	release.Kind = KindRelease
	track := candidate
	track.Kind = KindTrack

	mRelease := Score(release, profile, now).Personalization.Multiplier
	mTrack := Score(track, profile, now).Personalization.Multiplier

	if mTrack >= mRelease {
		t.Fatalf("track multiplier should be lower: track=%f release=%f", mTrack, mRelease)
	}
	if math.Abs(mTrack-(1.0+0.20+0.10)) > 1e-9 {
		t.Fatalf("track double match should be 1.30, got %f", mTrack)
	}
}

// Weighted-formula scenario: a recent, popular release must outrank an old one
// whose only advantage is a larger editorial weight.
func TestCompositeOrderingScenario(t *testing.T) {
	now := time.Now()

	a := Score(Candidate{
		Kind:      KindRelease,
		CreatorID: "creator-a",
		CreatedAt: now.AddDate(0, 0, -19),
		Signals:   Signals{PlayCount: 5000, EditorialWeight: 2},
	}, nil, now)

	b := Score(Candidate{
		Kind:      KindRelease,
		CreatorID: "creator-b",
		CreatedAt: now.AddDate(0, 0, -370),
		Signals:   Signals{PlayCount: 120, EditorialWeight: 4},
	}, nil, now)

	if a.Score <= b.Score {
		t.Fatalf("expected A to outrank B: a=%f b=%f", a.Score, b.Score)
	}
	if b.Breakdown.Recency != 0 {
		t.Fatalf("370-day-old release should have zero recency, got %f", b.Breakdown.Recency)
	}
}

func TestCompositeBoundedWithoutProfile(t *testing.T) {
	now := time.Now()
	result := Score(Candidate{
		Kind:      KindRelease,
		CreatedAt: now,
		Signals:   Signals{PlayCount: 1e12, EditorialWeight: 99},
	}, nil, now)

	if result.Score < 0 || result.Score > 1 {
		t.Fatalf("unboosted composite must stay in [0,1], got %f", result.Score)
	}
}

package match_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/astropair/astropair/internal/app"
	"github.com/astropair/astropair/internal/astro"
	"github.com/astropair/astropair/internal/cache"
	"github.com/astropair/astropair/internal/config"
	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
	"github.com/astropair/astropair/internal/quiz"
	"github.com/astropair/astropair/internal/repository"
	"github.com/astropair/astropair/internal/service/match"
)

//
// Test fixtures
//
// Dataset:
//   - profile 1: viewer, male, wants female, complete data
//   - profile 2: female, wants male, complete data
//   - profile 3: female, wants male, NO questionnaire answers
//   - profile 4: female, wants male, complete data, already swiped by 1
//   - profile 5: male (ineligible for the viewer's preference)
//

func answersJSON(codes ...string) string {
	raw, _ := json.Marshal(codes)
	return string(raw)
}

func fixtureProfile(id uint64, gender, wants string) db.Profile {
	birth := time.Date(1992, time.Month(id%12+1), 10, 0, 0, 0, 0, time.UTC)
	return db.Profile{
		ID:               id,
		DisplayName:      fmt.Sprintf("user%d", id),
		Email:            fmt.Sprintf("u%d@test.com", id),
		PasswordHash:     "x",
		Active:           true,
		Gender:           gender,
		GenderPreference: db.WrapGenderSet([]string{wants}),
		BirthDate:        &birth,
		SunSign:          astro.SignForDate(birth),
		MoonSign:         "leo",
		RisingSign:       "libra",
		QuizAnswers:      answersJSON("a", "b", "c", "d", "a", "b"),
	}
}

func seedFixtures(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	profiles := []db.Profile{
		fixtureProfile(1, "male", "female"),
		fixtureProfile(2, "female", "male"),
		fixtureProfile(3, "female", "male"),
		fixtureProfile(4, "female", "male"),
		fixtureProfile(5, "male", "female"),
	}
	profiles[2].QuizAnswers = "" // profile 3 never answered the questionnaire
	require.NoError(t, gdb.Create(&profiles).Error)

	require.NoError(t, gdb.Create(&db.SwipeDecision{
		ActorID: 1, CandidateID: 4, Liked: true,
	}).Error)
}

// setupService spins up an in-memory SQLite DB, a miniredis, and wires a
// full match service. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*match.Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&db.Profile{}, &db.SwipeDecision{}, &db.CompatibilityScore{}))
	seedFixtures(t, gdb)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Match = config.MatchConfig{
		ListCacheTTL:   5 * time.Minute,
		ScoreRetention: 24 * time.Hour,
		MaxBatchSize:   25,
		LatencyTarget:  500 * time.Millisecond,
	}

	redisCache := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(gdb, redisCache, log, cfg)
	return match.NewService(appCtx, astro.NewGrader(), quiz.NewGrader()), gdb, mr
}

//
// Single compatibility
//

func TestGetSingleCompatibility(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	result, perf, err := svc.GetSingleCompatibility(ctx, 1, 2)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
	assert.NotEmpty(t, result.AstroGrade)
	assert.NotEmpty(t, result.QuizGrade)
	assert.False(t, perf.CacheUsed, "single requests bypass caching entirely")
	assert.Equal(t, 1, perf.BatchSize)

	// the computation was persisted for analytics
	var row db.CompatibilityScore
	require.NoError(t, gdb.Where("viewer_id = ? AND candidate_id = ?", 1, 2).First(&row).Error)
	assert.Equal(t, result.Score, row.Score)
	assert.Equal(t, row.ComputedAt.Add(24*time.Hour), row.ExpiresAt)
}

// Two immediate calls with unchanged inputs yield the same score, each
// computed independently: no cache short-circuit is observable.
func TestGetSingleCompatibilityIsAlwaysFresh(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	first, perf1, err := svc.GetSingleCompatibility(ctx, 1, 2)
	require.NoError(t, err)
	second, perf2, err := svc.GetSingleCompatibility(ctx, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.False(t, perf1.CacheUsed)
	assert.False(t, perf2.CacheUsed)
}

func TestGetSingleCompatibilityRejectsSelf(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, perf, err := svc.GetSingleCompatibility(ctx, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrSelfComparison))

	// failures are timed too; the latency monitor sees every exit
	require.NotNil(t, perf)
	assert.GreaterOrEqual(t, perf.ResponseTimeMs, int64(0))
}

func TestGetSingleCompatibilityInsufficientData(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	// profile 3 has no questionnaire answers; the single contract surfaces
	// this as an explicit error, not a fallback score
	_, _, err := svc.GetSingleCompatibility(ctx, 1, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInsufficientData))
}

func TestGetSingleCompatibilityUnknownCandidate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, _, err := svc.GetSingleCompatibility(ctx, 1, 999)
	assert.Error(t, err)
}

//
// Batch compatibility
//

func TestGetBatchCompatibilityOrderAndFallback(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	result, perf, err := svc.GetBatchCompatibility(ctx, 1, []uint64{4, 2, 3}, match.Options{})
	require.NoError(t, err)

	// length matches input, order matches input
	require.Len(t, result.Results, 3)
	assert.Equal(t, uint64(4), result.Results[0].CandidateID)
	assert.Equal(t, uint64(2), result.Results[1].CandidateID)
	assert.Equal(t, uint64(3), result.Results[2].CandidateID)

	// profile 3 lacks questionnaire data: neutral fallback, flagged
	assert.True(t, result.Results[2].Fallback)
	assert.Equal(t, 50, result.Results[2].Score)

	// the others scored for real
	assert.False(t, result.Results[0].Fallback)
	assert.False(t, result.Results[1].Fallback)

	assert.Equal(t, 2, result.Summary.Succeeded)
	assert.Equal(t, 1, result.Summary.Fallback)
	assert.Equal(t, 3, perf.BatchSize)
}

func TestGetBatchCompatibilityRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, _, err := svc.GetBatchCompatibility(ctx, 1, nil, match.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalidInput))
}

//
// Potential matches
//

func TestGetPotentialMatchesFiltersAndScores(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	result, perf, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)

	// profile 4 was swiped, profile 5 is the wrong gender: 2 and 3 remain
	require.Len(t, result.Matches, 2)
	assert.Equal(t, uint64(2), result.Matches[0].CandidateID)
	assert.Equal(t, uint64(3), result.Matches[1].CandidateID)

	assert.False(t, result.Matches[0].Fallback)
	assert.True(t, result.Matches[1].Fallback, "missing questionnaire falls back in list context")
	assert.Equal(t, 50, result.Matches[1].Score)

	assert.False(t, perf.CacheUsed)
	assert.Equal(t, "user2", result.Matches[0].DisplayName)
}

// Two calls within the TTL: the second serves the id list from cache but
// still computes every score fresh.
func TestGetPotentialMatchesUsesListCache(t *testing.T) {
	ctx := context.Background()
	svc, gdb, mr := setupService(t)

	first, perf1, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf1.CacheUsed)

	second, perf2, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)
	assert.True(t, perf2.CacheUsed, "identical filters within the TTL hit the cache")
	assert.True(t, second.CacheUsed)
	assert.Equal(t, len(first.Matches), len(second.Matches))

	// scores were recomputed, not replayed: the stored row moved forward
	var rows []db.CompatibilityScore
	require.NoError(t, gdb.Where("viewer_id = ?", 1).Find(&rows).Error)
	assert.NotEmpty(t, rows)

	// after TTL expiry the repository is consulted again
	mr.FastForward(5*time.Minute + time.Second)
	_, perf3, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf3.CacheUsed)
}

// Gender sets differing only in element order are the same filter set and
// share one cache entry.
func TestGetPotentialMatchesGenderOrderSharesCacheEntry(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, perf1, err := svc.GetPotentialMatches(ctx, 1,
		repository.CandidateFilters{Genders: []string{"male", "female"}}, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf1.CacheUsed)

	_, perf2, err := svc.GetPotentialMatches(ctx, 1,
		repository.CandidateFilters{Genders: []string{"female", "male"}}, match.Options{})
	require.NoError(t, err)
	assert.True(t, perf2.CacheUsed, "reordered gender set is the same cache key")
}

func TestGetPotentialMatchesDifferentFiltersMissCache(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, perf1, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf1.CacheUsed)

	zodiac := repository.CandidateFilters{ZodiacSign: "leo"}
	_, perf2, err := svc.GetPotentialMatches(ctx, 1, zodiac, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf2.CacheUsed, "different filter set is a different cache key")
}

// A dead Redis degrades to querying the repository on every call; requests
// never fail because of the cache.
func TestGetPotentialMatchesCacheFailOpen(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t)

	mr.Close()

	result, perf, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{}, match.Options{})
	require.NoError(t, err)
	assert.False(t, perf.CacheUsed)
	assert.Len(t, result.Matches, 2)
}

func TestGetPotentialMatchesValidatesFilters(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	tooYoung := 10
	_, _, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{MinAge: &tooYoung}, match.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalidInput))

	minAge, maxAge := 40, 30
	_, _, err = svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{MinAge: &minAge, MaxAge: &maxAge}, match.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalidInput))

	_, perf, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{ActivityType: "skydiving"}, match.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalidInput))
	require.NotNil(t, perf, "rejected requests still report elapsed time")
}

// A distance constraint is meaningless without a viewer location; the
// fixtures carry no coordinates, so the request is rejected rather than
// silently dropping the distance check.
func TestGetPotentialMatchesRequiresViewerLocationForDistance(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	dist := 10
	_, _, err := svc.GetPotentialMatches(ctx, 1, repository.CandidateFilters{MaxDistanceKm: &dist}, match.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalidInput))
}

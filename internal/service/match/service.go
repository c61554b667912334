// Package match implements the compatibility and matching entry point: one
// fresh score, a batch of scores, or the filtered candidate pool with fresh
// scores attached.
package match

import (
	"context"
	"sort"
	"time"

	"github.com/astropair/astropair/internal/app"
	"github.com/astropair/astropair/internal/cache"
	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
	"github.com/astropair/astropair/internal/metrics"
	"github.com/astropair/astropair/internal/repository"
	"github.com/astropair/astropair/internal/scoring"
	"github.com/astropair/astropair/internal/utils/signature"
)

const defaultListLimit = 50

var allowedActivityTypes = map[string]bool{
	"dating":     true,
	"friendship": true,
	"activity":   true,
}

// Performance is the per-request observability block attached to every
// response.
type Performance struct {
	ResponseTimeMs int64 `json:"response_time_ms"`
	CacheUsed      bool  `json:"cache_used"`
	BatchSize      int   `json:"batch_size"`
}

// SingleResult is the payload of a single-pair compatibility request.
type SingleResult struct {
	ViewerID    uint64 `json:"viewer_id"`
	CandidateID uint64 `json:"candidate_id"`
	AstroGrade  string `json:"astro_grade"`
	QuizGrade   string `json:"quiz_grade"`
	Score       int    `json:"score"`
}

// BatchResult is the payload of a batch compatibility request.
type BatchResult struct {
	Results []scoring.BatchResult `json:"results"`
	Summary scoring.BatchSummary  `json:"summary"`
}

// PotentialMatch is one candidate in the potential-match list, a summary
// plus the freshly computed score.
type PotentialMatch struct {
	CandidateID  uint64 `json:"candidate_id"`
	DisplayName  string `json:"display_name"`
	Age          int    `json:"age,omitempty"`
	SunSign      string `json:"sun_sign,omitempty"`
	ActivityType string `json:"activity_type,omitempty"`
	Score        int    `json:"score"`
	Fallback     bool   `json:"fallback"`
}

// PotentialMatchesResult is the payload of a potential-match request.
type PotentialMatchesResult struct {
	Matches   []PotentialMatch     `json:"matches"`
	Summary   scoring.BatchSummary `json:"summary"`
	CacheUsed bool                 `json:"cache_used"`
}

// Options tunes list and batch behavior per request.
type Options struct {
	Limit        int
	Offset       int
	MaxBatchSize int
	Timeout      time.Duration
}

// Service is the matching entry point. It owns the read path: candidate
// retrieval with the list cache in front, and score computation through the
// batch orchestrator. Scores are always computed fresh; the list cache only
// ever answers "who is eligible".
type Service struct {
	appCtx       *app.AppContext
	profiles     *repository.ProfileRepository
	listCache    *cache.ListCache
	scorer       *scoring.Scorer
	orchestrator *scoring.Orchestrator
}

// NewService wires the matching service from the AppContext and the two
// compatibility collaborators.
func NewService(appCtx *app.AppContext, astro scoring.AstroGrader, quiz scoring.QuizGrader) *Service {
	profiles := repository.NewProfileRepository(appCtx.DB)
	scores := repository.NewScoreRepository(appCtx.DB)
	scorer := scoring.NewScorer(astro, quiz, scores, appCtx.Logger, appCtx.Config.Match.ScoreRetention)

	return &Service{
		appCtx:       appCtx,
		profiles:     profiles,
		listCache:    cache.NewListCache(appCtx.RedisCache, appCtx.Logger, appCtx.Config.Match.ListCacheTTL),
		scorer:       scorer,
		orchestrator: scoring.NewOrchestrator(scorer, profiles, appCtx.Logger, appCtx.Config.Match.MaxBatchSize),
	}
}

// GetSingleCompatibility computes one fresh score for the pair. Bypasses
// caching entirely: every call computes and stores.
func (s *Service) GetSingleCompatibility(ctx context.Context, viewerID, candidateID uint64) (*SingleResult, *Performance, error) {
	const op = "single_compatibility"
	start := time.Now()

	if candidateID == 0 {
		return nil, s.finish(op, start, false, 1), svcErr.InvalidArgument("candidate_id is required")
	}
	if viewerID == candidateID {
		return nil, s.finish(op, start, false, 1), svcErr.ErrSelfComparison
	}

	viewer, err := s.profiles.GetByID(ctx, viewerID)
	if err != nil {
		return nil, s.finish(op, start, false, 1), err
	}
	candidate, err := s.profiles.GetByID(ctx, candidateID)
	if err != nil {
		return nil, s.finish(op, start, false, 1), err
	}

	res, err := s.scorer.Score(ctx, viewer, candidate)
	if err != nil {
		return nil, s.finish(op, start, false, 1), err
	}
	metrics.CountScores(1, 0)

	perf := s.finish(op, start, false, 1)
	return &SingleResult{
		ViewerID:    viewerID,
		CandidateID: candidateID,
		AstroGrade:  string(res.AstroGrade),
		QuizGrade:   string(res.QuizGrade),
		Score:       res.Score,
	}, perf, nil
}

// GetBatchCompatibility fans the scorer out over the supplied candidate ids.
// Per-candidate failures settle on the fallback score; the batch itself only
// fails when the viewer or the candidate pool cannot be loaded at all.
func (s *Service) GetBatchCompatibility(ctx context.Context, viewerID uint64, candidateIDs []uint64, opts Options) (*BatchResult, *Performance, error) {
	const op = "batch_compatibility"
	start := time.Now()

	if len(candidateIDs) == 0 {
		return nil, s.finish(op, start, false, 0), svcErr.InvalidArgument("candidate_ids must not be empty")
	}

	viewer, err := s.profiles.GetByID(ctx, viewerID)
	if err != nil {
		return nil, s.finish(op, start, false, len(candidateIDs)), err
	}

	results, summary, err := s.orchestrator.ScoreBatch(ctx, viewer, candidateIDs, scoring.BatchOptions{
		MaxBatchSize: opts.MaxBatchSize,
		Timeout:      opts.Timeout,
	})
	if err != nil {
		return nil, s.finish(op, start, false, len(candidateIDs)), err
	}
	metrics.CountScores(summary.Succeeded, summary.Fallback)

	perf := s.finish(op, start, false, summary.Processed)
	return &BatchResult{Results: results, Summary: summary}, perf, nil
}

// GetPotentialMatches retrieves the eligible candidate pool (list cache
// first, repository on miss) and always attaches freshly computed scores.
// The cache answers eligibility only; CacheUsed reports where the id list
// came from.
func (s *Service) GetPotentialMatches(ctx context.Context, viewerID uint64, filters repository.CandidateFilters, opts Options) (*PotentialMatchesResult, *Performance, error) {
	const op = "potential_matches"
	start := time.Now()

	if err := validateFilters(filters); err != nil {
		return nil, s.finish(op, start, false, 0), err
	}

	viewer, err := s.profiles.GetByID(ctx, viewerID)
	if err != nil {
		return nil, s.finish(op, start, false, 0), err
	}
	if filters.MaxDistanceKm != nil && (viewer.Lat == nil || viewer.Lng == nil) {
		return nil, s.finish(op, start, false, 0),
			svcErr.InvalidArgument("max_distance_km requires a profile location")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	normalized := normalizeFilters(viewer, filters)
	ids, cacheUsed := s.lookupCandidateIDs(ctx, viewer, normalized, limit, opts.Offset)
	metrics.CountListCacheLookup(cacheUsed)

	if !cacheUsed {
		candidates, err := s.profiles.FindCandidates(ctx, viewer, normalized, limit, opts.Offset)
		if err != nil {
			return nil, s.finish(op, start, false, 0), err
		}
		ids = make([]uint64, len(candidates))
		for i := range candidates {
			ids[i] = candidates[i].ID
		}
		s.putCandidateIDs(ctx, viewer, normalized, limit, opts.Offset, ids)
	}

	results, summary, err := s.orchestrator.ScoreBatch(ctx, viewer, ids, scoring.BatchOptions{
		MaxBatchSize: opts.MaxBatchSize,
		Timeout:      opts.Timeout,
	})
	if err != nil {
		return nil, s.finish(op, start, cacheUsed, 0), err
	}
	metrics.CountScores(summary.Succeeded, summary.Fallback)

	matches, err := s.buildMatches(ctx, results)
	if err != nil {
		return nil, s.finish(op, start, cacheUsed, summary.Processed), err
	}

	perf := s.finish(op, start, cacheUsed, summary.Processed)
	return &PotentialMatchesResult{
		Matches:   matches,
		Summary:   summary,
		CacheUsed: cacheUsed,
	}, perf, nil
}

// cacheKeyFilters is what gets hashed into the list-cache signature: the
// normalized filter set plus the page window, so identical requests collide
// and different pages do not.
type cacheKeyFilters struct {
	repository.CandidateFilters
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Service) lookupCandidateIDs(ctx context.Context, viewer *db.Profile, filters repository.CandidateFilters, limit, offset int) ([]uint64, bool) {
	sig, err := signature.Hash(cacheKeyFilters{CandidateFilters: filters, Limit: limit, Offset: offset})
	if err != nil {
		s.appCtx.Logger.Warn("filter signature failed, skipping cache", "viewer", viewer.ID, "err", err)
		return nil, false
	}
	return s.listCache.Get(ctx, viewer.ID, sig)
}

func (s *Service) putCandidateIDs(ctx context.Context, viewer *db.Profile, filters repository.CandidateFilters, limit, offset int, ids []uint64) {
	sig, err := signature.Hash(cacheKeyFilters{CandidateFilters: filters, Limit: limit, Offset: offset})
	if err != nil {
		return
	}
	s.listCache.Put(ctx, viewer.ID, sig, ids)
}

func (s *Service) buildMatches(ctx context.Context, results []scoring.BatchResult) ([]PotentialMatch, error) {
	ids := make([]uint64, len(results))
	for i := range results {
		ids[i] = results[i].CandidateID
	}
	matches := make([]PotentialMatch, 0, len(results))
	if len(ids) == 0 {
		return matches, nil
	}

	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		m := PotentialMatch{
			CandidateID: r.CandidateID,
			Score:       r.Score,
			Fallback:    r.Fallback,
		}
		if p, ok := profiles[r.CandidateID]; ok {
			m.DisplayName = p.DisplayName
			m.SunSign = p.SunSign
			m.ActivityType = p.ActivityType
			m.Age = ageOf(p)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// finish closes out the latency monitoring for one operation: records the
// histogram, and logs plus counts the request when it blew the configured
// target. Runs on every exit, failures included, so slow failing requests
// are flagged too. Observability only, never a deadline: the response still
// returns.
func (s *Service) finish(operation string, start time.Time, cacheUsed bool, batchSize int) *Performance {
	elapsed := time.Since(start)
	metrics.ObserveRequest(operation, elapsed)

	target := s.appCtx.Config.Match.LatencyTarget
	if target > 0 && elapsed > target {
		metrics.CountSlowRequest(operation)
		s.appCtx.Logger.Warn("slow match operation",
			"operation", operation,
			"elapsed_ms", elapsed.Milliseconds(),
			"target_ms", target.Milliseconds(),
			"batch_size", batchSize,
		)
	}

	return &Performance{
		ResponseTimeMs: elapsed.Milliseconds(),
		CacheUsed:      cacheUsed,
		BatchSize:      batchSize,
	}
}

func validateFilters(f repository.CandidateFilters) error {
	if f.MinAge != nil && *f.MinAge < 18 {
		return svcErr.InvalidArgument("min_age must be at least 18")
	}
	if f.MaxAge != nil && f.MinAge != nil && *f.MaxAge < *f.MinAge {
		return svcErr.InvalidArgument("max_age must not be below min_age")
	}
	if f.MaxDistanceKm != nil && *f.MaxDistanceKm <= 0 {
		return svcErr.InvalidArgument("max_distance_km must be positive")
	}
	if f.ActivityType != "" && !allowedActivityTypes[f.ActivityType] {
		return svcErr.InvalidArgument("unknown activity_type")
	}
	return nil
}

// normalizeFilters fills the gender set from the viewer's stated preference
// when absent and sorts it, so semantically identical filter sets hash to
// the same cache signature.
func normalizeFilters(viewer *db.Profile, f repository.CandidateFilters) repository.CandidateFilters {
	if len(f.Genders) == 0 {
		f.Genders = db.UnwrapGenderSet(viewer.GenderPreference)
	}
	sort.Strings(f.Genders)
	return f
}

func ageOf(p *db.Profile) int {
	if p.BirthDate == nil {
		return 0
	}
	now := time.Now().UTC()
	years := now.Year() - p.BirthDate.Year()
	if now.YearDay() < p.BirthDate.YearDay() {
		years--
	}
	return years
}

// Package scoring computes pairwise compatibility scores: a single-pair
// scorer over the astrological and questionnaire collaborators, and a batch
// orchestrator that fans the scorer out across a candidate list.
package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/astropair/astropair/internal/db"
	"github.com/astropair/astropair/internal/grade"
	"github.com/astropair/astropair/internal/repository"
)

// AstroGrader is the astrological compatibility collaborator.
type AstroGrader interface {
	Grade(a, b *db.Profile) (grade.Grade, error)
}

// QuizGrader is the questionnaire compatibility collaborator.
type QuizGrader interface {
	Grade(a, b *db.Profile) (grade.Grade, error)
}

// Result is one freshly computed score.
type Result struct {
	AstroGrade grade.Grade `json:"astro_grade"`
	QuizGrade  grade.Grade `json:"quiz_grade"`
	Score      int         `json:"score"`
	ComputedAt time.Time   `json:"computed_at"`
}

// Scorer computes one compatibility score per (viewer, candidate) pair.
// Every call computes fresh: no cached or stored score is ever consulted.
// Successful results are written to the score store with the configured
// retention; store failures are logged and swallowed since the response has
// already been computed.
type Scorer struct {
	astro     AstroGrader
	quiz      QuizGrader
	scores    *repository.ScoreRepository
	log       *slog.Logger
	retention time.Duration
}

func NewScorer(
	astro AstroGrader,
	quiz QuizGrader,
	scores *repository.ScoreRepository,
	log *slog.Logger,
	retention time.Duration,
) *Scorer {
	return &Scorer{astro: astro, quiz: quiz, scores: scores, log: log, retention: retention}
}

// Score grades the pair on both dimensions and combines them. Failure of
// either sub-scorer fails the operation explicitly; substituting a fallback
// is the batch orchestrator's job, not this one's.
func (s *Scorer) Score(ctx context.Context, viewer, candidate *db.Profile) (*Result, error) {
	astroGrade, err := s.astro.Grade(viewer, candidate)
	if err != nil {
		return nil, err
	}
	quizGrade, err := s.quiz.Grade(viewer, candidate)
	if err != nil {
		return nil, err
	}

	combined, err := grade.Combine(astroGrade, quizGrade)
	if err != nil {
		return nil, err
	}

	result := &Result{
		AstroGrade: astroGrade,
		QuizGrade:  quizGrade,
		Score:      combined,
		ComputedAt: time.Now().UTC(),
	}

	s.persist(ctx, viewer.ID, candidate.ID, result)

	return result, nil
}

// persist writes the score row for audit/analytics consumers. Best-effort:
// the live response never depends on it.
func (s *Scorer) persist(ctx context.Context, viewerID, candidateID uint64, res *Result) {
	if s.scores == nil {
		return
	}

	breakdown := buildBreakdown(res)
	row := &db.CompatibilityScore{
		ViewerID:    viewerID,
		CandidateID: candidateID,
		AstroGrade:  string(res.AstroGrade),
		QuizGrade:   string(res.QuizGrade),
		Score:       res.Score,
		Breakdown:   breakdown,
		ComputedAt:  res.ComputedAt,
		ExpiresAt:   res.ComputedAt.Add(s.retention),
	}
	if err := s.scores.Save(ctx, row); err != nil {
		s.log.Warn("score store write failed",
			"viewer", viewerID, "candidate", candidateID, "err", err)
	}
}

func buildBreakdown(res *Result) string {
	astroValue, _ := res.AstroGrade.Value()
	quizValue, _ := res.QuizGrade.Value()
	raw, err := json.Marshal(map[string]any{
		"astro": map[string]any{"grade": res.AstroGrade, "value": astroValue},
		"quiz":  map[string]any{"grade": res.QuizGrade, "value": quizValue},
	})
	if err != nil {
		return "{}"
	}
	return string(raw)
}

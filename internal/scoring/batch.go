package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
)

// FallbackScore is the neutral score substituted when scoring a candidate
// fails, so the batch still returns a complete result set.
const FallbackScore = 50

// BatchOptions tune one batch call. Zero values fall back to the
// orchestrator's configured defaults.
type BatchOptions struct {
	MaxBatchSize int
	Timeout      time.Duration
}

// BatchResult is the per-candidate outcome. Exactly one entry per processed
// candidate, in the caller-supplied order.
type BatchResult struct {
	CandidateID    uint64 `json:"candidate_id"`
	Score          int    `json:"score"`
	AstroGrade     string `json:"astro_grade,omitempty"`
	QuizGrade      string `json:"quiz_grade,omitempty"`
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// BatchSummary aggregates what happened across the fan-out.
type BatchSummary struct {
	Requested int   `json:"requested"`
	Processed int   `json:"processed"`
	Succeeded int   `json:"succeeded"`
	Fallback  int   `json:"fallback"`
	Truncated bool  `json:"truncated"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

// ProfileLoader bulk-loads candidate profiles for a batch.
type ProfileLoader interface {
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*db.Profile, error)
}

// Orchestrator fans the scorer out across a candidate list: one goroutine
// per candidate, failures isolated to their own entry, results settled in
// the caller's order before returning.
type Orchestrator struct {
	scorer   *Scorer
	profiles ProfileLoader
	log      *slog.Logger

	maxBatchSize int
}

func NewOrchestrator(scorer *Scorer, profiles ProfileLoader, log *slog.Logger, maxBatchSize int) *Orchestrator {
	return &Orchestrator{
		scorer:       scorer,
		profiles:     profiles,
		log:          log,
		maxBatchSize: maxBatchSize,
	}
}

// ScoreBatch scores the viewer against every candidate id concurrently.
//
//   - The id list is clamped to the max batch size; truncation is explicit
//     in the summary, never silent.
//   - A failed scoring attempt (missing profile, insufficient data, grader
//     error) yields a fallback entry for that candidate only; it never
//     aborts sibling tasks or the batch.
//   - Failure to bulk-load the candidate profiles is an infrastructure
//     failure and aborts the batch with an error.
//   - If the context is done before the fan-out settles, the wait is
//     abandoned and unsettled entries are marked as fallback. Settled-order
//     guarantees still hold: results match the input order.
func (o *Orchestrator) ScoreBatch(
	ctx context.Context,
	viewer *db.Profile,
	candidateIDs []uint64,
	opts BatchOptions,
) ([]BatchResult, BatchSummary, error) {
	start := time.Now()

	maxSize := opts.MaxBatchSize
	if maxSize <= 0 || maxSize > o.maxBatchSize {
		maxSize = o.maxBatchSize
	}

	summary := BatchSummary{Requested: len(candidateIDs)}
	ids := candidateIDs
	if len(ids) > maxSize {
		ids = ids[:maxSize]
		summary.Truncated = true
	}
	summary.Processed = len(ids)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	profiles, err := o.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to load candidate profiles: %w", err)
	}

	results := make([]BatchResult, len(ids))
	settled := make([]atomic.Bool, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			results[i] = o.scoreOne(ctx, viewer, id, profiles[id])
			settled[i].Store(true)
		}(i, id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// abandon the wait; unsettled entries become fallbacks
		o.log.Warn("batch abandoned before settling", "viewer", viewer.ID, "err", ctx.Err())
	}

	// stragglers may still be writing results; only slots with a settled
	// flag are safe to read
	out := make([]BatchResult, len(ids))
	for i, id := range ids {
		if settled[i].Load() {
			out[i] = results[i]
		} else {
			out[i] = fallbackResult(id, "canceled")
		}
		if out[i].Fallback {
			summary.Fallback++
		} else {
			summary.Succeeded++
		}
	}

	summary.ElapsedMs = time.Since(start).Milliseconds()
	return out, summary, nil
}

func (o *Orchestrator) scoreOne(ctx context.Context, viewer *db.Profile, id uint64, candidate *db.Profile) BatchResult {
	if candidate == nil {
		return fallbackResult(id, "candidate not found")
	}
	if candidate.ID == viewer.ID {
		return fallbackResult(id, "self")
	}

	res, err := o.scorer.Score(ctx, viewer, candidate)
	if err != nil {
		o.log.Debug("scoring fell back", "viewer", viewer.ID, "candidate", id, "err", err)
		reason := "scoring_failed"
		if errors.Is(err, svcErr.ErrInsufficientData) {
			reason = "insufficient_data"
		}
		return fallbackResult(id, reason)
	}

	return BatchResult{
		CandidateID: id,
		Score:       res.Score,
		AstroGrade:  string(res.AstroGrade),
		QuizGrade:   string(res.QuizGrade),
	}
}

func fallbackResult(id uint64, reason string) BatchResult {
	return BatchResult{
		CandidateID:    id,
		Score:          FallbackScore,
		Fallback:       true,
		FallbackReason: reason,
	}
}

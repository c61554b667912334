package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	svcErr "github.com/astropair/astropair/internal/errors"
	"github.com/astropair/astropair/internal/repository"
	"github.com/astropair/astropair/internal/service/match"
)

// envelope is the uniform response shape: success flag, payload or error,
// and the performance block.
type envelope struct {
	Success     bool               `json:"success"`
	Data        any                `json:"data,omitempty"`
	Error       *envelopeError     `json:"error,omitempty"`
	Performance *match.Performance `json:"performance,omitempty"`
	RequestID   string             `json:"request_id,omitempty"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MatchHandler adapts the match service to HTTP.
type MatchHandler struct {
	svc *match.Service
}

func NewMatchHandler(svc *match.Service) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type batchRequest struct {
	CandidateIDs []uint64 `json:"candidate_ids" binding:"required"`
	MaxBatchSize int      `json:"max_batch_size"`
	TimeoutMs    int      `json:"timeout_ms"`
}

type potentialMatchesRequest struct {
	Genders       []string `json:"genders"`
	ZodiacSign    string   `json:"zodiac_sign"`
	MinAge        *int     `json:"min_age"`
	MaxAge        *int     `json:"max_age"`
	MaxDistanceKm *int     `json:"max_distance_km"`
	ActivityType  string   `json:"activity_type"`
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	MaxBatchSize  int      `json:"max_batch_size"`
	TimeoutMs     int      `json:"timeout_ms"`
}

// GetSingleCompatibility handles GET /api/v1/compatibility/:candidate_id.
func (h *MatchHandler) GetSingleCompatibility(c *gin.Context) {
	start := time.Now()
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthorized(c, "no authenticated viewer")
		return
	}

	candidateID, err := strconv.ParseUint(c.Param("candidate_id"), 10, 64)
	if err != nil {
		h.fail(c, svcErr.InvalidArgument("candidate_id must be a valid uint64"), handlerPerf(start))
		return
	}

	result, perf, err := h.svc.GetSingleCompatibility(c.Request.Context(), viewer, candidateID)
	if err != nil {
		h.fail(c, err, perf)
		return
	}
	h.ok(c, result, perf)
}

// GetBatchCompatibility handles POST /api/v1/compatibility/batch.
func (h *MatchHandler) GetBatchCompatibility(c *gin.Context) {
	start := time.Now()
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthorized(c, "no authenticated viewer")
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, svcErr.InvalidArgument("invalid request body"), handlerPerf(start))
		return
	}

	result, perf, err := h.svc.GetBatchCompatibility(c.Request.Context(), viewer, req.CandidateIDs, match.Options{
		MaxBatchSize: req.MaxBatchSize,
		Timeout:      time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		h.fail(c, err, perf)
		return
	}
	h.ok(c, result, perf)
}

// GetPotentialMatches handles POST /api/v1/matches/potential.
func (h *MatchHandler) GetPotentialMatches(c *gin.Context) {
	start := time.Now()
	viewer, ok := viewerID(c)
	if !ok {
		abortUnauthorized(c, "no authenticated viewer")
		return
	}

	var req potentialMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, svcErr.InvalidArgument("invalid request body"), handlerPerf(start))
		return
	}

	filters := repository.CandidateFilters{
		Genders:       req.Genders,
		ZodiacSign:    req.ZodiacSign,
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
		MaxDistanceKm: req.MaxDistanceKm,
		ActivityType:  req.ActivityType,
	}

	result, perf, err := h.svc.GetPotentialMatches(c.Request.Context(), viewer, filters, match.Options{
		Limit:        req.Limit,
		Offset:       req.Offset,
		MaxBatchSize: req.MaxBatchSize,
		Timeout:      time.Duration(req.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		h.fail(c, err, perf)
		return
	}
	h.ok(c, result, perf)
}

func (h *MatchHandler) ok(c *gin.Context, data any, perf *match.Performance) {
	c.JSON(http.StatusOK, envelope{
		Success:     true,
		Data:        data,
		Performance: perf,
		RequestID:   c.GetString(ctxRequestID),
	})
}

// fail renders the error envelope. The performance block is included on
// failures too; requests rejected before reaching the service get the
// handler-measured elapsed time.
func (h *MatchHandler) fail(c *gin.Context, err error, perf *match.Performance) {
	httpErr := svcErr.Map(err)
	c.JSON(httpErr.Status, envelope{
		Success: false,
		Error: &envelopeError{
			Code:    httpErr.Code,
			Message: httpErr.Message,
		},
		Performance: perf,
		RequestID:   c.GetString(ctxRequestID),
	})
}

func handlerPerf(start time.Time) *match.Performance {
	return &match.Performance{ResponseTimeMs: time.Since(start).Milliseconds()}
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/astropair/astropair/internal/auth"
	"github.com/astropair/astropair/internal/config"
)

const (
	ctxViewerID  = "viewer_id"
	ctxRequestID = "request_id"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astropair_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astropair_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// RequestID attaches a unique id to every request for log correlation and
// the response envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// PrometheusMiddleware records request counts and latency per route.
// Monitoring is a side channel: it never affects the response.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" || strings.HasPrefix(path, "/metrics") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path,
			statusLabel(c.Writer.Status())).Inc()
	}
}

func statusLabel(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// AuthRequired validates the bearer token and stores the authenticated
// viewer id in the request context. The matching core trusts this id.
func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := auth.ValidateToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ctxViewerID, claims.UserID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
		Success: false,
		Error: &envelopeError{
			Code:    "unauthorized",
			Message: msg,
		},
		RequestID: c.GetString(ctxRequestID),
	})
}

// viewerID extracts the authenticated viewer id set by AuthRequired.
func viewerID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ctxViewerID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/astropair/astropair/internal/config"
)

// NewRouter assembles the gin engine: health and metrics are public, the
// match API sits behind bearer auth.
func NewRouter(cfg *config.Config, matchHandler *MatchHandler) *gin.Engine {
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), PrometheusMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(AuthRequired(cfg))
	{
		v1.GET("/compatibility/:candidate_id", matchHandler.GetSingleCompatibility)
		v1.POST("/compatibility/batch", matchHandler.GetBatchCompatibility)
		v1.POST("/matches/potential", matchHandler.GetPotentialMatches)
	}

	return router
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentflow/leasesign/pkg/database"
	"github.com/rentflow/leasesign/pkg/redis"
	"github.com/rentflow/leasesign/pkg/response"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(db *database.PostgresDB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ok"}))
}

// Ready handles GET /ready
// The service is ready only when its dependencies answer. Redis is optional
// infrastructure (rate limiting); its failure degrades readiness to a
// warning, not an outage.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{"database": "ok"}
	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, response.Error(response.ErrCodeServiceUnavailable, "Database is unreachable"))
		return
	}

	if h.cache != nil {
		checks["redis"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, response.Success(checks))
}

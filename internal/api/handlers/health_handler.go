package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridworx/helios-ai-gateway/internal/database"
)

// HealthHandler reports process and database health.
type HealthHandler struct {
	db *database.Database
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health returns liveness plus a database ping.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
	})
}

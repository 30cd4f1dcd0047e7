package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellsync/backend/internal/interfaces/http/dto"
)

// HealthChecker reports whether the backing database is reachable
type HealthChecker interface {
	Ping() error
}

// SystemHandler exposes liveness and readiness probes
type SystemHandler struct {
	BaseHandler
	db        HealthChecker
	startedAt time.Time
	version   string
}

// NewSystemHandler creates the system handler
func NewSystemHandler(db HealthChecker, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		startedAt: time.Now(),
		version:   version,
	}
}

// RegisterRoutes registers the probe endpoints on the root group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health reports process liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// Ready reports readiness, checking the database connection
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(dto.ErrCodeInternal, "database unreachable"))
		return
	}
	h.Success(c, gin.H{"status": "ready"})
}

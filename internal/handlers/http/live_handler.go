package http

import (
	"errors"
	"net/http"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	"streampulse/internal/infrastructure/monitoring"
	apperrors "streampulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

type LiveHandler struct {
	live      ports.LiveService
	metrics   *services.MetricsService
	collector *monitoring.PrometheusCollector
}

func NewLiveHandler(live ports.LiveService, metrics *services.MetricsService, collector *monitoring.PrometheusCollector) *LiveHandler {
	return &LiveHandler{
		live:      live,
		metrics:   metrics,
		collector: collector,
	}
}

func (h *LiveHandler) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1/live", auth)
	{
		api.POST("/start", h.Start)
		api.POST("/stop", h.Stop)
	}

	router.GET("/api/v1/channels/live", h.ListLive)
	router.GET("/api/v1/stats", h.Stats)
}

// ListLive feeds the home page's channel grid.
func (h *LiveHandler) ListLive(c *gin.Context) {
	profiles, err := h.live.ListLive(c.Request.Context())
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list live channels"))
		return
	}

	channels := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		channels = append(channels, publicProfile(p))
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *LiveHandler) Start(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	// GoLive runs the follower fan-out inline, so wall time here is the
	// fan-out duration on a transition.
	start := time.Now()
	changed, err := h.live.GoLive(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperrors.NewNotFoundError("profile"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to go live"))
		return
	}

	if changed && h.collector != nil {
		h.collector.RecordFanoutDuration(time.Since(start))
	}

	c.JSON(http.StatusOK, gin.H{
		"live":    true,
		"changed": changed,
	})
}

func (h *LiveHandler) Stop(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	changed, err := h.live.StopLive(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperrors.NewNotFoundError("profile"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to stop live"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"live":    false,
		"changed": changed,
	})
}

func (h *LiveHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

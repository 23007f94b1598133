package http

import (
	"errors"
	"net/http"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/infrastructure/monitoring"
	apperrors "streampulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	follows   ports.FollowService
	profiles  ports.ProfileRepository
	collector *monitoring.PrometheusCollector
}

func NewFollowHandler(follows ports.FollowService, profiles ports.ProfileRepository, collector *monitoring.PrometheusCollector) *FollowHandler {
	return &FollowHandler{
		follows:   follows,
		profiles:  profiles,
		collector: collector,
	}
}

func (h *FollowHandler) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1", auth)
	{
		api.POST("/follow", h.Toggle)
	}
}

type ToggleFollowRequest struct {
	Target string `json:"target" binding:"required,max=254"`
}

func (h *FollowHandler) Toggle(c *gin.Context) {
	actor := authedEmail(c)
	if actor == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req ToggleFollowRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	target := domain.Email(req.Target)
	state, err := h.follows.Toggle(c.Request.Context(), actor, target)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfFollow):
			c.Error(apperrors.NewInvalidInputError("cannot follow yourself"))
		case errors.Is(err, domain.ErrMissingIdentity):
			c.Error(apperrors.NewUnauthorizedError("missing identity"))
		case errors.Is(err, domain.ErrProfileNotFound):
			c.Error(apperrors.NewNotFoundError("profile"))
		default:
			c.Error(apperrors.NewInternalError("failed to toggle follow"))
		}
		return
	}

	h.updateFollowerGauge(c, target)

	// A pending follow is a partial write: the actor's edge exists but the
	// target profile does not yet. 202 signals the write was accepted and
	// will converge once the target signs up.
	status := http.StatusOK
	if state == ports.StatePending {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"target": req.Target,
		"state":  state,
	})
}

func (h *FollowHandler) updateFollowerGauge(c *gin.Context, target domain.Email) {
	if h.collector == nil {
		return
	}
	profile, err := h.profiles.GetByEmail(c.Request.Context(), target)
	if err != nil {
		return
	}
	h.collector.SetChannelFollowerCount(profile.Username, len(profile.Followers))
}

package http

import (
	"net/http"

	"streampulse/internal/core/ports"
	apperrors "streampulse/pkg/errors"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications ports.NotificationRepository
}

func NewNotificationHandler(notifications ports.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
	}
}

func (h *NotificationHandler) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/v1", auth)
	{
		api.GET("/notifications", h.ListUnsent)
	}
}

// ListUnsent returns the caller's pending notification rows. Delivery and
// the sent-flag flip happen over the gateway; this endpoint is a read-only
// fallback for sessions without a socket.
func (h *NotificationHandler) ListUnsent(c *gin.Context) {
	email := authedEmail(c)
	if email == "" {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	pending, err := h.notifications.ListUnsent(c.Request.Context(), email)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list notifications"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": pending,
		"count":         len(pending),
	})
}

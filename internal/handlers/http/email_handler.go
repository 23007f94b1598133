package http

import (
	"fmt"
	"net/http"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EmailHandler exposes a direct send endpoint. The path is unversioned for
// compatibility with clients that call it directly.
type EmailHandler struct {
	sender  ports.EmailSender
	metrics *services.MetricsService
	logger  *zap.SugaredLogger
}

func NewEmailHandler(sender ports.EmailSender, metrics *services.MetricsService, logger *zap.SugaredLogger) *EmailHandler {
	return &EmailHandler{
		sender:  sender,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *EmailHandler) SetupRoutes(router *gin.Engine) {
	router.Any("/api/sendEmail", h.SendEmail)
}

type SendEmailRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=256"`
	Message string `json:"message" binding:"required,max=4096"`
}

// SendEmail accepts POST only; any other method gets a 405. A provider
// failure is a plain 500 so callers retry.
func (h *EmailHandler) SendEmail(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.String(http.StatusMethodNotAllowed, "Method %s Not Allowed", c.Request.Method)
		return
	}

	var req SendEmailRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.sender.Send(
		c.Request.Context(),
		domain.Email(req.Email),
		req.Subject,
		fmt.Sprintf("<p>%s</p>", req.Message),
	)
	if err != nil {
		h.logger.Errorw("failed to send email",
			"to", req.Email,
			"subject", req.Subject,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	}

	h.metrics.RecordEmailSent()
	c.JSON(http.StatusOK, gin.H{"id": id})
}

package email

import (
	"context"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/utils"

	"go.uber.org/zap"
)

// LogSender stands in for the real provider when email delivery is
// disabled. Sends are logged and reported as successful so the fan-out path
// behaves identically in development.
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to domain.Email, subject, htmlBody string) (string, error) {
	id := utils.GenerateID("local")
	s.logger.Infow("email delivery disabled, logging instead",
		"to", to,
		"subject", subject,
		"delivery_id", id,
	)
	return id, nil
}

var _ ports.EmailSender = (*LogSender)(nil)

package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/arazshah/callyou/internal/infra/logger"
)

// LogSender records outgoing notifications instead of delivering them.
// Actual email/SMS delivery is handled by a downstream consumer of the
// published events; this keeps the auth flow independent of providers.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log}
}

// SendEmailVerification logs the verification dispatch. The token itself is
// masked; it must not end up in log storage.
func (s *LogSender) SendEmailVerification(ctx context.Context, email, token string) {
	s.logger.Info("email verification queued",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)),
	)
}

// SendPasswordReset logs the password reset dispatch.
func (s *LogSender) SendPasswordReset(ctx context.Context, email, token string) {
	s.logger.Info("password reset queued",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)),
	)
}

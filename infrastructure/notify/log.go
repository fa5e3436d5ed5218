package notify

import (
	"context"

	"closedesk/application/ports"

	"go.uber.org/zap"
)

// LogMailer writes would-be emails to the log. It backs development
// environments where no SES sender identity is configured.
type LogMailer struct {
	logger *zap.Logger
}

var _ ports.EmailSender = (*LogMailer)(nil)

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the email instead of delivering it.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

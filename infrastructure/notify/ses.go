// Package notify implements the outbound email port. Delivery is
// best-effort by contract: callers log failures and move on.
package notify

import (
	"context"

	"closedesk/application/ports"
	apperrors "closedesk/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// SESMailer sends notification email through Amazon SES.
type SESMailer struct {
	client *ses.Client
	sender string
	logger *zap.Logger
}

var _ ports.EmailSender = (*SESMailer)(nil)

// NewSESMailer creates an SES-backed mailer sending from the given
// verified address.
func NewSESMailer(client *ses.Client, sender string, logger *zap.Logger) *SESMailer {
	return &SESMailer{
		client: client,
		sender: sender,
		logger: logger,
	}
}

// Send delivers one plain-text email.
func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return apperrors.NewNotificationError(to, err)
	}

	m.logger.Debug("email sent",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

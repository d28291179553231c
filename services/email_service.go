package services

import (
	"context"
	"fmt"

	"lifeline/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// mailSendFunc delivers one message and returns the provider status code
type mailSendFunc func(ctx context.Context, message *mail.SGMailV3) (int, error)

type EmailService struct {
	send     mailSendFunc
	fromAddr string
	fromName string
}

// NewEmailService wraps a SendGrid client. A nil client makes every send fail with ErrChannelNotConfigured.
func NewEmailService(client *sendgrid.Client, fromAddr, fromName string) *EmailService {
	es := &EmailService{fromAddr: fromAddr, fromName: fromName}
	if client != nil {
		es.send = func(ctx context.Context, message *mail.SGMailV3) (int, error) {
			response, err := client.SendWithContext(ctx, message)
			if err != nil {
				return 0, err
			}
			return response.StatusCode, nil
		}
	}
	return es
}

func (es *EmailService) Configured() bool {
	return es != nil && es.send != nil && es.fromAddr != ""
}

func (es *EmailService) Send(ctx context.Context, toEmail, toName, subject, plainText, htmlContent string) error {
	if !es.Configured() || toEmail == "" {
		return ErrChannelNotConfigured
	}

	from := mail.NewEmail(es.fromName, es.fromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)

	status, err := es.send(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid error: status %d", status)
	}

	logrus.WithFields(logrus.Fields{
		"to":      utils.MaskEmail(toEmail),
		"subject": subject,
	}).Debug("Email sent")
	return nil
}

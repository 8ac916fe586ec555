package services

import (
	"context"
	"fmt"

	"fulfillment-api/internal/config"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Mailer sends operational email. Satisfied by BrevoMailer in
// production and stubbed in tests.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlContent, textContent string) error
}

// BrevoMailer sends transactional email through the Brevo API.
type BrevoMailer struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewBrevoMailer creates a mailer from the application configuration.
// Returns nil when no API key is configured, so email stays optional.
func NewBrevoMailer() *BrevoMailer {
	if config.AppConfig.BrevoAPIKey == "" {
		return nil
	}

	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)

	return &BrevoMailer{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: config.AppConfig.BrevoFromEmail,
		fromName:  config.AppConfig.BrevoFromName,
	}
}

// Send delivers one email via Brevo's transactional endpoint.
func (m *BrevoMailer) Send(ctx context.Context, to, subject, htmlContent, textContent string) error {
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  m.fromName,
			Email: m.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: to},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	if _, _, err := m.client.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to send email via Brevo: %w", err)
	}
	return nil
}

package channel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	mail "gopkg.in/mail.v2"
)

// EmailSender sends a single transactional email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPConfig holds SMTP settings
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPEmailSender sends email through an SMTP relay
type SMTPEmailSender struct {
	config SMTPConfig
	dialer *mail.Dialer
	log    zerolog.Logger
}

// NewSMTPEmailSender creates an SMTP-backed email sender
func NewSMTPEmailSender(config SMTPConfig, log zerolog.Logger) *SMTPEmailSender {
	return &SMTPEmailSender{
		config: config,
		dialer: mail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		log:    log.With().Str("component", "email").Logger(),
	}
}

// SendEmail implements EmailSender
func (s *SMTPEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}

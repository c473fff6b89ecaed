package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/arsenmarkotskyi/tt-event-management/internal/config"
	"github.com/arsenmarkotskyi/tt-event-management/internal/metrics"
)

// Service sends transactional email through the configured provider.
type Service struct {
	config       config.EmailConfig
	template     *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// EventSummary is the slice of an event rendered into the confirmation
// email.
type EventSummary struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
}

type confirmationData struct {
	Username    string
	EventTitle  string
	// Description is sanitized on write, so the stored markup is safe to
	// render as-is.
	Description template.HTML
	EventDate   string
	Location    string
	CurrentYear int
}

const confirmationTemplate = `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1a1a1a;">
    <h2>You're registered, {{.Username}}!</h2>
    <p>Your spot for <strong>{{.EventTitle}}</strong> is confirmed.</p>
{{- if .Description}}
    <div>{{.Description}}</div>
{{- end}}
    <ul>
      <li>When: {{.EventDate}}</li>
      <li>Where: {{.Location}}</li>
    </ul>
    <p>If your plans change, you can cancel your registration at any time.</p>
    <p style="color: #888; font-size: 12px;">&copy; {{.CurrentYear}} Event Management</p>
  </body>
</html>`

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	tmpl, err := template.New("registration_confirmation").Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation template: %w", err)
	}

	s := &Service{
		config:   cfg,
		template: tmpl,
		logger:   logger.With().Str("component", "email").Logger(),
	}
	if cfg.Provider == config.EmailProviderResend {
		s.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return s, nil
}

// SendRegistrationConfirmation emails the attendee that their registration
// went through. With email disabled it only logs, so development setups work
// without a provider.
func (s *Service) SendRegistrationConfirmation(ctx context.Context, to, username string, event EventSummary) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		metrics.EmailsSentTotal.WithLabelValues("skipped").Inc()
		s.logger.Info().
			Str("to", to).
			Str("event_title", event.Title).
			Msg("email service disabled, skipping confirmation email")
		return nil
	}

	htmlBody, err := s.renderConfirmation(confirmationData{
		Username:    username,
		EventTitle:  event.Title,
		Description: template.HTML(event.Description),
		EventDate:   event.Date.Format("Monday, 2 January 2006 at 15:04 MST"),
		Location:    event.Location,
		CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("render confirmation template: %w", err)
	}

	subject := fmt.Sprintf("Registration confirmed: %s", event.Title)

	switch s.config.Provider {
	case config.EmailProviderResend:
		err = s.sendViaResend(ctx, to, subject, htmlBody)
	default:
		err = s.sendViaSMTP(to, subject, htmlBody)
	}
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("send confirmation email: %w", err)
	}

	metrics.EmailsSentTotal.WithLabelValues("sent").Inc()
	s.logger.Info().
		Str("to", to).
		Str("event_title", event.Title).
		Msg("confirmation email sent")
	return nil
}

// validateEmailAddress checks format and rejects header injection attempts.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// sendViaSMTP delivers over SMTP with STARTTLS.
func (s *Service) sendViaSMTP(to, subject, htmlBody string) error {
	from := s.config.From
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var msg bytes.Buffer
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("start TLS: %w", err)
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit SMTP connection: %w", err)
	}
	return nil
}

func (s *Service) renderConfirmation(data confirmationData) (string, error) {
	var buf bytes.Buffer
	if err := s.template.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

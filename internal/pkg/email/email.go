package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// SMTPConfig holds outgoing mail settings. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// LeaveStatusData fills the leave status template.
type LeaveStatusData struct {
	Name      string
	LeaveType string
	StartDate string
	EndDate   string
	Days      float64
	Status    string
	Reason    string
	RequestID string
}

// Mailer defines the interface for sending emails
type Mailer interface {
	SendLeaveStatus(ctx context.Context, to string, data LeaveStatusData) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mailerImpl struct {
	cfg       SMTPConfig
	templates *template.Template
	send      sendFunc
	backoff   time.Duration
}

// NewMailer creates a new SMTP mailer instance
func NewMailer(cfg SMTPConfig) (Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &mailerImpl{
		cfg:       cfg,
		templates: tmpl,
		send:      smtp.SendMail,
		backoff:   time.Second,
	}, nil
}

// SendLeaveStatus tells the request owner about a status change.
func (s *mailerImpl) SendLeaveStatus(ctx context.Context, to string, data LeaveStatusData) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "leave_status.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return s.sendHTML(ctx, to, fmt.Sprintf("Leave request %s", data.Status), body.String())
}

func (s *mailerImpl) sendHTML(ctx context.Context, to, subject, htmlBody string) error {
	// Skip sending if SMTP is not configured
	if s.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	from := s.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, from)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, from, []string{to}, message)
		if err == nil {
			slog.Info("Email sent", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		if attempt < maxRetries {
			// Exponential backoff: 1s, 2s
			select {
			case <-ctx.Done():
				return fmt.Errorf("email to %s aborted: %w", to, ctx.Err())
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

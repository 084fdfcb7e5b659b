// Package notification delivers transactional email: account verification,
// password resets, and appointment confirmations. Templates use {{var}}
// placeholders; delivery retries transient sender failures and keeps an
// in-memory log of recent attempts.
package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message is one outbound email.
type Message struct {
	ID         string            `json:"id"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Sender delivers a rendered email.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

// Template is a reusable email template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// Built-in template identifiers.
const (
	TemplateVerifyEmail          = "verify-email"
	TemplatePasswordReset        = "password-reset"
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCancelled = "appointment-cancelled"
)

var builtinTemplates = []Template{
	{
		ID:      TemplateVerifyEmail,
		Subject: "Verify your UrbanCare account",
		Body:    "Hello {{name}},\n\nPlease verify your email address by visiting:\n{{link}}\n\nIf you did not create this account, ignore this message.",
	},
	{
		ID:      TemplatePasswordReset,
		Subject: "Reset your UrbanCare password",
		Body:    "Hello {{name}},\n\nA password reset was requested for your account. Visit the link below within one hour to choose a new password:\n{{link}}\n\nIf you did not request this, ignore this message.",
	},
	{
		ID:      TemplateAppointmentConfirmed,
		Subject: "Appointment confirmed for {{date}}",
		Body:    "Hello {{name}},\n\nYour appointment with Dr. {{doctor}} on {{date}} at {{time}} is confirmed.\n\nUrbanCare Hospital",
	},
	{
		ID:      TemplateAppointmentCancelled,
		Subject: "Appointment cancelled",
		Body:    "Hello {{name}},\n\nYour appointment with Dr. {{doctor}} on {{date}} at {{time}} has been cancelled.\n\nUrbanCare Hospital",
	},
}

// Render substitutes {{var}} placeholders in the template with data values.
// Unknown placeholders are left intact so missing data is visible in review.
func Render(tpl Template, data map[string]string) (subject, body string) {
	subject = tpl.Subject
	body = tpl.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

const (
	maxAttempts = 3
	retryDelay  = 500 * time.Millisecond
	maxLogSize  = 1000
)

// Service renders templates and delivers email through a Sender.
type Service struct {
	sender    Sender
	logger    zerolog.Logger
	mu        sync.Mutex
	templates map[string]Template
	log       []*Message
}

func NewService(sender Sender, logger zerolog.Logger) *Service {
	templates := make(map[string]Template, len(builtinTemplates))
	for _, t := range builtinTemplates {
		templates[t.ID] = t
	}
	return &Service{sender: sender, logger: logger, templates: templates}
}

// Send renders the template and delivers it, retrying transient failures.
// The returned message records the final delivery status.
func (s *Service) Send(ctx context.Context, templateID, recipient string, data map[string]string) (*Message, error) {
	s.mu.Lock()
	tpl, ok := s.templates[templateID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", templateID)
	}

	subject, body := Render(tpl, data)
	msg := &Message{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Status:     "pending",
		CreatedAt:  time.Now(),
		Data:       data,
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.sender.SendEmail(ctx, recipient, subject, body)
		if err == nil {
			now := time.Now()
			msg.Status = "sent"
			msg.SentAt = &now
			break
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				err = ctx.Err()
				attempt = maxAttempts
			}
		}
	}
	if err != nil {
		msg.Status = "failed"
		msg.Error = err.Error()
		s.logger.Error().Err(err).
			Str("template", templateID).
			Str("recipient", recipient).
			Msg("email delivery failed")
	}

	s.record(msg)
	if err != nil {
		return msg, fmt.Errorf("send %s to %s: %w", templateID, recipient, err)
	}
	return msg, nil
}

func (s *Service) record(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, msg)
	if len(s.log) > maxLogSize {
		s.log = s.log[len(s.log)-maxLogSize:]
	}
}

// Recent returns up to n most recent delivery attempts, newest first.
func (s *Service) Recent(n int) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.log) {
		n = len(s.log)
	}
	out := make([]*Message, 0, n)
	for i := len(s.log) - 1; i >= len(s.log)-n; i-- {
		out = append(out, s.log[i])
	}
	return out
}

// ---------------------------------------------------------------------------
// Senders
// ---------------------------------------------------------------------------

// SMTPSender sends email via a plain SMTP relay.
type SMTPSender struct {
	Host string
	Port int
	From string
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	data := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body))
	if err := smtp.SendMail(addr, nil, s.From, []string{to}, data); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender logs email instead of sending it. Used in development.
type LogSender struct {
	Logger zerolog.Logger
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Msg("email (dev mode, not sent)")
	return nil
}

package chatbot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

const maxHistoryPerUser = 50

// Counters provides the caller's live figures for personalized answers.
type Counters interface {
	UpcomingAppointments(ctx context.Context, userID uuid.UUID) (int, error)
	MedicalRecords(ctx context.Context, patientID uuid.UUID) (int, error)
	PendingPayments(ctx context.Context, patientID uuid.UUID) (int, error)
}

type Service struct {
	counters Counters
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	history map[uuid.UUID][]*Exchange
}

func NewService(counters Counters, logger zerolog.Logger) *Service {
	return &Service{
		counters: counters,
		logger:   logger,
		now:      time.Now,
		history:  make(map[uuid.UUID][]*Exchange),
	}
}

// Message answers one user message. Dispatch order is fixed: emergency wins
// over appointment, records, symptom, tips, payment, and greeting; anything
// unmatched falls through to the fallback.
func (s *Service) Message(ctx context.Context, message string) (*Reply, error) {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return nil, apperr.Validation("message is required")
	}

	var reply *Reply
	switch {
	case matchAny(text, emergencyKeywords) != "":
		reply = s.emergencyReply(text)
	case matchAny(text, appointmentKeywords) != "":
		reply = s.appointmentReply(ctx)
	case matchAny(text, recordsKeywords) != "":
		reply = s.recordsReply(ctx)
	case matchSymptom(text) != nil:
		reply = symptomReply(matchSymptom(text))
	case matchAny(text, tipsKeywords) != "":
		reply = tipsReply(s.now())
	case matchAny(text, paymentKeywords) != "":
		reply = s.paymentReply(ctx)
	case matchAny(text, greetingKeywords) != "":
		reply = greetingReply()
	default:
		reply = fallbackReply()
	}
	reply.Timestamp = s.now()

	s.remember(auth.UserIDFromContext(ctx), message, reply)
	return reply, nil
}

// History returns the caller's stored exchanges, newest first.
func (s *Service) History(ctx context.Context, limit int) []*Exchange {
	userID := auth.UserIDFromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.history[userID]
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]*Exchange, 0, limit)
	for i := len(items) - 1; i >= len(items)-limit; i-- {
		out = append(out, items[i])
	}
	return out
}

// HealthTips returns the full tips rotation.
func (s *Service) HealthTips() []string {
	return append([]string(nil), healthTips...)
}

// Symptoms returns the triage knowledge base.
func (s *Service) Symptoms() []SymptomInfo {
	return append([]SymptomInfo(nil), symptoms...)
}

// EmergencyCheck runs an explicit triage over the description.
func (s *Service) EmergencyCheck(description string) *EmergencyCheck {
	text := strings.ToLower(description)
	var matched []string
	for _, kw := range emergencyKeywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return &EmergencyCheck{
			Emergency: true,
			Priority:  PriorityCritical,
			Message:   "Your description matches emergency warning signs. Call 911 or go to the nearest emergency department now.",
			Actions:   []string{"call-911"},
			Matched:   matched,
		}
	}
	return &EmergencyCheck{
		Emergency: false,
		Priority:  PriorityNormal,
		Message:   "Your description does not match our emergency signals. If symptoms worsen or you feel unsafe, seek urgent care.",
	}
}

func (s *Service) emergencyReply(text string) *Reply {
	return &Reply{
		Intent:   IntentEmergency,
		Priority: PriorityCritical,
		Message:  "This sounds like a medical emergency. Call 911 now or go to the nearest emergency department. Do not wait for an online reply.",
		Actions:  []string{"call-911"},
	}
}

func (s *Service) appointmentReply(ctx context.Context) *Reply {
	reply := &Reply{
		Intent:   IntentAppointment,
		Priority: PriorityNormal,
		Message:  "You can book, reschedule, or cancel appointments from the appointments page.",
		Suggestions: []string{
			"Browse the doctor directory",
			"Check a doctor's availability",
		},
	}
	if userID := auth.UserIDFromContext(ctx); userID != uuid.Nil && s.counters != nil {
		if n, err := s.counters.UpcomingAppointments(ctx, userID); err == nil {
			reply.Message = fmt.Sprintf("You currently have %d upcoming appointment(s). You can book, reschedule, or cancel from the appointments page.", n)
		} else {
			s.logger.Warn().Err(err).Msg("appointment count lookup failed")
		}
	}
	return reply
}

func (s *Service) recordsReply(ctx context.Context) *Reply {
	reply := &Reply{
		Intent:   IntentRecords,
		Priority: PriorityNormal,
		Message:  "Your medical records, prescriptions, and lab results are available under your chart.",
	}
	if userID := auth.UserIDFromContext(ctx); userID != uuid.Nil && s.counters != nil {
		if n, err := s.counters.MedicalRecords(ctx, userID); err == nil {
			reply.Message = fmt.Sprintf("Your chart holds %d record(s), including prescriptions and lab results.", n)
		} else {
			s.logger.Warn().Err(err).Msg("record count lookup failed")
		}
	}
	return reply
}

func (s *Service) paymentReply(ctx context.Context) *Reply {
	reply := &Reply{
		Intent:   IntentPayment,
		Priority: PriorityNormal,
		Message:  "You can review bills and payment history under payments. We accept cash, card, insurance, and online payment.",
	}
	if userID := auth.UserIDFromContext(ctx); userID != uuid.Nil && s.counters != nil {
		if n, err := s.counters.PendingPayments(ctx, userID); err == nil && n > 0 {
			reply.Message = fmt.Sprintf("You have %d pending payment(s). You can settle them under payments; we accept cash, card, insurance, and online payment.", n)
		}
	}
	return reply
}

func symptomReply(info *SymptomInfo) *Reply {
	return &Reply{
		Intent:   IntentSymptom,
		Priority: PriorityNormal,
		Message:  fmt.Sprintf("For %s: %s See a doctor if %s", info.Name, info.Advice, info.SeeADoc),
		Suggestions: []string{
			"Book an appointment",
			"Run an emergency check",
		},
	}
}

func tipsReply(now time.Time) *Reply {
	tip := healthTips[now.YearDay()%len(healthTips)]
	return &Reply{
		Intent:   IntentHealthTips,
		Priority: PriorityNormal,
		Message:  "Today's health tip: " + tip,
	}
}

func greetingReply() *Reply {
	return &Reply{
		Intent:   IntentGreeting,
		Priority: PriorityNormal,
		Message:  "Hello! I can help with appointments, medical records, bills, symptoms, and health tips. What do you need?",
	}
}

func fallbackReply() *Reply {
	return &Reply{
		Intent:   IntentFallback,
		Priority: PriorityNormal,
		Message:  "I did not catch that. Try asking about appointments, records, payments, a symptom, or say 'health tips'.",
		Suggestions: []string{
			"Book an appointment",
			"Show my records",
			"Health tips",
		},
	}
}

func (s *Service) remember(userID uuid.UUID, message string, reply *Reply) {
	if userID == uuid.Nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append(s.history[userID], &Exchange{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Reply:     *reply,
		CreatedAt: s.now(),
	})
	if len(items) > maxHistoryPerUser {
		items = items[len(items)-maxHistoryPerUser:]
	}
	s.history[userID] = items
}

func matchAny(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

func matchSymptom(text string) *SymptomInfo {
	for i := range symptoms {
		for _, kw := range symptoms[i].Keywords {
			if strings.Contains(text, kw) {
				return &symptoms[i]
			}
		}
	}
	return nil
}

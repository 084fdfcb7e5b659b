// Package chatbot answers patient questions with a keyword-driven assistant.
// Intents are matched in a fixed priority order so that an emergency phrase
// always wins over anything else in the message.
package chatbot

import (
	"time"

	"github.com/google/uuid"
)

// Intent identifies what the assistant decided the message is about.
type Intent string

const (
	IntentEmergency   Intent = "emergency"
	IntentAppointment Intent = "appointment"
	IntentRecords     Intent = "records"
	IntentSymptom     Intent = "symptom"
	IntentHealthTips  Intent = "health-tips"
	IntentPayment     Intent = "payment"
	IntentGreeting    Intent = "greeting"
	IntentFallback    Intent = "fallback"
)

// Priority grades the urgency of a reply.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityNormal   Priority = "normal"
)

// Reply is the assistant's answer to one message.
type Reply struct {
	Intent      Intent    `json:"intent"`
	Priority    Priority  `json:"priority"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Actions     []string  `json:"actions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Exchange is one stored question and answer pair.
type Exchange struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Reply     Reply     `json:"reply"`
	CreatedAt time.Time `json:"created_at"`
}

// SymptomInfo is one knowledge-base entry for self-triage.
type SymptomInfo struct {
	Name     string   `json:"name"`
	Advice   string   `json:"advice"`
	SeeADoc  string   `json:"see_a_doctor_if"`
	Keywords []string `json:"-"`
}

// EmergencyCheck is the answer to an explicit triage request.
type EmergencyCheck struct {
	Emergency bool     `json:"emergency"`
	Priority  Priority `json:"priority"`
	Message   string   `json:"message"`
	Actions   []string `json:"actions,omitempty"`
	Matched   []string `json:"matched_signals,omitempty"`
}

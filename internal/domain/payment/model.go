// Package payment tracks billing for visits and services. Amounts are
// recorded in the hospital's single operating currency.
package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash      Method = "cash"
	MethodCard      Method = "card"
	MethodInsurance Method = "insurance"
	MethodOnline    Method = "online"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodCash, MethodCard, MethodInsurance, MethodOnline:
		return true
	}
	return false
}

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// CanTransition allows pending to complete and completed to refund.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted
	case StatusCompleted:
		return to == StatusRefunded
	}
	return false
}

// Payment maps to the payments table.
type Payment struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Amount        float64    `json:"amount"`
	Method        Method     `json:"method"`
	Status        Status     `json:"status"`
	Description   string     `json:"description,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateRequest is the payment creation payload.
type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Amount        float64    `json:"amount"`
	Method        Method     `json:"method"`
	Description   string     `json:"description"`
}

func (r *CreateRequest) Validate() error {
	var fields []apperr.FieldError
	if r.PatientID == uuid.Nil {
		fields = append(fields, apperr.FieldError{Field: "patient_id", Message: "required"})
	}
	if r.Amount <= 0 {
		fields = append(fields, apperr.FieldError{Field: "amount", Message: "must be positive"})
	}
	if !ValidMethod(r.Method) {
		fields = append(fields, apperr.FieldError{Field: "method", Message: "unknown payment method"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid payment", fields...)
	}
	return nil
}

// Filter narrows payment listings.
type Filter struct {
	PatientID *uuid.UUID
	Status    Status
	Method    Method
	From      *time.Time
	To        *time.Time
}

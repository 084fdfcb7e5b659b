// Package appointment schedules visits between patients and doctors. A
// doctor's calendar never holds two overlapping non-cancelled appointments;
// back-to-back bookings are allowed because intervals are half-open.
package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the allowed next states per state. Completed and
// cancelled are terminal.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment maps to the appointments table. PatientName and DoctorName are
// joined in for display and not stored.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason"`
	Notes       string    `json:"notes,omitempty"`
	Fee         float64   `json:"fee"`
	PatientName string    `json:"patient_name,omitempty"`
	DoctorName  string    `json:"doctor_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookRequest is the booking payload. Staff may book on behalf of a patient
// by setting PatientID; for patients it is forced to their own id.
type BookRequest struct {
	PatientID uuid.UUID `json:"patient_id,omitempty"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Reason    string    `json:"reason"`
}

// Validate checks the interval invariants common to booking and reschedule.
func (r *BookRequest) Validate(now time.Time) error {
	var fields []apperr.FieldError
	if r.DoctorID == uuid.Nil {
		fields = append(fields, apperr.FieldError{Field: "doctor_id", Message: "required"})
	}
	if r.StartsAt.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "starts_at", Message: "required"})
	}
	if r.EndsAt.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "ends_at", Message: "required"})
	}
	if r.Reason == "" {
		fields = append(fields, apperr.FieldError{Field: "reason", Message: "required"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid booking request", fields...)
	}
	if !r.EndsAt.After(r.StartsAt) {
		return apperr.Validation("ends_at must be after starts_at")
	}
	if r.StartsAt.Before(now) {
		return apperr.Validation("appointments cannot be booked in the past")
	}
	return nil
}

// Filter narrows appointment listings. Role scoping is applied by the
// service before the filter reaches the repository.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	From      *time.Time
	To        *time.Time
}

// Slot is one bookable interval in a doctor's day.
type Slot struct {
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Available bool      `json:"available"`
}

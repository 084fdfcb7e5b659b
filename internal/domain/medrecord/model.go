// Package medrecord stores versioned clinical records. Every read and write
// of a record leaves an audit trail entry; updates snapshot the previous
// version first so history is never lost. Deletion is a soft flag and
// reserved for admins.
package medrecord

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

// Type classifies a clinical record.
type Type string

const (
	TypeDiagnosis    Type = "diagnosis"
	TypePrescription Type = "prescription"
	TypeLabResult    Type = "lab-result"
	TypeVitals       Type = "vitals"
	TypeNote         Type = "note"
)

func ValidType(t Type) bool {
	switch t {
	case TypeDiagnosis, TypePrescription, TypeLabResult, TypeVitals, TypeNote:
		return true
	}
	return false
}

// Record maps to the medical_records table. Content is a free-form JSON
// document whose shape depends on Type. The treating doctor and the
// originating appointment are optional links.
type Record struct {
	ID            uuid.UUID       `json:"id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	AuthorID      uuid.UUID       `json:"author_id"`
	DoctorID      *uuid.UUID      `json:"doctor_id,omitempty"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Type          Type            `json:"type"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
	Version       int             `json:"version"`
	Deleted       bool            `json:"deleted,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Version is one frozen prior state of a record.
type Version struct {
	RecordID  uuid.UUID       `json:"record_id"`
	Version   int             `json:"version"`
	Type      Type            `json:"type"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	EditedBy  uuid.UUID       `json:"edited_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateRequest is the record creation payload. DoctorID names the treating
// doctor and may be omitted; when a doctor creates a record it defaults to
// the author. AppointmentID optionally ties the record to a visit.
type CreateRequest struct {
	PatientID     uuid.UUID       `json:"patient_id"`
	DoctorID      *uuid.UUID      `json:"doctor_id,omitempty"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Type          Type            `json:"type"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
}

func (r *CreateRequest) Validate() error {
	var fields []apperr.FieldError
	if r.PatientID == uuid.Nil {
		fields = append(fields, apperr.FieldError{Field: "patient_id", Message: "required"})
	}
	if !ValidType(r.Type) {
		fields = append(fields, apperr.FieldError{Field: "type", Message: "unknown record type"})
	}
	if r.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "required"})
	}
	if len(r.Content) == 0 {
		fields = append(fields, apperr.FieldError{Field: "content", Message: "required"})
	} else if !json.Valid(r.Content) {
		fields = append(fields, apperr.FieldError{Field: "content", Message: "must be valid JSON"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid record", fields...)
	}
	return nil
}

// UpdateRequest mutates title and content; type and patient are fixed at
// creation.
type UpdateRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// Filter narrows record listings.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Type      Type
}

// Summary aggregates one patient's chart.
type Summary struct {
	PatientID     uuid.UUID    `json:"patient_id"`
	TotalRecords  int          `json:"total_records"`
	ByType        map[Type]int `json:"by_type"`
	Recent        []*Record    `json:"recent"`
	LatestVitals  *Record      `json:"latest_vitals,omitempty"`
	Prescriptions []*Record    `json:"prescriptions"`
}

package appointment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/domain/identity"
	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/notification"
	"github.com/urbancare/urbancare/internal/platform/websocket"
)

// Working hours for the availability grid.
const (
	dayStartHour = 9
	dayEndHour   = 17
	slotMinutes  = 30
)

// Directory resolves user identities for booking validation and email
// addressing.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.PublicUser, error)
}

// Mailer matches the notification service surface this package needs.
type Mailer interface {
	Send(ctx context.Context, templateID, recipient string, data map[string]string) (*notification.Message, error)
}

type Service struct {
	repo      Repository
	directory Directory
	mailer    Mailer
	publisher websocket.Publisher
	recorder  *audit.Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, directory Directory, mailer Mailer,
	publisher websocket.Publisher, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		mailer:    mailer,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Book creates a scheduled appointment. Patients book for themselves; staff,
// managers, and admins book on behalf of any patient. The slot must not
// intersect an existing non-cancelled appointment of the doctor.
func (s *Service) Book(ctx context.Context, req *BookRequest) (*Appointment, error) {
	callerID := auth.UserIDFromContext(ctx)
	role := auth.RoleFromContext(ctx)

	switch role {
	case auth.RolePatient:
		req.PatientID = callerID
	case auth.RoleStaff, auth.RoleManager, auth.RoleAdmin:
		if req.PatientID == uuid.Nil {
			return nil, apperr.Validation("patient_id is required",
				apperr.FieldError{Field: "patient_id", Message: "required"})
		}
	default:
		return nil, apperr.Forbidden("role cannot book appointments")
	}

	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	doctor, err := s.directory.Get(ctx, req.DoctorID)
	if err != nil || doctor.Role != auth.RoleDoctor {
		return nil, apperr.Validation("doctor not found",
			apperr.FieldError{Field: "doctor_id", Message: "not a doctor"})
	}
	patient, err := s.directory.Get(ctx, req.PatientID)
	if err != nil || patient.Role != auth.RolePatient {
		return nil, apperr.Validation("patient not found",
			apperr.FieldError{Field: "patient_id", Message: "not a patient"})
	}

	busy, err := s.repo.Overlaps(ctx, req.DoctorID, req.StartsAt, req.EndsAt, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, apperr.Conflict("slot unavailable")
	}

	a := &Appointment{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Status:    StatusScheduled,
		Reason:    req.Reason,
	}
	if doctor.Doctor != nil {
		a.Fee = doctor.Doctor.ConsultationFee
	}

	// The exclusion constraint closes the race between the check above and
	// this insert; a loser surfaces as Conflict.
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.ActionCreate, "appointment", a.ID.String(), audit.OutcomeSuccess)
	s.notify(ctx, "appointment.booked", a)

	created, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return a, nil
	}
	return created, nil
}

// Get returns one appointment if the caller may see it.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns appointments scoped to the caller: patients and doctors see
// their own, scheduling roles see everything the filter matches.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		f.PatientID = &callerID
	case auth.RoleDoctor:
		f.DoctorID = &callerID
	}
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateStatus moves the appointment through its lifecycle. Patients may only
// cancel their own; doctors drive their own appointments; scheduling roles
// manage any.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Appointment, error) {
	if !ValidStatus(next) {
		return nil, apperr.Validation("unknown status")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		if a.PatientID != callerID {
			return nil, apperr.Forbidden("not your appointment")
		}
		if next != StatusCancelled {
			return nil, apperr.Forbidden("patients may only cancel")
		}
	case auth.RoleDoctor:
		if a.DoctorID != callerID {
			return nil, apperr.Forbidden("not your appointment")
		}
	case auth.RoleStaff, auth.RoleManager, auth.RoleAdmin:
	default:
		return nil, apperr.Forbidden("role cannot manage appointments")
	}

	if !CanTransition(a.Status, next) {
		return nil, apperr.Validation("cannot move appointment from " + string(a.Status) + " to " + string(next))
	}

	a.Status = next
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.ActionUpdate, "appointment", a.ID.String(), audit.OutcomeSuccess)
	s.notify(ctx, "appointment.status", a)

	switch next {
	case StatusConfirmed:
		s.email(ctx, notification.TemplateAppointmentConfirmed, a)
	case StatusCancelled:
		s.email(ctx, notification.TemplateAppointmentCancelled, a)
	}
	return a, nil
}

// Reschedule moves a scheduled or confirmed appointment to a new slot,
// subject to the same overlap rule as booking.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	if !end.After(start) {
		return nil, apperr.Validation("ends_at must be after starts_at")
	}
	if start.Before(s.now()) {
		return nil, apperr.Validation("appointments cannot be moved into the past")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, a); err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, apperr.Validation("only scheduled or confirmed appointments can be rescheduled")
	}

	busy, err := s.repo.Overlaps(ctx, a.DoctorID, start, end, a.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, apperr.Conflict("slot unavailable")
	}

	a.StartsAt = start
	a.EndsAt = end
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.ActionUpdate, "appointment", a.ID.String(), audit.OutcomeSuccess)
	s.notify(ctx, "appointment.rescheduled", a)
	return a, nil
}

// Availability returns the doctor's 30-minute working-hours grid for one day,
// with slots intersecting a non-cancelled appointment marked unavailable.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	doctor, err := s.directory.Get(ctx, doctorID)
	if err != nil || doctor.Role != auth.RoleDoctor {
		return nil, apperr.NotFound("doctor not found")
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), dayStartHour, 0, 0, 0, time.UTC)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), dayEndHour, 0, 0, 0, time.UTC)

	booked, err := s.repo.BookedIntervals(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for t := dayStart; t.Before(dayEnd); t = t.Add(slotMinutes * time.Minute) {
		slotEnd := t.Add(slotMinutes * time.Minute)
		available := true
		for _, iv := range booked {
			if iv[0].Before(slotEnd) && iv[1].After(t) {
				available = false
				break
			}
		}
		slots = append(slots, Slot{StartsAt: t, EndsAt: slotEnd, Available: available})
	}
	return slots, nil
}

func (s *Service) authorize(ctx context.Context, a *Appointment) error {
	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		if a.PatientID != callerID {
			return apperr.Forbidden("not your appointment")
		}
	case auth.RoleDoctor:
		if a.DoctorID != callerID {
			return apperr.Forbidden("not your appointment")
		}
	case auth.RoleStaff, auth.RoleManager, auth.RoleAdmin:
	default:
		return apperr.Forbidden("role cannot view appointments")
	}
	return nil
}

// notify pushes the event to both participants' private rooms. Delivery is
// best effort.
func (s *Service) notify(ctx context.Context, eventType string, a *Appointment) {
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	for _, userID := range []uuid.UUID{a.PatientID, a.DoctorID} {
		event := websocket.Event{
			Type:         eventType,
			Topic:        websocket.UserTopic(userID),
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			Timestamp:    s.now(),
			Data:         payload,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
		}
	}
}

// email sends the status email to the patient. Failure never fails the
// transition.
func (s *Service) email(ctx context.Context, templateID string, a *Appointment) {
	patient, err := s.directory.Get(ctx, a.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("patient lookup for email failed")
		return
	}
	if _, err := s.mailer.Send(ctx, templateID, patient.Email, map[string]string{
		"name":   patient.FirstName,
		"doctor": a.DoctorName,
		"date":   a.StartsAt.Format("2006-01-02"),
		"time":   a.StartsAt.Format("15:04"),
	}); err != nil {
		s.logger.Warn().Err(err).Str("template", templateID).Msg("appointment email failed")
	}
}

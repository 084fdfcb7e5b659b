package medrecord

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

const summaryRecent = 5

type Service struct {
	repo     Repository
	recorder *audit.Recorder
	logger   zerolog.Logger
}

func NewService(repo Repository, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// Create adds a record to the patient's chart. A doctor authoring without
// naming a treating doctor becomes the treating doctor; staff and admins may
// leave the link empty.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	callerID := auth.UserIDFromContext(ctx)
	role := auth.RoleFromContext(ctx)

	doctorID := req.DoctorID
	if role == auth.RoleDoctor && doctorID == nil {
		self := callerID
		doctorID = &self
	}

	r := &Record{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		AuthorID:      callerID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		Type:          req.Type,
		Title:         req.Title,
		Content:       req.Content,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionCreate, "medical_record", r.ID.String(), audit.OutcomeSuccess)
	return r, nil
}

// Get returns one record. Every successful read is audited; a denied read is
// audited as denied.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, r); err != nil {
		s.recorder.Record(ctx, audit.ActionRead, "medical_record", id.String(), audit.OutcomeDenied)
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionRead, "medical_record", id.String(), audit.OutcomeSuccess)
	return r, nil
}

// List returns records scoped to the caller's role.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		f.PatientID = &callerID
	case auth.RoleDoctor:
		f.DoctorID = &callerID
	case auth.RoleStaff, auth.RoleAdmin:
	default:
		return nil, 0, apperr.Forbidden("role cannot list medical records")
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Update applies new content after snapshotting the current version. Only the
// author, the treating doctor, or an admin may edit.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Record, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Deleted {
		return nil, apperr.NotFound("medical record not found")
	}
	if err := s.canWrite(ctx, r); err != nil {
		s.recorder.Record(ctx, audit.ActionUpdate, "medical_record", id.String(), audit.OutcomeDenied)
		return nil, err
	}

	if req.Title != "" {
		r.Title = req.Title
	}
	if len(req.Content) > 0 {
		if !json.Valid(req.Content) {
			return nil, apperr.Validation("content must be valid JSON")
		}
		r.Content = req.Content
	}

	if err := s.repo.Update(ctx, r, auth.UserIDFromContext(ctx)); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, "medical_record", id.String(), audit.OutcomeSuccess)
	return r, nil
}

// Delete soft-deletes a record. Admin only; history stays queryable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if !auth.Can(auth.RoleFromContext(ctx), auth.CapRecordDelete) {
		s.recorder.Record(ctx, audit.ActionDelete, "medical_record", id.String(), audit.OutcomeDenied)
		return apperr.Forbidden("only admins may delete medical records")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.ActionDelete, "medical_record", id.String(), audit.OutcomeSuccess)
	return nil
}

// Versions returns the edit history, newest first.
func (s *Service) Versions(ctx context.Context, id uuid.UUID) ([]*Version, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, r); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, id)
}

// Summary aggregates one patient's chart: totals per type plus the most
// recent records.
func (s *Service) Summary(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		if callerID != patientID {
			return nil, apperr.Forbidden("not your chart")
		}
	case auth.RoleDoctor, auth.RoleStaff, auth.RoleAdmin:
	default:
		return nil, apperr.Forbidden("role cannot view patient charts")
	}

	counts, err := s.repo.CountByType(ctx, patientID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.repo.List(ctx, Filter{PatientID: &patientID}, summaryRecent, 0)
	if err != nil {
		return nil, err
	}
	vitals, _, err := s.repo.List(ctx, Filter{PatientID: &patientID, Type: TypeVitals}, 1, 0)
	if err != nil {
		return nil, err
	}
	prescriptions, _, err := s.repo.List(ctx, Filter{PatientID: &patientID, Type: TypePrescription}, summaryRecent, 0)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	sum := &Summary{
		PatientID:     patientID,
		TotalRecords:  total,
		ByType:        counts,
		Recent:        recent,
		Prescriptions: prescriptions,
	}
	if len(vitals) > 0 {
		sum.LatestVitals = vitals[0]
	}
	s.recorder.Record(ctx, audit.ActionRead, "patient_chart", patientID.String(), audit.OutcomeSuccess)
	return sum, nil
}

// canRead implements chart visibility: the patient, the treating or authoring
// clinician, staff, and admins. Soft-deleted records are admin only.
func (s *Service) canRead(ctx context.Context, r *Record) error {
	callerID := auth.UserIDFromContext(ctx)
	role := auth.RoleFromContext(ctx)

	if r.Deleted && role != auth.RoleAdmin {
		return apperr.NotFound("medical record not found")
	}

	switch role {
	case auth.RolePatient:
		if r.PatientID != callerID {
			return apperr.Forbidden("not your record")
		}
	case auth.RoleDoctor:
		if !isTreating(r, callerID) && r.AuthorID != callerID {
			return apperr.Forbidden("not involved in this patient's care")
		}
	case auth.RoleStaff, auth.RoleAdmin:
	default:
		return apperr.Forbidden("role cannot read medical records")
	}
	return nil
}

func isTreating(r *Record, doctorID uuid.UUID) bool {
	return r.DoctorID != nil && *r.DoctorID == doctorID
}

// canWrite restricts edits to the author, the treating doctor, and admins.
func (s *Service) canWrite(ctx context.Context, r *Record) error {
	callerID := auth.UserIDFromContext(ctx)
	switch auth.RoleFromContext(ctx) {
	case auth.RoleAdmin:
		return nil
	case auth.RoleDoctor:
		if isTreating(r, callerID) || r.AuthorID == callerID {
			return nil
		}
	default:
		if r.AuthorID == callerID {
			return nil
		}
	}
	return apperr.Forbidden("cannot edit this record")
}

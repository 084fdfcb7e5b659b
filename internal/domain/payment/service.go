package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

type Service struct {
	repo     Repository
	recorder *audit.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger, now: time.Now}
}

// Create records a payment. Cash and card payments taken at the desk start
// completed; insurance and online payments start pending.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Payment{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Amount:        req.Amount,
		Method:        req.Method,
		Description:   req.Description,
		Status:        StatusPending,
	}
	if req.Method == MethodCash || req.Method == MethodCard {
		now := s.now()
		p.Status = StatusCompleted
		p.PaidAt = &now
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionCreate, "payment", p.ID.String(), audit.OutcomeSuccess)
	return p, nil
}

// Get returns one payment; patients see only their own.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient && p.PatientID != auth.UserIDFromContext(ctx) {
		return nil, apperr.Forbidden("not your payment")
	}
	return p, nil
}

// List returns payments; patients are scoped to their own history.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Payment, int, error) {
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		callerID := auth.UserIDFromContext(ctx)
		f.PatientID = &callerID
	}
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateStatus completes or refunds a payment.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Payment, error) {
	if !ValidStatus(next) {
		return nil, apperr.Validation("unknown payment status")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(p.Status, next) {
		return nil, apperr.Validation("cannot move payment from " + string(p.Status) + " to " + string(next))
	}

	p.Status = next
	if next == StatusCompleted {
		now := s.now()
		p.PaidAt = &now
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, "payment", p.ID.String(), audit.OutcomeSuccess)
	return p, nil
}

package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

type mockRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockRepo) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return apperr.NotFound("payment not found")
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Payment
	for _, p := range m.payments {
		if f.PatientID != nil && p.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type nopAuditRepo struct{}

func (nopAuditRepo) Append(context.Context, *audit.Entry) error { return nil }
func (nopAuditRepo) Search(context.Context, audit.Filter, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}

func newTestService() *Service {
	return NewService(newMockRepo(), audit.NewRecorder(nopAuditRepo{}, zerolog.Nop()), zerolog.Nop())
}

func staffCtx() context.Context {
	return auth.WithIdentity(context.Background(), uuid.New(), auth.RoleStaff)
}

func TestCashPaymentsCompleteImmediately(t *testing.T) {
	svc := newTestService()
	p, err := svc.Create(staffCtx(), &CreateRequest{
		PatientID: uuid.New(),
		Amount:    120,
		Method:    MethodCash,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusCompleted || p.PaidAt == nil {
		t.Errorf("cash payment = %s, paid_at = %v, want completed with timestamp", p.Status, p.PaidAt)
	}
}

func TestInsurancePaymentsStartPending(t *testing.T) {
	svc := newTestService()
	p, err := svc.Create(staffCtx(), &CreateRequest{
		PatientID: uuid.New(),
		Amount:    340.50,
		Method:    MethodInsurance,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusPending || p.PaidAt != nil {
		t.Errorf("insurance payment = %s, want pending", p.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	cases := []CreateRequest{
		{Amount: 10, Method: MethodCash},                            // no patient
		{PatientID: uuid.New(), Amount: 0, Method: MethodCash},      // zero amount
		{PatientID: uuid.New(), Amount: -5, Method: MethodCash},     // negative
		{PatientID: uuid.New(), Amount: 10, Method: Method("wire")}, // unknown method
	}
	for i, req := range cases {
		if _, err := svc.Create(staffCtx(), &req); !apperr.IsCode(err, apperr.CodeValidation) {
			t.Errorf("case %d: err = %v, want validation", i, err)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	p, err := svc.Create(ctx, &CreateRequest{PatientID: uuid.New(), Amount: 80, Method: MethodOnline})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Pending cannot jump straight to refunded.
	if _, err := svc.UpdateStatus(ctx, p.ID, StatusRefunded); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	completed, err := svc.UpdateStatus(ctx, p.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.PaidAt == nil {
		t.Error("completing must set paid_at")
	}

	if _, err := svc.UpdateStatus(ctx, p.ID, StatusRefunded); err != nil {
		t.Fatalf("refund: %v", err)
	}
	// Refunded is terminal.
	if _, err := svc.UpdateStatus(ctx, p.ID, StatusCompleted); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("err = %v, want validation for terminal state", err)
	}
}

func TestPatientsScopedToOwnPayments(t *testing.T) {
	svc := newTestService()
	patientID := uuid.New()

	p, err := svc.Create(staffCtx(), &CreateRequest{PatientID: patientID, Amount: 60, Method: MethodCard})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ownCtx := auth.WithIdentity(context.Background(), patientID, auth.RolePatient)
	if _, err := svc.Get(ownCtx, p.ID); err != nil {
		t.Errorf("owner get: %v", err)
	}
	items, total, err := svc.List(ownCtx, Filter{}, 20, 0)
	if err != nil || total != 1 || len(items) != 1 {
		t.Errorf("owner list = %d items, err %v", total, err)
	}

	otherCtx := auth.WithIdentity(context.Background(), uuid.New(), auth.RolePatient)
	if _, err := svc.Get(otherCtx, p.ID); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Errorf("other get: err = %v, want forbidden", err)
	}
	_, total, err = svc.List(otherCtx, Filter{}, 20, 0)
	if err != nil || total != 0 {
		t.Errorf("other list = %d items, err %v, want 0", total, err)
	}
}

package appointment

import (
	"context"
	"sync"
	"testing"
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

type mockRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.appts {
		if other.DoctorID == a.DoctorID && other.Status != StatusCancelled &&
			other.StartsAt.Before(a.EndsAt) && other.EndsAt.After(a.StartsAt) {
			return apperr.Conflict("slot unavailable")
		}
	}
	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return apperr.NotFound("appointment not found")
	}
	cp := *a
	cp.UpdatedAt = time.Now()
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) Overlaps(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == excludeID || a.DoctorID != doctorID || a.Status == StatusCancelled {
			continue
		}
		if a.StartsAt.Before(end) && a.EndsAt.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) BookedIntervals(_ context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([][2]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var intervals [][2]time.Time
	for _, a := range m.appts {
		if a.DoctorID != doctorID || a.Status == StatusCancelled {
			continue
		}
		if a.StartsAt.Before(dayEnd) && a.EndsAt.After(dayStart) {
			intervals = append(intervals, [2]time.Time{a.StartsAt, a.EndsAt})
		}
	}
	return intervals, nil
}

type mockDirectory struct {
	users map[uuid.UUID]*identity.PublicUser
}

func (m *mockDirectory) Get(_ context.Context, id uuid.UUID) (*identity.PublicUser, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

type mockMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *mockMailer) Send(_ context.Context, templateID, recipient string, _ map[string]string) (*notification.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, templateID)
	return &notification.Message{TemplateID: templateID, Recipient: recipient}, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (m *mockPublisher) Publish(_ context.Context, e websocket.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type nopAuditRepo struct{}

func (nopAuditRepo) Append(context.Context, *audit.Entry) error { return nil }
func (nopAuditRepo) Search(context.Context, audit.Filter, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	mailer    *mockMailer
	publisher *mockPublisher
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patientID := uuid.New()
	doctorID := uuid.New()
	dir := &mockDirectory{users: map[uuid.UUID]*identity.PublicUser{
		patientID: {ID: patientID, Email: "pat@example.com", FirstName: "Pat", Role: auth.RolePatient},
		doctorID: {ID: doctorID, Email: "doc@example.com", FirstName: "Dana", Role: auth.RoleDoctor,
			Doctor: &identity.DoctorProfile{Specialization: "Cardiology", ConsultationFee: 120}},
	}}
	repo := newMockRepo()
	mailer := &mockMailer{}
	publisher := &mockPublisher{}
	svc := NewService(repo, dir, mailer, publisher, audit.NewRecorder(nopAuditRepo{}, zerolog.Nop()), zerolog.Nop())
	return &fixture{svc: svc, repo: repo, mailer: mailer, publisher: publisher, patientID: patientID, doctorID: doctorID}
}

func (f *fixture) patientCtx() context.Context {
	return auth.WithIdentity(context.Background(), f.patientID, auth.RolePatient)
}

func (f *fixture) doctorCtx() context.Context {
	return auth.WithIdentity(context.Background(), f.doctorID, auth.RoleDoctor)
}

func (f *fixture) slot(hour int) (time.Time, time.Time) {
	day := time.Now().UTC().AddDate(0, 0, 1)
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
	return start, start.Add(30 * time.Minute)
}

func (f *fixture) book(t *testing.T, hour int) *Appointment {
	t.Helper()
	start, end := f.slot(hour)
	a, err := f.svc.Book(f.patientCtx(), &BookRequest{
		DoctorID: f.doctorID,
		StartsAt: start,
		EndsAt:   end,
		Reason:   "checkup",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return a
}

func TestBookAssignsPatientAndFee(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)
	if a.PatientID != f.patientID {
		t.Errorf("patient id = %v, want caller", a.PatientID)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %v, want scheduled", a.Status)
	}
	if a.Fee != 120 {
		t.Errorf("fee = %v, want doctor's consultation fee", a.Fee)
	}
	// Both participants get the booked event.
	if len(f.publisher.events) != 2 {
		t.Errorf("events = %d, want 2", len(f.publisher.events))
	}
}

func TestBookOverlapConflicts(t *testing.T) {
	f := newFixture(t)
	f.book(t, 10)

	start, end := f.slot(10)
	_, err := f.svc.Book(f.patientCtx(), &BookRequest{
		DoctorID: f.doctorID,
		StartsAt: start.Add(15 * time.Minute),
		EndsAt:   end.Add(15 * time.Minute),
		Reason:   "checkup",
	})
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestBackToBackBookingsAllowed(t *testing.T) {
	f := newFixture(t)
	f.book(t, 10)

	// New appointment starting exactly where the previous one ends.
	_, end := f.slot(10)
	if _, err := f.svc.Book(f.patientCtx(), &BookRequest{
		DoctorID: f.doctorID,
		StartsAt: end,
		EndsAt:   end.Add(30 * time.Minute),
		Reason:   "follow-up",
	}); err != nil {
		t.Fatalf("back-to-back booking must succeed, got %v", err)
	}
}

func TestCancelledSlotIsReusable(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)

	if _, err := f.svc.UpdateStatus(f.patientCtx(), a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, 10)
}

func TestBookInPastRejected(t *testing.T) {
	f := newFixture(t)
	start := time.Now().UTC().Add(-time.Hour)
	_, err := f.svc.Book(f.patientCtx(), &BookRequest{
		DoctorID: f.doctorID,
		StartsAt: start,
		EndsAt:   start.Add(30 * time.Minute),
		Reason:   "checkup",
	})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestDoctorCannotBook(t *testing.T) {
	f := newFixture(t)
	start, end := f.slot(10)
	_, err := f.svc.Book(f.doctorCtx(), &BookRequest{
		DoctorID: f.doctorID,
		StartsAt: start,
		EndsAt:   end,
		Reason:   "checkup",
	})
	if !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestPatientMayOnlyCancel(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)

	if _, err := f.svc.UpdateStatus(f.patientCtx(), a.ID, StatusConfirmed); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Fatalf("patient confirm: err = %v, want forbidden", err)
	}
	if _, err := f.svc.UpdateStatus(f.patientCtx(), a.ID, StatusCancelled); err != nil {
		t.Fatalf("patient cancel: %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)
	ctx := f.doctorCtx()

	for _, next := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		if _, err := f.svc.UpdateStatus(ctx, a.ID, next); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	// Completed is terminal.
	if _, err := f.svc.UpdateStatus(ctx, a.ID, StatusCancelled); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("err = %v, want validation for terminal state", err)
	}
}

func TestConfirmSendsEmail(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)

	if _, err := f.svc.UpdateStatus(f.doctorCtx(), a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != notification.TemplateAppointmentConfirmed {
		t.Errorf("sent = %v, want confirmation email", f.mailer.sent)
	}
}

func TestRescheduleExcludesSelfFromOverlap(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)

	// Shifting within its own old window is not a conflict with itself.
	start, _ := f.slot(10)
	moved, err := f.svc.Reschedule(f.patientCtx(), a.ID, start.Add(15*time.Minute), start.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.StartsAt.Equal(start.Add(15 * time.Minute)) {
		t.Errorf("starts_at = %v", moved.StartsAt)
	}
}

func TestRescheduleIntoBusySlotConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)
	f.book(t, 11)

	start, end := f.slot(11)
	if _, err := f.svc.Reschedule(f.patientCtx(), a.ID, start, end); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestListScopedToPatient(t *testing.T) {
	f := newFixture(t)
	f.book(t, 10)

	otherPatient := uuid.New()
	ctx := auth.WithIdentity(context.Background(), otherPatient, auth.RolePatient)
	items, total, err := f.svc.List(ctx, Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("other patient sees %d appointments, want 0", total)
	}
}

func TestAvailabilityGrid(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, 10)

	slots, err := f.svc.Availability(context.Background(), f.doctorID, a.StartsAt)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("slots = %d, want 16 half-hour slots between 09:00 and 17:00", len(slots))
	}

	for _, s := range slots {
		booked := s.StartsAt.Equal(a.StartsAt)
		if booked && s.Available {
			t.Errorf("slot %v must be unavailable", s.StartsAt)
		}
		// The 10:30 slot right after the booking stays open.
		if s.StartsAt.Equal(a.EndsAt) && !s.Available {
			t.Errorf("slot %v after the booking must stay available", s.StartsAt)
		}
	}
}

func TestAvailabilityUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Availability(context.Background(), uuid.New(), time.Now()); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

package medrecord

import (
	"context"
	"encoding/json"
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
	records  map[uuid.UUID]*Record
	versions map[uuid.UUID][]*Version
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		records:  make(map[uuid.UUID]*Record),
		versions: make(map[uuid.UUID][]*Version),
	}
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Version = 1
	cp := *r
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.records[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("medical record not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *Record, editedBy uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[r.ID]
	if !ok {
		return apperr.NotFound("medical record not found")
	}
	if cur.Version != r.Version || cur.Deleted {
		return apperr.Conflict("record was modified concurrently")
	}
	m.versions[r.ID] = append(m.versions[r.ID], &Version{
		RecordID:  r.ID,
		Version:   cur.Version,
		Type:      cur.Type,
		Title:     cur.Title,
		Content:   cur.Content,
		EditedBy:  editedBy,
		CreatedAt: time.Now(),
	})
	cp := *r
	cp.Version = cur.Version + 1
	cp.UpdatedAt = time.Now()
	m.records[r.ID] = &cp
	r.Version = cp.Version
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Deleted {
		return apperr.NotFound("medical record not found")
	}
	r.Deleted = true
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Record
	for _, r := range m.records {
		if r.Deleted {
			continue
		}
		if f.PatientID != nil && r.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && (r.DoctorID == nil || *r.DoctorID != *f.DoctorID) {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		cp := *r
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) ListVersions(_ context.Context, recordID uuid.UUID) ([]*Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Version(nil), m.versions[recordID]...), nil
}

func (m *mockRepo) CountByType(_ context.Context, patientID uuid.UUID) (map[Type]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Type]int)
	for _, r := range m.records {
		if r.PatientID == patientID && !r.Deleted {
			counts[r.Type]++
		}
	}
	return counts, nil
}

type captureAuditRepo struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (c *captureAuditRepo) Append(_ context.Context, e *audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureAuditRepo) Search(context.Context, audit.Filter, int, int) ([]*audit.Entry, int, error) {
	return nil, 0, nil
}

func (c *captureAuditRepo) count(action audit.Action) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	trail     *captureAuditRepo
	patientID uuid.UUID
	doctorID  uuid.UUID
	staffID   uuid.UUID
	adminID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	trail := &captureAuditRepo{}
	return &fixture{
		svc:       NewService(repo, audit.NewRecorder(trail, zerolog.Nop()), zerolog.Nop()),
		repo:      repo,
		trail:     trail,
		patientID: uuid.New(),
		doctorID:  uuid.New(),
		staffID:   uuid.New(),
		adminID:   uuid.New(),
	}
}

func (f *fixture) as(id uuid.UUID, role auth.Role) context.Context {
	return auth.WithIdentity(context.Background(), id, role)
}

func (f *fixture) create(t *testing.T) *Record {
	t.Helper()
	r, err := f.svc.Create(f.as(f.doctorID, auth.RoleDoctor), &CreateRequest{
		PatientID: f.patientID,
		Type:      TypeDiagnosis,
		Title:     "Hypertension",
		Content:   json.RawMessage(`{"icd":"I10"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

func TestCreateDefaultsDoctorToAuthor(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)
	if r.DoctorID == nil || *r.DoctorID != f.doctorID || r.AuthorID != f.doctorID {
		t.Errorf("doctor = %v, author = %v, want author as treating doctor", r.DoctorID, r.AuthorID)
	}
	if r.Version != 1 {
		t.Errorf("version = %d, want 1", r.Version)
	}
}

func TestStaffCreateWithoutDoctorLink(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Create(f.as(f.staffID, auth.RoleStaff), &CreateRequest{
		PatientID: f.patientID,
		Type:      TypeNote,
		Title:     "Intake note",
		Content:   json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.DoctorID != nil {
		t.Errorf("doctor = %v, want unlinked", r.DoctorID)
	}

	// With no treating doctor, a doctor who is not the author has no claim
	// on the record; the author still does.
	if _, err := f.svc.Get(f.as(f.doctorID, auth.RoleDoctor), r.ID); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Errorf("unlinked doctor read: err = %v, want forbidden", err)
	}
	if _, err := f.svc.Update(f.as(f.staffID, auth.RoleStaff), r.ID, &UpdateRequest{Title: "Intake note, amended"}); err != nil {
		t.Errorf("author update: %v", err)
	}
}

func TestCreateWithAppointmentLink(t *testing.T) {
	f := newFixture(t)
	apptID := uuid.New()
	r, err := f.svc.Create(f.as(f.doctorID, auth.RoleDoctor), &CreateRequest{
		PatientID:     f.patientID,
		AppointmentID: &apptID,
		Type:          TypeDiagnosis,
		Title:         "Follow-up finding",
		Content:       json.RawMessage(`{"icd":"J06.9"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.AppointmentID == nil || *r.AppointmentID != apptID {
		t.Errorf("appointment = %v, want %v", r.AppointmentID, apptID)
	}
}

func TestReadAuthorization(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)

	cases := []struct {
		name    string
		id      uuid.UUID
		role    auth.Role
		allowed bool
	}{
		{"owner patient", f.patientID, auth.RolePatient, true},
		{"treating doctor", f.doctorID, auth.RoleDoctor, true},
		{"staff", f.staffID, auth.RoleStaff, true},
		{"admin", f.adminID, auth.RoleAdmin, true},
		{"other patient", uuid.New(), auth.RolePatient, false},
		{"other doctor", uuid.New(), auth.RoleDoctor, false},
		{"manager", uuid.New(), auth.RoleManager, false},
	}
	for _, tc := range cases {
		_, err := f.svc.Get(f.as(tc.id, tc.role), r.ID)
		if tc.allowed && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.allowed && err == nil {
			t.Errorf("%s: expected denial", tc.name)
		}
	}
}

func TestEveryReadIsAudited(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Get(f.as(f.patientID, auth.RolePatient), r.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := f.trail.count(audit.ActionRead); got != 3 {
		t.Errorf("read audit entries = %d, want 3", got)
	}

	// A denied read is audited too, with the denied outcome.
	if _, err := f.svc.Get(f.as(uuid.New(), auth.RolePatient), r.ID); err == nil {
		t.Fatal("expected denial")
	}
	denied := 0
	for _, e := range f.trail.entries {
		if e.Outcome == audit.OutcomeDenied {
			denied++
		}
	}
	if denied != 1 {
		t.Errorf("denied entries = %d, want 1", denied)
	}
}

func TestUpdateSnapshotsPreviousVersion(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)
	ctx := f.as(f.doctorID, auth.RoleDoctor)

	updated, err := f.svc.Update(ctx, r.ID, &UpdateRequest{
		Title:   "Hypertension, stage 2",
		Content: json.RawMessage(`{"icd":"I10","stage":2}`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	versions, err := f.svc.Versions(ctx, r.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("versions = %d, want 1 snapshot", len(versions))
	}
	if versions[0].Title != "Hypertension" || versions[0].Version != 1 {
		t.Errorf("snapshot = %+v, want original state", versions[0])
	}
	if versions[0].EditedBy != f.doctorID {
		t.Errorf("edited_by = %v", versions[0].EditedBy)
	}
}

func TestUpdateDeniedForUninvolvedDoctor(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)

	_, err := f.svc.Update(f.as(uuid.New(), auth.RoleDoctor), r.ID, &UpdateRequest{Title: "x"})
	if !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestDeleteIsAdminOnlyAndSoft(t *testing.T) {
	f := newFixture(t)
	r := f.create(t)

	if err := f.svc.Delete(f.as(f.doctorID, auth.RoleDoctor), r.ID); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Fatalf("doctor delete: err = %v, want forbidden", err)
	}
	if err := f.svc.Delete(f.as(f.adminID, auth.RoleAdmin), r.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	// Hidden from everyone but admins after deletion.
	if _, err := f.svc.Get(f.as(f.patientID, auth.RolePatient), r.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("patient read of deleted record: err = %v, want not found", err)
	}
	if _, err := f.svc.Get(f.as(f.adminID, auth.RoleAdmin), r.ID); err != nil {
		t.Errorf("admin read of deleted record: %v", err)
	}
}

func TestSummaryCounts(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := f.as(f.doctorID, auth.RoleDoctor)

	if _, err := f.svc.Create(ctx, &CreateRequest{
		PatientID: f.patientID,
		Type:      TypeVitals,
		Title:     "Vitals 2026-08-28",
		Content:   json.RawMessage(`{"bp":"130/85"}`),
	}); err != nil {
		t.Fatalf("create vitals: %v", err)
	}

	summary, err := f.svc.Summary(f.as(f.patientID, auth.RolePatient), f.patientID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRecords != 2 {
		t.Errorf("total = %d, want 2", summary.TotalRecords)
	}
	if summary.ByType[TypeDiagnosis] != 1 || summary.ByType[TypeVitals] != 1 {
		t.Errorf("by type = %v", summary.ByType)
	}
	if summary.LatestVitals == nil || summary.LatestVitals.Type != TypeVitals {
		t.Errorf("latest vitals = %+v", summary.LatestVitals)
	}
	if len(summary.Prescriptions) != 0 {
		t.Errorf("prescriptions = %d, want 0", len(summary.Prescriptions))
	}

	// Another patient cannot read this chart.
	if _, err := f.svc.Summary(f.as(uuid.New(), auth.RolePatient), f.patientID); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Errorf("err = %v, want forbidden", err)
	}
}

func TestListScopedToPatient(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	items, total, err := f.svc.List(f.as(uuid.New(), auth.RolePatient), Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("other patient sees %d records, want 0", total)
	}
}

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/platform/auth"
)

type mockRepo struct {
	mu      sync.Mutex
	entries []*Entry
	fail    bool
}

func (m *mockRepo) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Entry
	for _, e := range m.entries {
		if f.ResourceID != "" && e.ResourceID != f.ResourceID {
			continue
		}
		matched = append(matched, e)
	}
	return matched, len(matched), nil
}

func TestRecordCapturesActorAndMeta(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	actorID := uuid.New()
	ctx := auth.WithIdentity(context.Background(), actorID, auth.RoleDoctor)
	ctx = WithClientMeta(ctx, ClientMeta{IPAddress: "203.0.113.9", UserAgent: "test-agent"})

	rec.Record(ctx, ActionRead, "medical_record", "rec-1", OutcomeSuccess)

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ActorID != actorID || e.ActorRole != auth.RoleDoctor {
		t.Errorf("actor = %v/%v", e.ActorID, e.ActorRole)
	}
	if e.IPAddress != "203.0.113.9" || e.UserAgent != "test-agent" {
		t.Errorf("meta = %q/%q", e.IPAddress, e.UserAgent)
	}
	if e.Outcome != OutcomeSuccess || e.Action != ActionRead {
		t.Errorf("entry = %+v", e)
	}
}

func TestRecordSwallowsRepoFailure(t *testing.T) {
	rec := NewRecorder(&mockRepo{fail: true}, zerolog.Nop())
	// Must not panic or propagate.
	rec.Record(context.Background(), ActionUpdate, "medical_record", "rec-1", OutcomeSuccess)
}

func TestEntriesKeepNonDecreasingTimestamps(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())
	ctx := auth.WithIdentity(context.Background(), uuid.New(), auth.RoleStaff)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(ctx, ActionRead, "medical_record", "rec-1", OutcomeSuccess)
		}()
	}
	wg.Wait()

	if len(repo.entries) != 10 {
		t.Fatalf("entries = %d, want 10", len(repo.entries))
	}
	for i := 1; i < len(repo.entries); i++ {
		if repo.entries[i].CreatedAt.Before(repo.entries[i-1].CreatedAt) {
			t.Fatal("timestamps must be non-decreasing in append order")
		}
	}
}

package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/platform/auth"
)

// ClientMeta carries request network metadata into audit entries.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type metaKey struct{}

// WithClientMeta attaches client metadata to the context; handlers set this
// once so services do not touch the HTTP layer.
func WithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// ClientMetaFromContext returns the attached metadata, zero if absent.
func ClientMetaFromContext(ctx context.Context) ClientMeta {
	meta, _ := ctx.Value(metaKey{}).(ClientMeta)
	return meta
}

// Recorder appends audit entries. Append failures are logged but never fail
// the request that triggered them; losing one trail entry is preferable to
// failing patient care operations.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one entry for the authenticated actor in ctx.
func (r *Recorder) Record(ctx context.Context, action Action, resourceType, resourceID string, outcome Outcome) {
	meta := ClientMetaFromContext(ctx)
	entry := &Entry{
		ActorID:      auth.UserIDFromContext(ctx),
		ActorRole:    auth.RoleFromContext(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Error().Err(err).
			Str("resource_type", resourceType).
			Str("resource_id", resourceID).
			Str("action", string(action)).
			Msg("audit append failed")
	}
}

// Search exposes repository queries for the admin API.
func (r *Recorder) Search(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return r.repo.Search(ctx, f, limit, offset)
}

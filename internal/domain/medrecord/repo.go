package medrecord

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// GetByID returns the record including soft-deleted ones; the service
	// decides who may see those.
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// Update bumps Version and snapshots the previous state atomically.
	Update(ctx context.Context, r *Record, editedBy uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error)
	ListVersions(ctx context.Context, recordID uuid.UUID) ([]*Version, error)
	CountByType(ctx context.Context, patientID uuid.UUID) (map[Type]int, error)
}

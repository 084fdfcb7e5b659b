package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)

	// Overlaps reports whether the doctor already has a non-cancelled
	// appointment intersecting [start, end), excluding excludeID.
	Overlaps(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)

	// BookedIntervals returns the non-cancelled intervals for the doctor
	// within [dayStart, dayEnd), ordered by start.
	BookedIntervals(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([][2]time.Time, error)
}

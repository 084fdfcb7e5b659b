package report

import (
	"context"
	"time"

	"github.com/urbancare/urbancare/internal/domain/appointment"
	"github.com/urbancare/urbancare/internal/domain/identity"
	"github.com/urbancare/urbancare/internal/domain/payment"
)

// Source fetches the raw rows a report reduces. Implementations return plain
// entity slices; all aggregation happens in the service.
type Source interface {
	Appointments(ctx context.Context, from, to time.Time) ([]*appointment.Appointment, error)
	Payments(ctx context.Context, from, to time.Time) ([]*payment.Payment, error)
	Users(ctx context.Context) ([]*identity.PublicUser, error)
}

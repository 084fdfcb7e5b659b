package chatbot

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type countersPG struct{ pool *pgxpool.Pool }

// NewCountersPG returns live counters backed by the operational tables.
func NewCountersPG(pool *pgxpool.Pool) Counters { return &countersPG{pool: pool} }

func (c *countersPG) UpcomingAppointments(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND starts_at > now()`, userID).Scan(&n)
	return n, err
}

func (c *countersPG) MedicalRecords(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM medical_records
		WHERE patient_id = $1 AND NOT deleted`, patientID).Scan(&n)
	return n, err
}

func (c *countersPG) PendingPayments(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM payments
		WHERE patient_id = $1 AND status = 'pending'`, patientID).Scan(&n)
	return n, err
}

package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbancare/urbancare/internal/domain/appointment"
	"github.com/urbancare/urbancare/internal/domain/identity"
	"github.com/urbancare/urbancare/internal/domain/payment"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

type sourcePG struct{ pool *pgxpool.Pool }

func NewSourcePG(pool *pgxpool.Pool) Source { return &sourcePG{pool: pool} }

func (s *sourcePG) Appointments(ctx context.Context, from, to time.Time) ([]*appointment.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.starts_at, a.ends_at, a.status,
			a.reason, a.fee,
			p.first_name || ' ' || p.last_name,
			d.first_name || ' ' || d.last_name
		FROM appointments a
		JOIN users p ON p.id = a.patient_id
		JOIN users d ON d.id = a.doctor_id
		WHERE a.starts_at >= $1 AND a.starts_at < $2
		ORDER BY a.starts_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*appointment.Appointment
	for rows.Next() {
		var a appointment.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.EndsAt,
			&a.Status, &a.Reason, &a.Fee, &a.PatientName, &a.DoctorName); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (s *sourcePG) Payments(ctx context.Context, from, to time.Time) ([]*payment.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, appointment_id, amount, method, status, paid_at, created_at
		FROM payments
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*payment.Payment
	for rows.Next() {
		var p payment.Payment
		if err := rows.Scan(&p.ID, &p.PatientID, &p.AppointmentID, &p.Amount,
			&p.Method, &p.Status, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (s *sourcePG) Users(ctx context.Context) ([]*identity.PublicUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, first_name, last_name, role, email_verified, created_at
		FROM users WHERE active
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*identity.PublicUser
	for rows.Next() {
		var u identity.PublicUser
		var role auth.Role
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
			&role, &u.EmailVerified, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = role
		items = append(items, &u)
	}
	return items, rows.Err()
}

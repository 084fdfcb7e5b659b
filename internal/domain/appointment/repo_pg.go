package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `a.id, a.patient_id, a.doctor_id, a.starts_at, a.ends_at, a.status,
	a.reason, COALESCE(a.notes, ''), a.fee,
	p.first_name || ' ' || p.last_name,
	d.first_name || ' ' || d.last_name,
	a.created_at, a.updated_at`

const apptJoin = ` FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.EndsAt,
		&a.Status, &a.Reason, &a.Notes, &a.Fee,
		&a.PatientName, &a.DoctorName, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

// conflictFromPG maps the exclusion constraint violation raised when two
// bookings race past the service pre-check.
func conflictFromPG(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return apperr.Conflict("slot unavailable")
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, ends_at,
			status, reason, notes, fee)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.EndsAt,
		a.Status, a.Reason, a.Notes, a.Fee)
	return conflictFromPG(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apptCols+apptJoin+` WHERE a.id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET
			starts_at = $2, ends_at = $3, status = $4, reason = $5,
			notes = $6, updated_at = now()
		WHERE id = $1`,
		a.ID, a.StartsAt, a.EndsAt, a.Status, a.Reason, a.Notes)
	if err != nil {
		return conflictFromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.From != nil {
		where += fmt.Sprintf(` AND a.starts_at >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		where += fmt.Sprintf(` AND a.starts_at < $%d`, idx)
		args = append(args, *f.To)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+apptJoin+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptJoin + where +
		fmt.Sprintf(` ORDER BY a.starts_at LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Overlaps(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status <> 'cancelled'
			  AND id <> $4
			  AND starts_at < $3
			  AND ends_at > $2
		)`, doctorID, start, end, excludeID).Scan(&exists)
	return exists, err
}

func (r *repoPG) BookedIntervals(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([][2]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at, ends_at FROM appointments
		WHERE doctor_id = $1
		  AND status <> 'cancelled'
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals [][2]time.Time
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		intervals = append(intervals, [2]time.Time{start, end})
	}
	return intervals, rows.Err()
}

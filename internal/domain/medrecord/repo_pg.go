package medrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, patient_id, author_id, doctor_id, appointment_id, type,
	title, content, version, deleted, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.PatientID, &r.AuthorID, &r.DoctorID, &r.AppointmentID,
		&r.Type, &r.Title, &r.Content, &r.Version, &r.Deleted, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Version = 1
	_, err := p.pool.Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, author_id, doctor_id,
			appointment_id, type, title, content, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.PatientID, r.AuthorID, r.DoctorID, r.AppointmentID,
		r.Type, r.Title, r.Content, r.Version)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medical record not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Update snapshots the current row into medical_record_versions, then applies
// the new state with an optimistic version check. A concurrent editor loses
// with Conflict.
func (p *repoPG) Update(ctx context.Context, r *Record, editedBy uuid.UUID) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO medical_record_versions (record_id, version, type, title, content, edited_by)
		SELECT id, version, type, title, content, $2
		FROM medical_records WHERE id = $1`,
		r.ID, editedBy)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE medical_records SET
			title = $2, content = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $4 AND NOT deleted`,
		r.ID, r.Title, r.Content, r.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("record was modified concurrently")
	}
	r.Version++
	return tx.Commit(ctx)
}

func (p *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE medical_records SET deleted = true, updated_at = now()
		WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medical record not found")
	}
	return nil
}

func (p *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	where := ` WHERE NOT deleted`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Type != "" {
		where += fmt.Sprintf(` AND type = $%d`, idx)
		args = append(args, f.Type)
		idx++
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medical_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordCols + ` FROM medical_records` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (p *repoPG) ListVersions(ctx context.Context, recordID uuid.UUID) ([]*Version, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT record_id, version, type, title, content, edited_by, created_at
		FROM medical_record_versions
		WHERE record_id = $1
		ORDER BY version DESC`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.RecordID, &v.Version, &v.Type, &v.Title,
			&v.Content, &v.EditedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}

func (p *repoPG) CountByType(ctx context.Context, patientID uuid.UUID) (map[Type]int, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT type, COUNT(*) FROM medical_records
		WHERE patient_id = $1 AND NOT deleted
		GROUP BY type`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Type]int)
	for rows.Next() {
		var t Type
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

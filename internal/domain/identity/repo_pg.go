package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

// Profile blocks live as nullable columns on the users row; which block is
// populated follows from the role.
const userCols = `id, email, password_hash, first_name, last_name, phone, role,
	active, email_verified, date_of_birth, blood_type, health_card_id,
	specialization, department, consultation_fee, license_number, position,
	verify_token, reset_token, reset_expires, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                 User
		phone             *string
		dob               *time.Time
		bloodType, card   *string
		spec, dept        *string
		fee               *float64
		license, position *string
		verify, reset     *string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&phone, &u.Role, &u.Active, &u.EmailVerified, &dob, &bloodType, &card,
		&spec, &dept, &fee, &license, &position,
		&verify, &reset, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	if verify != nil {
		u.VerifyToken = *verify
	}
	if reset != nil {
		u.ResetToken = *reset
	}

	switch u.Role {
	case auth.RolePatient:
		p := &PatientProfile{}
		if dob != nil {
			p.DateOfBirth = *dob
		}
		if bloodType != nil {
			p.BloodType = *bloodType
		}
		if card != nil {
			p.HealthCardID = *card
		}
		u.Patient = p
	case auth.RoleDoctor:
		d := &DoctorProfile{}
		if spec != nil {
			d.Specialization = *spec
		}
		if dept != nil {
			d.Department = *dept
		}
		if fee != nil {
			d.ConsultationFee = *fee
		}
		if license != nil {
			d.LicenseNumber = *license
		}
		u.Doctor = d
	case auth.RoleStaff, auth.RoleManager:
		s := &StaffProfile{}
		if dept != nil {
			s.Department = *dept
		}
		if position != nil {
			s.Position = *position
		}
		u.Staff = s
	}
	return &u, nil
}

// profileArgs flattens the role-specific profile block into column values.
func profileArgs(u *User) (dob *time.Time, bloodType, card, spec, dept *string, fee *float64, license, position *string) {
	switch {
	case u.Patient != nil:
		dob = &u.Patient.DateOfBirth
		bloodType = &u.Patient.BloodType
		if u.Patient.HealthCardID != "" {
			card = &u.Patient.HealthCardID
		}
	case u.Doctor != nil:
		spec = &u.Doctor.Specialization
		dept = &u.Doctor.Department
		fee = &u.Doctor.ConsultationFee
		if u.Doctor.LicenseNumber != "" {
			license = &u.Doctor.LicenseNumber
		}
	case u.Staff != nil:
		dept = &u.Staff.Department
		position = &u.Staff.Position
	}
	return
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	dob, bloodType, card, spec, dept, fee, license, position := profileArgs(u)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone,
			role, active, email_verified, date_of_birth, blood_type, health_card_id,
			specialization, department, consultation_fee, license_number, position,
			verify_token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullable(u.Phone),
		u.Role, u.Active, u.EmailVerified, dob, bloodType, card,
		spec, dept, fee, license, position, nullable(u.VerifyToken))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Validation("email already registered",
			apperr.FieldError{Field: "email", Message: "already registered"})
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return r.one(row)
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`,
		strings.ToLower(email))
	return r.one(row)
}

func (r *repoPG) GetByVerifyToken(ctx context.Context, token string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE verify_token = $1`, token)
	return r.one(row)
}

func (r *repoPG) GetByResetToken(ctx context.Context, token string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE reset_token = $1`, token)
	return r.one(row)
}

func (r *repoPG) one(row pgx.Row) (*User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	dob, bloodType, card, spec, dept, fee, license, position := profileArgs(u)
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			email = $2, password_hash = $3, first_name = $4, last_name = $5,
			phone = $6, active = $7, email_verified = $8, date_of_birth = $9,
			blood_type = $10, health_card_id = $11, specialization = $12,
			department = $13, consultation_fee = $14, license_number = $15,
			position = $16, verify_token = $17, reset_token = $18,
			reset_expires = $19, updated_at = now()
		WHERE id = $1`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		nullable(u.Phone), u.Active, u.EmailVerified, dob,
		bloodType, card, spec,
		dept, fee, license,
		position, nullable(u.VerifyToken), nullable(u.ResetToken),
		u.ResetExpires)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Validation("email already registered",
				apperr.FieldError{Field: "email", Message: "already registered"})
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *repoPG) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorListing, int, error) {
	where := ` WHERE role = 'doctor' AND active`
	var args []interface{}
	idx := 1

	if f.Specialization != "" {
		where += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		args = append(args, f.Specialization)
		idx++
	}
	if f.Department != "" {
		where += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		args = append(args, f.Department)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, first_name, last_name, specialization, department, consultation_fee
		FROM users` + where + fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DoctorListing
	for rows.Next() {
		var d DoctorListing
		if err := rows.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization,
			&d.Department, &d.ConsultationFee); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*User, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Query != "" {
		where += fmt.Sprintf(` AND (email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)`,
			idx, idx, idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}
	if f.Role != "" {
		where += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, f.Role)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userCols + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SaveRefreshToken(ctx context.Context, t *RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1,$2,$3)`,
		t.Token, t.UserID, t.ExpiresAt)
	return err
}

func (r *repoPG) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthenticated("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE token = $1`, token)
	return err
}

func (r *repoPG) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1`, userID)
	return err
}

// Package identity owns user accounts, authentication, and the user
// directory. A user's role decides which profile block is mandatory: patients
// carry demographics and a health card, doctors carry specialization and fee,
// staff and managers carry department and position.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

// User maps to the users table.
type User struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Phone         string          `json:"phone,omitempty"`
	Role          auth.Role       `json:"role"`
	Active        bool            `json:"active"`
	EmailVerified bool            `json:"email_verified"`
	Patient       *PatientProfile `json:"patient,omitempty"`
	Doctor        *DoctorProfile  `json:"doctor,omitempty"`
	Staff         *StaffProfile   `json:"staff,omitempty"`
	VerifyToken   string          `json:"-"`
	ResetToken    string          `json:"-"`
	ResetExpires  *time.Time      `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PatientProfile holds the fields mandatory for patient accounts. The health
// card identifier is assigned at registration and never changes afterwards.
type PatientProfile struct {
	DateOfBirth  time.Time `json:"date_of_birth"`
	BloodType    string    `json:"blood_type"`
	HealthCardID string    `json:"health_card_id,omitempty"`
}

// DoctorProfile holds the fields mandatory for doctor accounts.
type DoctorProfile struct {
	Specialization  string  `json:"specialization"`
	Department      string  `json:"department"`
	ConsultationFee float64 `json:"consultation_fee"`
	LicenseNumber   string  `json:"license_number,omitempty"`
}

// StaffProfile holds the fields mandatory for staff and manager accounts.
type StaffProfile struct {
	Department string `json:"department"`
	Position   string `json:"position"`
}

// RefreshToken maps to the refresh_tokens table. Tokens are single use;
// refresh revokes the presented token and issues a new one.
type RefreshToken struct {
	Token     string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the externally visible shape of a user.
type PublicUser struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Phone         string          `json:"phone,omitempty"`
	Role          auth.Role       `json:"role"`
	EmailVerified bool            `json:"email_verified"`
	Patient       *PatientProfile `json:"patient,omitempty"`
	Doctor        *DoctorProfile  `json:"doctor,omitempty"`
	Staff         *StaffProfile   `json:"staff,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Public strips credential material from the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Patient:       u.Patient,
		Doctor:        u.Doctor,
		Staff:         u.Staff,
		CreatedAt:     u.CreatedAt,
	}
}

// DoctorListing is the public directory entry for a doctor.
type DoctorListing struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Specialization  string    `json:"specialization"`
	Department      string    `json:"department"`
	ConsultationFee float64   `json:"consultation_fee"`
}

// RegisterRequest is the registration payload. Profile requirements depend on
// the requested role.
type RegisterRequest struct {
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Role      auth.Role       `json:"role"`
	Patient   *PatientProfile `json:"patient,omitempty"`
	Doctor    *DoctorProfile  `json:"doctor,omitempty"`
	Staff     *StaffProfile   `json:"staff,omitempty"`
}

// Validate checks the request against the per-role required-field sets.
func (r *RegisterRequest) Validate() error {
	var fields []apperr.FieldError
	if r.Email == "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "required"})
	}
	if r.Password == "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "required"})
	}
	if r.FirstName == "" {
		fields = append(fields, apperr.FieldError{Field: "first_name", Message: "required"})
	}
	if r.LastName == "" {
		fields = append(fields, apperr.FieldError{Field: "last_name", Message: "required"})
	}
	if !auth.ValidRole(r.Role) {
		fields = append(fields, apperr.FieldError{Field: "role", Message: "unknown role"})
	}

	switch r.Role {
	case auth.RoleAdmin:
		// Admin accounts come from bootstrap, never self-registration.
		return apperr.Forbidden("admin accounts cannot be registered")
	case auth.RolePatient:
		if r.Patient == nil {
			fields = append(fields, apperr.FieldError{Field: "patient", Message: "patient profile required"})
		} else {
			if r.Patient.DateOfBirth.IsZero() {
				fields = append(fields, apperr.FieldError{Field: "patient.date_of_birth", Message: "required"})
			}
			if r.Patient.BloodType == "" {
				fields = append(fields, apperr.FieldError{Field: "patient.blood_type", Message: "required"})
			}
		}
	case auth.RoleDoctor:
		if r.Doctor == nil {
			fields = append(fields, apperr.FieldError{Field: "doctor", Message: "doctor profile required"})
		} else {
			if r.Doctor.Specialization == "" {
				fields = append(fields, apperr.FieldError{Field: "doctor.specialization", Message: "required"})
			}
			if r.Doctor.ConsultationFee <= 0 {
				fields = append(fields, apperr.FieldError{Field: "doctor.consultation_fee", Message: "must be positive"})
			}
		}
	case auth.RoleStaff, auth.RoleManager:
		if r.Staff == nil {
			fields = append(fields, apperr.FieldError{Field: "staff", Message: "staff profile required"})
		} else {
			if r.Staff.Department == "" {
				fields = append(fields, apperr.FieldError{Field: "staff.department", Message: "required"})
			}
			if r.Staff.Position == "" {
				fields = append(fields, apperr.FieldError{Field: "staff.position", Message: "required"})
			}
		}
	}

	if len(fields) > 0 {
		return apperr.Validation("invalid registration request", fields...)
	}
	return nil
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	User         *PublicUser `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

// ProfileUpdate carries the self-service profile mutation. Role and email
// changes are deliberately not part of it.
type ProfileUpdate struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Patient   *PatientProfile `json:"patient,omitempty"`
	Doctor    *DoctorProfile  `json:"doctor,omitempty"`
	Staff     *StaffProfile   `json:"staff,omitempty"`
}

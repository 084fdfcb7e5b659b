package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/auth"
)

// DoctorFilter narrows the public doctor directory.
type DoctorFilter struct {
	Specialization string
	Department     string
}

// SearchFilter narrows the privileged user search.
type SearchFilter struct {
	Query string
	Role  auth.Role
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerifyToken(ctx context.Context, token string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	Update(ctx context.Context, u *User) error
	ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorListing, int, error)
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*User, int, error)

	SaveRefreshToken(ctx context.Context, t *RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

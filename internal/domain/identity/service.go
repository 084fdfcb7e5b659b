package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/audit"
	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/notification"
)

const resetTokenTTL = time.Hour

// Mailer matches the notification service surface the identity flows need.
type Mailer interface {
	Send(ctx context.Context, templateID, recipient string, data map[string]string) (*notification.Message, error)
}

type Service struct {
	repo       Repository
	issuer     *auth.TokenIssuer
	refreshTTL time.Duration
	mailer     Mailer
	recorder   *audit.Recorder
	baseURL    string
	logger     zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, refreshTTL time.Duration,
	mailer Mailer, recorder *audit.Recorder, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		mailer:     mailer,
		recorder:   recorder,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// newHealthCardID mints a patient health card, e.g. HC-2026-9F3A01BC.
func newHealthCardID(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is unusable anyway.
		panic(err)
	}
	return fmt.Sprintf("HC-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(buf)))
}

// Register creates an account in the requested role. Patients get a health
// card assigned here, exactly once.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*PublicUser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	verifyToken, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       true,
		VerifyToken:  verifyToken,
		Patient:      req.Patient,
		Doctor:       req.Doctor,
		Staff:        req.Staff,
	}
	if u.Patient != nil {
		u.Patient.HealthCardID = newHealthCardID(time.Now())
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if _, err := s.mailer.Send(ctx, notification.TemplateVerifyEmail, u.Email, map[string]string{
		"name": u.FirstName,
		"link": s.baseURL + "/api/auth/verify-email?token=" + u.VerifyToken,
	}); err != nil {
		// Registration stands even when the verification mail does not go out.
		s.logger.Warn().Err(err).Str("email", u.Email).Msg("verification email failed")
	}

	created, err := s.repo.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return created.Public(), nil
}

// Login exchanges credentials for a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Unauthenticated("account disabled")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.recorder.Record(auth.WithIdentity(ctx, u.ID, u.Role),
			audit.ActionLogin, "user", u.ID.String(), audit.OutcomeDenied)
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	result, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(auth.WithIdentity(ctx, u.ID, u.Role),
		audit.ActionLogin, "user", u.ID.String(), audit.OutcomeSuccess)
	return result, nil
}

// Refresh rotates the presented refresh token: the old token is revoked and a
// fresh pair issued. A revoked or expired token is rejected.
func (s *Service) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	t, err := s.repo.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t.Revoked || time.Now().After(t.ExpiresAt) {
		return nil, apperr.Unauthenticated("refresh token expired")
	}
	u, err := s.repo.GetByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Unauthenticated("account disabled")
	}
	if err := s.repo.RevokeRefreshToken(ctx, token); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, u)
}

func (s *Service) issueTokens(ctx context.Context, u *User) (*AuthResult, error) {
	access, err := s.issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	token, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	refresh := &RefreshToken{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         u.Public(),
		AccessToken:  access,
		RefreshToken: refresh.Token,
	}, nil
}

// Logout revokes the presented refresh token. The access token simply ages
// out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}
	return s.repo.RevokeRefreshToken(ctx, refreshToken)
}

// VerifyEmail marks the account verified and burns the token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("token is required")
	}
	u, err := s.repo.GetByVerifyToken(ctx, token)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return apperr.Validation("invalid verification token")
		}
		return err
	}
	u.EmailVerified = true
	u.VerifyToken = ""
	return s.repo.Update(ctx, u)
}

// ForgotPassword issues a reset token when the account exists. The response
// is identical either way so the endpoint cannot be used to enumerate emails.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}

	resetToken, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(resetTokenTTL)
	u.ResetToken = resetToken
	u.ResetExpires = &expires
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	if _, err := s.mailer.Send(ctx, notification.TemplatePasswordReset, u.Email, map[string]string{
		"name": u.FirstName,
		"link": s.baseURL + "/reset-password?token=" + u.ResetToken,
	}); err != nil {
		s.logger.Warn().Err(err).Str("email", u.Email).Msg("password reset email failed")
	}
	return nil
}

// ResetPassword sets a new password and revokes every outstanding session.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.Validation("token is required")
	}
	u, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return apperr.Validation("invalid reset token")
		}
		return err
	}
	if u.ResetExpires == nil || time.Now().After(*u.ResetExpires) {
		return apperr.Validation("reset token expired")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetToken = ""
	u.ResetExpires = nil
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	return s.repo.RevokeUserRefreshTokens(ctx, u.ID)
}

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PublicUser, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// UpdateProfile applies a self-service edit. The health card identifier is
// immutable once assigned; any value in the request is ignored.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd *ProfileUpdate) (*PublicUser, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != "" {
		u.FirstName = upd.FirstName
	}
	if upd.LastName != "" {
		u.LastName = upd.LastName
	}
	if upd.Phone != "" {
		u.Phone = upd.Phone
	}

	switch u.Role {
	case auth.RolePatient:
		if upd.Patient != nil {
			card := ""
			if u.Patient != nil {
				card = u.Patient.HealthCardID
			}
			u.Patient = upd.Patient
			u.Patient.HealthCardID = card
		}
	case auth.RoleDoctor:
		if upd.Doctor != nil {
			u.Doctor = upd.Doctor
		}
	case auth.RoleStaff, auth.RoleManager:
		if upd.Staff != nil {
			u.Staff = upd.Staff
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, "user", u.ID.String(), audit.OutcomeSuccess)
	return u.Public(), nil
}

// ListDoctors serves the public doctor directory.
func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorListing, int, error) {
	return s.repo.ListDoctors(ctx, f, limit, offset)
}

// SearchUsers serves the privileged user search.
func (s *Service) SearchUsers(ctx context.Context, f SearchFilter, limit, offset int) ([]*PublicUser, int, error) {
	users, total, err := s.repo.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, total, nil
}

// BootstrapAdmin ensures the configured admin account exists with the
// configured password. Called once at startup.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			return err
		}
		u = &User{
			ID:            uuid.New(),
			Email:         email,
			PasswordHash:  hash,
			FirstName:     "System",
			LastName:      "Administrator",
			Role:          auth.RoleAdmin,
			Active:        true,
			EmailVerified: true,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		s.logger.Info().Str("email", email).Msg("admin account created")
		return nil
	}

	u.PasswordHash = hash
	u.Active = true
	u.EmailVerified = true
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Str("email", email).Msg("admin account refreshed")
	return nil
}

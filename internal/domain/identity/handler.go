package identity

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/respond"
	"github.com/urbancare/urbancare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/register", h.Register)
	g.POST("/auth/login", h.Login)
	g.POST("/auth/refresh", h.Refresh)
	g.GET("/auth/verify-email", h.VerifyEmail)
	g.POST("/auth/forgot-password", h.ForgotPassword)
	g.POST("/auth/reset-password", h.ResetPassword)
	g.GET("/users/doctors", h.ListDoctors)
}

// RegisterRoutes mounts the authenticated endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/me", h.Me)
	g.GET("/users/profile", h.Me)
	g.PUT("/users/profile", h.UpdateProfile)
	g.GET("/users/search", h.SearchUsers, auth.RequireCapability(auth.CapUserSearch))
	g.GET("/users/:id", h.GetUser)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	user, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond.Created(c, user)
}

func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}
	result, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond.OK(c, result)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.RefreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}
	result, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond.OK(c, result)
}

func (h *Handler) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return respond.OKMessage(c, "logged out")
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	if err := h.svc.VerifyEmail(c.Request().Context(), c.QueryParam("token")); err != nil {
		return err
	}
	return respond.OKMessage(c, "email verified")
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email == "" {
		return apperr.Validation("email is required")
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond.OKMessage(c, "if the account exists, a reset email has been sent")
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return respond.OKMessage(c, "password updated")
}

func (h *Handler) Me(c echo.Context) error {
	user, err := h.svc.Get(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return apperr.Validation("invalid request body")
	}
	user, err := h.svc.UpdateProfile(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), &upd)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	ctx := c.Request().Context()

	// Non-privileged roles may only read themselves.
	role := auth.RoleFromContext(ctx)
	if !auth.Can(role, auth.CapUserSearch) && auth.UserIDFromContext(ctx) != id {
		return apperr.Forbidden("cannot view other users")
	}

	user, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := DoctorFilter{
		Specialization: c.QueryParam("specialization"),
		Department:     c.QueryParam("department"),
	}
	items, total, err := h.svc.ListDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SearchUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := SearchFilter{
		Query: c.QueryParam("q"),
		Role:  auth.Role(c.QueryParam("role")),
	}
	if f.Role != "" && !auth.ValidRole(f.Role) {
		return apperr.Validation("unknown role filter")
	}
	items, total, err := h.svc.SearchUsers(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

package payment

import (
	"time"

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/payments", h.Create, auth.RequireCapability(auth.CapPaymentManage))
	g.GET("/payments", h.List)
	g.GET("/payments/:id", h.Get)
	g.PATCH("/payments/:id/status", h.UpdateStatus, auth.RequireCapability(auth.CapPaymentManage))
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond.Created(c, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f Filter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		f.Status = Status(v)
		if !ValidStatus(f.Status) {
			return apperr.Validation("unknown payment status")
		}
	}
	if v := c.QueryParam("method"); v != "" {
		f.Method = Method(v)
		if !ValidMethod(f.Method) {
			return apperr.Validation("unknown payment method")
		}
	}
	if v := c.QueryParam("from"); v != "" {
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.Validation("invalid from date, want YYYY-MM-DD")
		}
		f.From = &ts
	}
	if v := c.QueryParam("to"); v != "" {
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.Validation("invalid to date, want YYYY-MM-DD")
		}
		f.To = &ts
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid payment id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, p)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid payment id")
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return respond.OK(c, p)
}

package medrecord

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/medical-records", h.Create, auth.RequireCapability(auth.CapRecordCreate))
	g.GET("/medical-records", h.List)
	g.GET("/medical-records/patient/:id/summary", h.Summary)
	g.GET("/medical-records/:id", h.Get)
	g.PUT("/medical-records/:id", h.Update)
	g.DELETE("/medical-records/:id", h.Delete, auth.RequireCapability(auth.CapRecordDelete))
	g.GET("/medical-records/:id/versions", h.Versions)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond.Created(c, r)
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
	if v := c.QueryParam("type"); v != "" {
		f.Type = Type(v)
		if !ValidType(f.Type) {
			return apperr.Validation("unknown record type")
		}
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
		return apperr.Validation("invalid record id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid record id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	r, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid record id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respond.OKMessage(c, "record deleted")
}

func (h *Handler) Versions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid record id")
	}
	versions, err := h.svc.Versions(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, versions)
}

func (h *Handler) Summary(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid patient id")
	}
	summary, err := h.svc.Summary(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return respond.OK(c, summary)
}

package appointment

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

// RegisterPublicRoutes mounts endpoints that need no session.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/appointments/doctors/:id/availability", h.Availability)
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/appointments", h.Book, auth.RequireCapability(auth.CapAppointmentBook))
	g.GET("/appointments", h.List)
	g.GET("/appointments/:id", h.Get)
	g.PATCH("/appointments/:id/status", h.UpdateStatus)
	g.PUT("/appointments/:id/schedule", h.Reschedule)
}

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return respond.Created(c, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f Filter
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid doctor_id")
		}
		f.DoctorID = &id
	}
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
			return apperr.Validation("unknown status")
		}
	}
	if v := c.QueryParam("date"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.Validation("invalid date, want YYYY-MM-DD")
		}
		next := day.AddDate(0, 0, 1)
		f.From = &day
		f.To = &next
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
		return apperr.Validation("invalid appointment id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	var req struct {
		StartsAt time.Time `json:"starts_at"`
		EndsAt   time.Time `json:"ends_at"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, req.StartsAt, req.EndsAt)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

// Availability returns the bookable grid for one doctor and day.
func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid doctor id")
	}
	day, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return apperr.Validation("invalid date, want YYYY-MM-DD")
	}
	slots, err := h.svc.Availability(c.Request().Context(), doctorID, day)
	if err != nil {
		return err
	}
	return respond.OK(c, map[string]interface{}{
		"doctor_id": doctorID,
		"date":      day.Format("2006-01-02"),
		"slots":     slots,
	})
}

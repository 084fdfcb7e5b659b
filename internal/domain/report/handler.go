package report

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	reports := g.Group("/reports", auth.RequireCapability(auth.CapReportView))
	reports.GET("/dashboard", h.Dashboard)
	reports.GET("/appointments", h.Appointments)
	reports.GET("/appointments/export", h.ExportAppointments)
	reports.GET("/revenue", h.Revenue)
	reports.GET("/patient-visits", h.PatientVisits)
	reports.GET("/utilization", h.Utilization)
	reports.GET("/financial", h.Financial)
	reports.GET("/users", h.Users, auth.RequireCapability(auth.CapReportUsers))

	manager := g.Group("/manager", auth.RequireRole(auth.RoleManager, auth.RoleAdmin))
	manager.GET("/overview", h.Overview)
	manager.GET("/patient-visits", h.PatientVisits)
	manager.GET("/utilization", h.Utilization)
	manager.GET("/financial", h.Financial)
}

// window parses ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to the last 30
// days. The to day is inclusive in the query string, half-open internally.
func window(c echo.Context, now time.Time) (Window, error) {
	from := now.UTC().AddDate(0, 0, -30)
	to := now.UTC().AddDate(0, 0, 1)

	if v := c.QueryParam("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Window{}, apperr.Validation("invalid from date, want YYYY-MM-DD")
		}
		from = parsed
	}
	if v := c.QueryParam("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Window{}, apperr.Validation("invalid to date, want YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return Window{}, apperr.Validation("to must not be before from")
	}
	return Window{From: from, To: to}, nil
}

func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return respond.OK(c, stats)
}

func (h *Handler) Appointments(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.Appointments(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) ExportAppointments(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="appointments.csv"`)
	c.Response().WriteHeader(200)
	return h.svc.ExportAppointmentsCSV(c.Request().Context(), w, c.Response())
}

func (h *Handler) Revenue(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.Revenue(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Users(c echo.Context) error {
	r, err := h.svc.Users(c.Request().Context())
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) PatientVisits(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.PatientVisits(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Utilization(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.Utilization(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Financial(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.Financial(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) Overview(c echo.Context) error {
	w, err := window(c, h.svc.now())
	if err != nil {
		return err
	}
	r, err := h.svc.Overview(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

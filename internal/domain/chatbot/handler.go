package chatbot

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/urbancare/urbancare/internal/platform/apperr"
	"github.com/urbancare/urbancare/internal/platform/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/chatbot/message", h.Message)
	g.GET("/chatbot/history", h.History)
	g.GET("/chatbot/health-tips", h.HealthTips)
	g.GET("/chatbot/symptoms", h.Symptoms)
	g.POST("/chatbot/emergency-check", h.EmergencyCheck)
}

func (h *Handler) Message(c echo.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	reply, err := h.svc.Message(c.Request().Context(), req.Message)
	if err != nil {
		return err
	}
	return respond.OK(c, reply)
}

// History serves the caller's stored exchanges. ?limit is clamped to the
// retention window of 50.
func (h *Handler) History(c echo.Context) error {
	limit := maxHistoryPerUser
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return apperr.Validation("limit must be a positive integer")
		}
		if n < limit {
			limit = n
		}
	}
	return respond.OK(c, h.svc.History(c.Request().Context(), limit))
}

func (h *Handler) HealthTips(c echo.Context) error {
	return respond.OK(c, map[string]interface{}{"tips": h.svc.HealthTips()})
}

func (h *Handler) Symptoms(c echo.Context) error {
	return respond.OK(c, h.svc.Symptoms())
}

func (h *Handler) EmergencyCheck(c echo.Context) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Description == "" {
		return apperr.Validation("description is required")
	}
	return respond.OK(c, h.svc.EmergencyCheck(req.Description))
}

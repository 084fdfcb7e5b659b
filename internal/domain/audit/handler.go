package audit

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
	recorder *Recorder
}

func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit", h.Search, auth.RequireCapability(auth.CapAuditRead))
}

// Search returns audit entries matching the query filters, newest first.
func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f Filter
	if v := c.QueryParam("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid actor_id")
		}
		f.ActorID = &id
	}
	f.ResourceType = c.QueryParam("resource_type")
	f.ResourceID = c.QueryParam("resource_id")
	f.Action = Action(c.QueryParam("action"))
	if v := c.QueryParam("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("invalid from timestamp, want RFC3339")
		}
		f.From = &ts
	}
	if v := c.QueryParam("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("invalid to timestamp, want RFC3339")
		}
		f.To = &ts
	}

	items, total, err := h.recorder.Search(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Internal("search audit log", err)
	}
	return respond.OK(c, pagination.NewPage(items, total, pg.Limit, pg.Offset))
}

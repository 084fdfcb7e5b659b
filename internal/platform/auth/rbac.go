package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

// RequireRole returns middleware that admits callers holding any of the given
// roles. It assumes Middleware already ran; an absent role means the request
// never authenticated.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			have := RoleFromContext(c.Request().Context())
			if have == "" {
				return apperr.Unauthenticated("authentication required")
			}
			for _, r := range roles {
				if have == r {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return apperr.Forbidden(fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

// RequireCapability returns middleware that consults the declarative
// role→capability table.
func RequireCapability(cap Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == "" {
				return apperr.Unauthenticated("authentication required")
			}
			if !Can(role, cap) {
				return apperr.Forbidden(fmt.Sprintf("required capability: %s", cap))
			}
			return next(c)
		}
	}
}

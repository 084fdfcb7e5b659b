package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

func doRequest(t *testing.T, mw echo.MiddlewareFunc, token string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return h(c)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	issuer := newTestIssuer(time.Minute)
	err := doRequest(t, Middleware(issuer), "")
	if !apperr.IsCode(err, apperr.CodeUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	issuer := newTestIssuer(time.Minute)
	err := doRequest(t, Middleware(issuer), "bogus")
	if !apperr.IsCode(err, apperr.CodeUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	issuer := newTestIssuer(time.Minute)
	userID := uuid.New()
	tok, err := issuer.Issue(userID, "d@x.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uuid.UUID
	var gotRole Role
	h := Middleware(issuer)(func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if gotID != userID {
		t.Errorf("user id = %v, want %v", gotID, userID)
	}
	if gotRole != RoleDoctor {
		t.Errorf("role = %q, want doctor", gotRole)
	}
}

func withRole(role Role) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), uuid.New(), role))
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	ok := func(c echo.Context) error { return nil }

	if err := RequireRole(RoleManager, RoleAdmin)(ok)(withRole(RoleManager)); err != nil {
		t.Errorf("manager should pass: %v", err)
	}
	err := RequireRole(RoleAdmin)(ok)(withRole(RoleStaff))
	if !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Errorf("staff on admin route: expected Forbidden, got %v", err)
	}
	err = RequireRole(RoleAdmin)(ok)(withRole(""))
	if !apperr.IsCode(err, apperr.CodeUnauthenticated) {
		t.Errorf("no identity: expected Unauthenticated, got %v", err)
	}
}

func TestRequireCapability(t *testing.T) {
	ok := func(c echo.Context) error { return nil }

	if err := RequireCapability(CapReportView)(ok)(withRole(RoleManager)); err != nil {
		t.Errorf("manager should view reports: %v", err)
	}
	err := RequireCapability(CapReportUsers)(ok)(withRole(RoleStaff))
	if !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Errorf("staff on user reports: expected Forbidden, got %v", err)
	}
	if err := RequireCapability(CapReportUsers)(ok)(withRole(RoleAdmin)); err != nil {
		t.Errorf("admin should access user reports: %v", err)
	}
}

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RolePatient, CapAppointmentBook, true},
		{RolePatient, CapRecordCreate, false},
		{RoleDoctor, CapRecordCreate, true},
		{RoleDoctor, CapRecordDelete, false},
		{RoleStaff, CapReportUsers, false},
		{RoleManager, CapReportView, true},
		{RoleManager, CapReportUsers, false},
		{RoleAdmin, CapRecordDelete, true},
		{RoleAdmin, CapAuditRead, true},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.cap); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}

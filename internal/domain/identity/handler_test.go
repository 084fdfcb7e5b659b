package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/platform/auth"
	"github.com/urbancare/urbancare/internal/platform/respond"
)

func newTestServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	e := echo.New()
	e.HTTPErrorHandler = respond.ErrorHandler(zerolog.Nop(), true)
	public := e.Group("/api")
	h.RegisterPublicRoutes(public)
	return e, svc
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{
	"email": "pat@example.com",
	"password": "sup3rsecret",
	"first_name": "Pat",
	"last_name": "Ng",
	"role": "patient",
	"patient": {"date_of_birth": "1990-04-02T00:00:00Z", "blood_type": "O+"}
}`

func TestRegisterEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", registerBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool        `json:"success"`
		Data    *PublicUser `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || envelope.Data == nil {
		t.Fatalf("envelope = %s", rec.Body.String())
	}
	if envelope.Data.Role != auth.RolePatient || envelope.Data.Patient == nil {
		t.Errorf("user = %+v", envelope.Data)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not leak credential fields")
	}
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	e, _ := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/auth/register", registerBody)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"email": "pat@example.com", "password": "wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Success || envelope.Error == nil || envelope.Error.Code != "UNAUTHENTICATED" {
		t.Errorf("envelope = %s", rec.Body.String())
	}
}

func TestLoginEndpointSuccess(t *testing.T) {
	e, _ := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/auth/register", registerBody)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"email": "pat@example.com", "password": "sup3rsecret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool        `json:"success"`
		Data    *AuthResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data == nil || envelope.Data.AccessToken == "" || envelope.Data.RefreshToken == "" {
		t.Fatalf("envelope = %s", rec.Body.String())
	}
}

func TestRegisterValidationEnvelope(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"email": "x@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_FAILED") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

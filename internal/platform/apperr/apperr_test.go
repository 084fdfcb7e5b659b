package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Conflict("slot unavailable"), http.StatusBadRequest},
		{Unauthenticated("no token"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Internal("boom", errors.New("cause")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.err.Code, got, tc.want)
		}
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load appointment: %w", Conflict("slot unavailable"))
	if !IsCode(err, CodeConflict) {
		t.Errorf("wrapped conflict not recognized: %v", err)
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Error("unclassified error must not match")
	}
}

func TestInternalHidesCauseFromCode(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := Internal("query failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause must unwrap for server-side logging")
	}
	if err.Code != CodeServer {
		t.Errorf("code = %s, want %s", err.Code, CodeServer)
	}
}

// Package respond renders the shared API envelope:
//
//	{"success": bool, "data": ..., "message": ..., "error": ...}
//
// All handlers go through these helpers so clients see one shape regardless of
// which service produced the response.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/platform/apperr"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable error portion of the envelope.
type ErrorBody struct {
	Code    apperr.Code         `json:"code"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// OKMessage writes a 200 success envelope carrying only a human-readable
// message.
func OKMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Created writes a 201 success envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Err writes a failure envelope for a classified error. Unclassified errors
// become a generic 500.
func Err(c echo.Context, err error) error {
	ae := apperr.From(err)
	if ae == nil {
		ae = apperr.Internal("internal server error", err)
	}
	return c.JSON(ae.HTTPStatus(), Envelope{
		Success: false,
		Message: ae.Message,
		Error:   &ErrorBody{Code: ae.Code, Message: ae.Message, Fields: ae.Fields},
	})
}

// ErrorHandler returns an echo HTTPErrorHandler that funnels every error a
// handler returns (or that middleware raises) into the envelope. In
// development the internal cause of 500s is included in the message; in other
// modes it is suppressed and only logged.
func ErrorHandler(logger zerolog.Logger, dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if ae := apperr.From(err); ae != nil {
			if ae.Code == apperr.CodeServer {
				logger.Error().Err(err).
					Str("path", c.Request().URL.Path).
					Msg("unhandled error")
				if dev {
					_ = c.JSON(ae.HTTPStatus(), Envelope{
						Success: false,
						Message: err.Error(),
						Error:   &ErrorBody{Code: ae.Code, Message: err.Error()},
					})
					return
				}
			}
			_ = Err(c, ae)
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, Envelope{
				Success: false,
				Message: msg,
				Error:   &ErrorBody{Code: codeForStatus(he.Code), Message: msg},
			})
			return
		}

		logger.Error().Err(err).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
		msg := "internal server error"
		if dev {
			msg = err.Error()
		}
		_ = c.JSON(http.StatusInternalServerError, Envelope{
			Success: false,
			Message: msg,
			Error:   &ErrorBody{Code: apperr.CodeServer, Message: msg},
		})
	}
}

func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	default:
		return apperr.CodeServer
	}
}

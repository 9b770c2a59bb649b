// errors.go - structured error responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/OpenTraceLab/OpenTraceLogic/internal/config"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/session"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for a rejected decoder configuration
func NewValidationError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "decoder configuration rejected",
		Details: cause.Error(),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// fromDomain maps package sentinels to HTTP errors.
func fromDomain(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, session.ErrUnknownHandle):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "decoder not found", Details: err.Error()}
	case errors.Is(err, session.ErrNoCapture):
		return NewConflictError("no capture loaded", err)
	case errors.Is(err, session.ErrCaptureInProgress), errors.Is(err, session.ErrInvalidTransition):
		return NewConflictError("capture in progress", err)
	case errors.Is(err, decoder.ErrUnsupportedProtocol),
		errors.Is(err, decoder.ErrMissingChannel),
		errors.Is(err, decoder.ErrInvalidChannel),
		errors.Is(err, decoder.ErrInvalidOption),
		errors.Is(err, dsl.ErrSyntax),
		errors.Is(err, dsl.ErrEmpty),
		errors.Is(err, dsl.ErrUnknownKey),
		errors.Is(err, dsl.ErrDuplicateKey),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, logic.ErrUnknownChannel),
		errors.Is(err, logic.ErrChannelDisabled):
		return NewValidationError(err)
	}
	return NewInternalError("unexpected error", err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = fromDomain(err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

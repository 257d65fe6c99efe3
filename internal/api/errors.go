// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/session"
	"github.com/memorial-automator/client/internal/workflow"
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

// workflowErrors maps controller error kinds to HTTP statuses and codes.
var workflowErrors = []struct {
	kind   error
	status int
	code   string
}{
	{workflow.ErrInvalidFileType, http.StatusBadRequest, "INVALID_FILE_TYPE"},
	{workflow.ErrFileTooLarge, http.StatusBadRequest, "FILE_TOO_LARGE"},
	{workflow.ErrNoFileSelected, http.StatusBadRequest, "NO_FILE_SELECTED"},
	{workflow.ErrSubmissionInProgress, http.StatusConflict, "SUBMISSION_IN_PROGRESS"},
	{workflow.ErrWrongState, http.StatusConflict, "WRONG_STATE"},
	{workflow.ErrClipboardUnavailable, http.StatusServiceUnavailable, "CLIPBOARD_UNAVAILABLE"},
	{workflow.ErrNoResult, http.StatusNotFound, "NO_RESULT"},
	{workflow.ErrRequestFailed, http.StatusBadGateway, "REQUEST_FAILED"},
	{workflow.ErrAbandoned, http.StatusConflict, "ABANDONED"},
}

// FromError converts controller and session errors into an APIError. The
// localized controller message becomes the response message.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, session.ErrNotFound) {
		return &APIError{Status: http.StatusNotFound, Code: "SESSION_NOT_FOUND", Message: err.Error()}
	}
	for _, m := range workflowErrors {
		if errors.Is(err, m.kind) {
			return &APIError{Status: m.status, Code: m.code, Message: err.Error()}
		}
	}
	return nil
}

// NewErrorHandler returns an echo error handler writing APIError bodies.
// Unknown errors carry their text in details only when debug is set.
func NewErrorHandler(logger log.Logger, debug bool) echo.HTTPErrorHandler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := FromError(err)
		if apiErr == nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				apiErr = &APIError{
					Status:  he.Code,
					Code:    "HTTP_ERROR",
					Message: fmt.Sprintf("%v", he.Message),
				}
			} else {
				apiErr = &APIError{
					Status:  http.StatusInternalServerError,
					Code:    "UNKNOWN_ERROR",
					Message: "An unexpected error occurred",
				}
				if debug {
					apiErr.Details = err.Error()
				}
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			level.Error(logger).Log("msg", "request failed", "path", c.Path(), "code", apiErr.Code, "err", err)
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}

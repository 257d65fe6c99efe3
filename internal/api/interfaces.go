// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
	HandleMessages(c echo.Context) error
}

// SessionHandler handles session lifecycle and view retrieval
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetView(c echo.Context) error
	HandleGetViewMsgpack(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
}

// WorkflowHandler maps the controller operations onto HTTP
type WorkflowHandler interface {
	HandleSelectFile(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleSubmit(c echo.Context) error
	HandleCopy(c echo.Context) error
	HandleReset(c echo.Context) error
}

// ExportHandler serves the result downloads
type ExportHandler interface {
	HandleExportText(c echo.Context) error
	HandleExportJSON(c echo.Context) error
}

// StreamHandler pushes rendered views to the browser
type StreamHandler interface {
	HandleViewStream(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() *session.State
	Get(id string) (*session.State, error)
	Touch(id string) bool
	Delete(id string) error
}

// BackendChecker reports whether the memorial generation service is up.
type BackendChecker interface {
	Health(ctx context.Context) error
}

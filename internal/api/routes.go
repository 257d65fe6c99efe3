// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions SessionManager
	Store    storage.Store
	Backend  BackendChecker
	Messages config.Messages
	Version  string
	Logger   log.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Session  SessionHandler
	Workflow WorkflowHandler
	Export   ExportHandler
	Stream   StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Backend, deps.Messages),
		Session:  NewSessionHandler(deps.Sessions),
		Workflow: NewWorkflowHandler(deps.Sessions, deps.Store, log.With(logger, "component", "workflow")),
		Export:   NewExportHandler(deps.Sessions),
		Stream:   NewWebSocketHandler(deps.Sessions, log.With(logger, "component", "websocket")),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	api.GET("/health", handlers.Health.HandleHealth)
	api.GET("/config/messages", handlers.Health.HandleMessages)

	// Session routes
	api.POST("/sessions", handlers.Session.HandleCreateSession)
	sessions := api.Group("/sessions/:id")
	sessions.GET("", handlers.Session.HandleGetView)
	sessions.GET("/msgpack", handlers.Session.HandleGetViewMsgpack)
	sessions.DELETE("", handlers.Session.HandleDeleteSession)

	// Workflow operations
	sessions.POST("/file", handlers.Workflow.HandleSelectFile)
	sessions.DELETE("/file", handlers.Workflow.HandleRemoveFile)
	sessions.POST("/submit", handlers.Workflow.HandleSubmit)
	sessions.POST("/copy", handlers.Workflow.HandleCopy)
	sessions.POST("/reset", handlers.Workflow.HandleReset)

	// Downloads
	sessions.GET("/export/text", handlers.Export.HandleExportText)
	sessions.GET("/export/json", handlers.Export.HandleExportJSON)

	// View stream
	sessions.GET("/ws", handlers.Stream.HandleViewStream)
}

// SetupMiddleware installs the structured error handler
func SetupMiddleware(e *echo.Echo, logger log.Logger, debug bool) {
	e.HTTPErrorHandler = NewErrorHandler(logger, debug)
}

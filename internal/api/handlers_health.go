// handlers_health.go - Health check and configuration handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/config"
)

const backendProbeTimeout = 5 * time.Second

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	backend  BackendChecker
	messages config.Messages
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, backend BackendChecker, messages config.Messages) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		backend:  backend,
		messages: messages,
	}
}

// HandleHealth returns server health status along with the reachability of
// the generation service. The server itself is healthy either way.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"backend": "unknown",
	}

	if h.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), backendProbeTimeout)
		defer cancel()

		if err := h.backend.Health(ctx); err != nil {
			resp["backend"] = "unavailable"
			resp["backendError"] = err.Error()
		} else {
			resp["backend"] = "ok"
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleMessages returns the user-facing message catalog
func (h *HealthHandlerImpl) HandleMessages(c echo.Context) error {
	return c.JSON(http.StatusOK, h.messages)
}

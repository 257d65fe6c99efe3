// handlers_export.go - Result download handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/export"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	sessions SessionManager
}

// NewExportHandler creates a new export handler
func NewExportHandler(sessions SessionManager) ExportHandler {
	return &ExportHandlerImpl{sessions: sessions}
}

// HandleExportText downloads the generated text
func (h *ExportHandlerImpl) HandleExportText(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	a, err := s.Controller.DownloadAsText()
	if err != nil {
		return err
	}
	return attachment(c, a)
}

// HandleExportJSON downloads the complete service response
func (h *ExportHandlerImpl) HandleExportJSON(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	a, err := s.Controller.DownloadAsJSON()
	if err != nil {
		return err
	}
	return attachment(c, a)
}

func attachment(c echo.Context, a *export.Artifact) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.FileName))
	return c.Blob(http.StatusOK, a.ContentType, a.Data)
}

// handlers_workflow.go - Upload workflow operation handlers
package api

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/models"
	"github.com/memorial-automator/client/internal/storage"
)

// WorkflowHandlerImpl implements the WorkflowHandler interface
type WorkflowHandlerImpl struct {
	sessions SessionManager
	store    storage.Store
	logger   log.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(sessions SessionManager, store storage.Store, logger log.Logger) WorkflowHandler {
	return &WorkflowHandlerImpl{
		sessions: sessions,
		store:    store,
		logger:   logger,
	}
}

// HandleSelectFile stages the multipart "file" field and hands it to the
// controller. A rejected file is removed from staging again.
func (h *WorkflowHandlerImpl) HandleSelectFile(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(fh.Filename, src)
	if err != nil {
		return NewInternalError("failed to stage file", err)
	}

	if err := s.Controller.SelectFile(storage.SelectedFile(h.store, info)); err != nil {
		if derr := h.store.Delete(info.ID); derr != nil {
			level.Warn(h.logger).Log("msg", "failed to remove rejected file", "id", info.ID, "err", derr)
		}
		return err
	}

	return c.JSON(http.StatusOK, s.Controller.View())
}

// HandleRemoveFile clears the selection
func (h *WorkflowHandlerImpl) HandleRemoveFile(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	if err := s.Controller.RemoveFile(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Controller.View())
}

// HandleSubmit starts the generation request and returns immediately with
// the Processing view. The outcome arrives on the view stream.
func (h *WorkflowHandlerImpl) HandleSubmit(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}

	fields := models.DefaultFormFields()
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&fields); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}

	// The request outlives this HTTP call, so it runs under the session
	// context rather than the request context.
	done, err := s.Controller.Start(s.Ctx, fields)
	if err != nil {
		return err
	}
	go func(id string) {
		if err := <-done; err != nil {
			level.Debug(h.logger).Log("msg", "submission finished", "session", id, "err", err)
		}
	}(s.ID)

	return c.JSON(http.StatusAccepted, s.Controller.View())
}

// HandleCopy copies the generated text to the clipboard of the host machine
func (h *WorkflowHandlerImpl) HandleCopy(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	if err := s.Controller.CopyResult(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Controller.View())
}

// HandleReset returns the session to the empty upload view
func (h *WorkflowHandlerImpl) HandleReset(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	s.Controller.Reset()
	return c.JSON(http.StatusOK, s.Controller.View())
}

// handlers_session.go - Session lifecycle handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/models"
	"github.com/memorial-automator/client/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

// sessionResponse is returned when a session is created
type sessionResponse struct {
	SessionID string      `json:"sessionId"`
	View      models.View `json:"view"`
}

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessions: sessions}
}

// HandleCreateSession starts a session with its controller in Upload/Empty
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	s := h.sessions.Create()
	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID: s.ID,
		View:      s.Controller.View(),
	})
}

// HandleGetView returns the current view of a session
func (h *SessionHandlerImpl) HandleGetView(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Controller.View())
}

// HandleGetViewMsgpack returns the current view encoded as MessagePack
func (h *SessionHandlerImpl) HandleGetViewMsgpack(c echo.Context) error {
	s, err := lookup(h.sessions, c)
	if err != nil {
		return err
	}

	data, err := encodeMsgpack(s.Controller.View())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteSession closes a session, abandoning any in-flight request
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func lookup(sessions SessionManager, c echo.Context) (*session.State, error) {
	return sessions.Get(c.Param("id"))
}

// encodeMsgpack uses the json tags so both encodings share field names.
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

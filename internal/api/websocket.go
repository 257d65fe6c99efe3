package api

import (
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/models"
)

// WebSocket message types
const (
	// Server -> Client
	MsgTypeView = "view"
	MsgTypePong = "pong"

	// Client -> Server
	MsgTypePing = "ping"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSMessage is the envelope of every frame on the view stream
type WSMessage struct {
	Type      string       `json:"type"`
	View      *models.View `json:"view,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// WebSocketHandler streams the rendered views of a session
type WebSocketHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
	logger   log.Logger
}

// NewWebSocketHandler creates a new view stream handler
func NewWebSocketHandler(sessions SessionManager, logger log.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: logger,
	}
}

// HandleViewStream upgrades the connection and sends the current view,
// then every view the controller renders until the session closes or the
// client disconnects.
func (wsh *WebSocketHandler) HandleViewStream(c echo.Context) error {
	s, err := lookup(wsh.sessions, c)
	if err != nil {
		return err
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	views, unsubscribe := s.Views.Subscribe(s.Controller.View())
	defer unsubscribe()

	level.Debug(wsh.logger).Log("msg", "view stream connected", "session", s.ID)

	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go wsh.readLoop(ws, s.ID, pings, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-views:
			if !ok {
				wsh.writeClose(ws)
				return nil
			}
			if err := wsh.send(ws, WSMessage{Type: MsgTypeView, View: &v}); err != nil {
				return nil
			}
		case <-pings:
			if err := wsh.send(ws, WSMessage{Type: MsgTypePong}); err != nil {
				return nil
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			level.Debug(wsh.logger).Log("msg", "view stream disconnected", "session", s.ID)
			return nil
		}
	}
}

// readLoop handles client pings and detects disconnects. Gorilla allows one
// concurrent reader, so replies are handed to the writer loop. Every frame
// from the client counts as session activity.
func (wsh *WebSocketHandler) readLoop(ws *websocket.Conn, id string, pings chan<- struct{}, closed chan<- struct{}) {
	defer close(closed)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		wsh.sessions.Touch(id)
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				level.Warn(wsh.logger).Log("msg", "view stream read failed", "err", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
		wsh.sessions.Touch(id)
		if msg.Type == MsgTypePing {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(msg); err != nil {
		level.Debug(wsh.logger).Log("msg", "failed to send message", "err", err)
		return err
	}
	return nil
}

func (wsh *WebSocketHandler) writeClose(ws *websocket.Conn) {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
}

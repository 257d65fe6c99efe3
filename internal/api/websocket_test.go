package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memorial-automator/client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readView(t *testing.T, ws *websocket.Conn) models.View {
	t.Helper()
	for {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		require.NoError(t, ws.ReadJSON(&msg))
		if msg.Type == MsgTypeView {
			require.NotNil(t, msg.View)
			return *msg.View
		}
	}
}

func TestViewStream_FollowsSubmission(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF")).Code)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	first := readView(t, ws)
	assert.Equal(t, models.UploadFileSelected, first.Upload)

	require.Equal(t, http.StatusAccepted, env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil)).Code)

	var states []models.ViewState
	last := first.Revision
	for {
		v := readView(t, ws)
		assert.Greater(t, v.Revision, last)
		last = v.Revision
		if len(states) == 0 || states[len(states)-1] != v.State {
			states = append(states, v.State)
		}
		if v.State == models.ViewResult {
			assert.Equal(t, "MEMORIAL DESCRITIVO", v.Result.MemorialText)
			break
		}
	}
	assert.Equal(t, []models.ViewState{models.ViewProcessing, models.ViewResult}, states)
}

func TestViewStream_PingPong(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	id := env.createSession(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	readView(t, ws)
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypePong, msg.Type)
}

func TestViewStream_ClosedWithSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	id := env.createSession(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	readView(t, ws)
	require.NoError(t, env.sessions.Delete(id))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
			return
		}
	}
}

func TestViewStream_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewStream_ActivityKeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	idle := env.createSession(t)
	id := env.createSession(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	connected := time.Now()

	readView(t, ws)
	for time.Since(connected) < 150*time.Millisecond {
		require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		require.NoError(t, ws.ReadJSON(&msg))
		require.Equal(t, MsgTypePong, msg.Type)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, 1, env.sessions.CleanupOldSessions(100*time.Millisecond))

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)).Code)
	assert.Equal(t, http.StatusNotFound, env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+idle, nil)).Code)
}

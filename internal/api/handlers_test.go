package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/generator"
	"github.com/memorial-automator/client/internal/models"
	"github.com/memorial-automator/client/internal/session"
	"github.com/memorial-automator/client/internal/storage"
	"github.com/memorial-automator/client/internal/testutil"
	"github.com/memorial-automator/client/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const successBody = `{"pages_processed":3,"processing_time_seconds":12.5,` +
	`"structured_data":{"project_name":"Residência Silva","area_total_m2":120},` +
	`"warnings":["Escala ausente"],"memorial_text":"MEMORIAL DESCRITIVO","extra":true}`

type testEnv struct {
	e        *echo.Echo
	backend  *testutil.MockBackend
	sessions *session.Manager
	store    *storage.LocalStore
	clip     *testutil.FakeClipboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := testutil.NewMockBackend(http.StatusOK, successBody)
	t.Cleanup(backend.Close)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	gen := generator.NewClient(generator.Options{
		GenerateURL: backend.URL(),
		HealthURL:   backend.HealthURL(),
		Timeout:     5 * time.Second,
	})
	clip := &testutil.FakeClipboard{}
	sessions := session.NewManager(func(r workflow.Renderer) *workflow.Controller {
		return workflow.New(gen, workflow.Options{
			Clipboard:    clip,
			Renderer:     r,
			StepInterval: 10 * time.Millisecond,
		})
	}, 10, nil)
	t.Cleanup(sessions.CloseAll)

	e := echo.New()
	SetupMiddleware(e, nil, true)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions: sessions,
		Store:    store,
		Backend:  gen,
		Messages: config.DefaultMessages(),
		Version:  "test",
	}))

	return &testEnv{e: e, backend: backend, sessions: sessions, store: store, clip: clip}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, models.ViewUpload, resp.View.State)
	return resp.SessionID
}

func (env *testEnv) upload(t *testing.T, id, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/file", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return env.do(req)
}

func (env *testEnv) waitForState(t *testing.T, id string, want models.ViewState) models.View {
	t.Helper()
	s, err := env.sessions.Get(id)
	require.NoError(t, err)

	var v models.View
	require.Eventually(t, func() bool {
		v = s.Controller.View()
		return v.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return v
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) models.View {
	t.Helper()
	var v models.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	h := NewHealthHandler("1.0.0", generator.NewClient(generator.Options{HealthURL: env.backend.HealthURL()}), config.DefaultMessages())

	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"backend":"ok"`)
		assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)
	}
}

func TestHandleHealth_BackendDown(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Close()

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"unavailable"`)
}

func TestHandleMessages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/config/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs config.Messages
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Equal(t, config.DefaultMessages(), msgs)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.UploadEmpty, decodeView(t, rec).Upload)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetViewMsgpack(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF-1.4")).Code)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/msgpack", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "upload", decoded["state"])
	assert.Equal(t, "file_selected", decoded["upload"])
	assert.Equal(t, true, decoded["submitEnabled"])
}

func TestSelectFile_Validation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.upload(t, id, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "INVALID_FILE_TYPE", apiErr.Code)
	assert.Equal(t, "Por favor, selecione apenas arquivos PDF.", apiErr.Message)

	// Rejected uploads are not left in staging
	files, err := env.store.List(0)
	require.NoError(t, err)
	assert.Empty(t, files)

	rec = env.upload(t, id, "PLANTA.PDF", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, models.UploadFileSelected, v.Upload)
	require.NotNil(t, v.File)
	assert.Equal(t, "PLANTA.PDF", v.File.Name)
	assert.Equal(t, "8 Bytes", v.File.FormattedSize)
}

func TestSelectFile_MissingField(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/file", strings.NewReader(""))
	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestRemoveFile_DeletesStagedCopy(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "a.pdf", []byte("%PDF")).Code)

	files, _ := env.store.List(0)
	require.Len(t, files, 1)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id+"/file", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.UploadEmpty, decodeView(t, rec).Upload)

	files, _ = env.store.List(0)
	assert.Empty(t, files)

	// Idempotent
	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id+"/file", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmit_NoFile(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "NO_FILE_SELECTED", apiErr.Code)
	assert.Equal(t, "Por favor, selecione um arquivo PDF primeiro.", apiErr.Message)
	assert.Empty(t, env.backend.Requests())
}

func TestSubmit_SuccessAndExports(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF-1.4 body")).Code)

	body := `{"clientId":"acme","includeImages":true,"customInstructions":"Seja breve"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := env.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, models.ViewProcessing, decodeView(t, rec).State)

	v := env.waitForState(t, id, models.ViewResult)
	require.NotNil(t, v.Result)
	assert.Equal(t, "3", v.Result.Pages)
	assert.Equal(t, "12.5s", v.Result.Time)
	assert.Equal(t, "Residência Silva", v.Result.Project)
	assert.Equal(t, "120 m²", v.Result.Area)
	assert.Equal(t, []string{"Escala ausente"}, v.Result.Warnings)

	reqs := env.backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "planta.pdf", reqs[0].FileName)
	assert.Equal(t, []byte("%PDF-1.4 body"), reqs[0].FileContent)
	assert.Equal(t, []string{"acme"}, reqs[0].Fields["client_id"])
	assert.Equal(t, []string{"true"}, reqs[0].Fields["include_images"])
	assert.Equal(t, []string{"Seja breve"}, reqs[0].Fields["custom_instructions"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export/text", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MEMORIAL DESCRITIVO", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="memorial_descritivo.txt"`)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export/json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="memorial_dados_completos.json"`)
	assert.Contains(t, rec.Body.String(), "\n  \"extra\": true")

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/copy", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"MEMORIAL DESCRITIVO"}, env.clip.Copied())
	assert.Equal(t, "Memorial copiado para a área de transferência!", decodeView(t, rec).Notice)
}

func TestSubmit_BackendError(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Respond(http.StatusUnprocessableEntity, `{"detail":"PDF sem texto extraível"}`)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF")).Code)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	v := env.waitForState(t, id, models.ViewError)
	assert.Equal(t, "PDF sem texto extraível", v.ErrorMessage)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export/text", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_RESULT", decodeError(t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, models.ViewUpload, v.State)
	assert.Equal(t, models.UploadEmpty, v.Upload)
}

func TestSubmit_WhileInFlight(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Hold()
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF")).Code)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SUBMISSION_IN_PROGRESS", decodeError(t, rec).Code)

	// File changes are refused outside the upload view
	rec = env.upload(t, id, "outra.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "WRONG_STATE", decodeError(t, rec).Code)

	env.backend.Release()
	env.waitForState(t, id, models.ViewResult)
	assert.Len(t, env.backend.Requests(), 1)
}

func TestCopy_ClipboardUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.clip.Err = errors.New("no clipboard utility")
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, "planta.pdf", []byte("%PDF")).Code)
	require.Equal(t, http.StatusAccepted, env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil)).Code)
	env.waitForState(t, id, models.ViewResult)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/copy", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "CLIPBOARD_UNAVAILABLE", apiErr.Code)
	assert.Equal(t, "Erro ao copiar. Por favor, selecione e copie manualmente.", apiErr.Message)

	env.waitForState(t, id, models.ViewResult)
}

func TestCopy_NoResult(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/copy", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_RESULT", decodeError(t, rec).Code)
	assert.Empty(t, env.clip.Copied())
}

func TestErrorHandler_UnknownError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewErrorHandler(nil, false)(errors.New("boom"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "UNKNOWN_ERROR", apiErr.Code)
	assert.Empty(t, apiErr.Details)
}

func TestFromError_WorkflowKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&workflow.Error{Kind: workflow.ErrFileTooLarge, Message: "grande"}, http.StatusBadRequest, "FILE_TOO_LARGE"},
		{workflow.ErrNoResult, http.StatusNotFound, "NO_RESULT"},
		{session.ErrNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{NewBadRequestError("x", nil), http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := FromError(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}

	assert.Nil(t, FromError(errors.New("other")))
}

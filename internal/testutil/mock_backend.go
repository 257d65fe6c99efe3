// mock_backend.go - Fake memorial generation service for tests
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RecordedRequest captures one multipart submission received by MockBackend.
type RecordedRequest struct {
	FileName    string
	FileContent []byte
	Fields      map[string][]string
}

// MockBackend serves a configurable response on the generation route and
// records every submission.
type MockBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	delay    time.Duration
	release  chan struct{}
	requests []RecordedRequest
}

// GeneratePath is the route served by MockBackend.
const GeneratePath = "/api/v1/generate_memorial"

// NewMockBackend starts a mock service answering 200 with body.
func NewMockBackend(status int, body string) *MockBackend {
	m := &MockBackend{status: status, body: body}

	e := echo.New()
	e.HideBanner = true
	e.POST(GeneratePath, m.handleGenerate)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	m.Server = httptest.NewServer(e)
	return m
}

// URL returns the full URL of the generation route.
func (m *MockBackend) URL() string {
	return m.Server.URL + GeneratePath
}

// HealthURL returns the full URL of the health route.
func (m *MockBackend) HealthURL() string {
	return m.Server.URL + "/health"
}

// Close shuts the server down, unblocking any held request.
func (m *MockBackend) Close() {
	m.mu.Lock()
	if m.release != nil {
		select {
		case <-m.release:
		default:
			close(m.release)
		}
	}
	m.mu.Unlock()
	m.Server.Close()
}

// Respond changes the configured response.
func (m *MockBackend) Respond(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.body = body
}

// SetDelay delays every response by d.
func (m *MockBackend) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Hold makes requests block until Release is called.
func (m *MockBackend) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release = make(chan struct{})
}

// Release unblocks held requests.
func (m *MockBackend) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil {
		close(m.release)
		m.release = nil
	}
}

// Requests returns a copy of the recorded submissions.
func (m *MockBackend) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockBackend) handleGenerate(c echo.Context) error {
	rec := RecordedRequest{Fields: map[string][]string{}}
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			rec.Fields[k] = v
		}
		if files := form.File["file"]; len(files) > 0 {
			rec.FileName = files[0].Filename
			if f, err := files[0].Open(); err == nil {
				rec.FileContent, _ = io.ReadAll(f)
				f.Close()
			}
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	status, body, delay, release := m.status, m.body, m.delay, m.release
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if release != nil {
		select {
		case <-release:
		case <-c.Request().Context().Done():
			return nil
		}
	}

	return c.Blob(status, echo.MIMEApplicationJSONCharsetUTF8, []byte(body))
}

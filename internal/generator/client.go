// Package generator calls the external memorial generation service.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/memorial-automator/client/internal/models"
)

// Multipart field names expected by the generation endpoint.
const (
	FieldFile               = "file"
	FieldClientID           = "client_id"
	FieldIncludeImages      = "include_images"
	FieldCustomInstructions = "custom_instructions"
)

// maxResponseSize bounds the response body read into memory.
const maxResponseSize = 32 << 20

// ErrMalformedResponse is returned when a success body cannot be used.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is a non-success HTTP response from the service.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Generator submits a document and returns the generated memorial.
type Generator interface {
	Generate(ctx context.Context, req *models.SubmissionRequest) (*models.MemorialResult, error)
}

// Options configures a Client.
type Options struct {
	GenerateURL string
	HealthURL   string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      log.Logger
}

// Client implements Generator over HTTP.
type Client struct {
	generateURL string
	healthURL   string
	timeout     time.Duration
	http        *http.Client
	logger      log.Logger
}

// NewClient creates a Client. A nil HTTPClient uses http.DefaultClient.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		generateURL: opts.GenerateURL,
		healthURL:   opts.HealthURL,
		timeout:     opts.Timeout,
		http:        hc,
		logger:      logger,
	}
}

// Generate POSTs the document as multipart/form-data and decodes the result.
func (c *Client) Generate(ctx context.Context, req *models.SubmissionRequest) (*models.MemorialResult, error) {
	if req == nil || req.File == nil || req.File.Source == nil {
		return nil, errors.New("submission has no file")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	src, err := req.File.Source.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", req.File.Name, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, req, src))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	level.Info(c.logger).Log("msg", "submitting document", "file", req.File.Name, "size", req.File.Size, "client_id", req.ClientID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Unblock the writer goroutine if the transport never drained the body.
		pr.CloseWithError(err)
		level.Error(c.logger).Log("msg", "request failed", "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	level.Debug(c.logger).Log("msg", "response received", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
		level.Warn(c.logger).Log("msg", "generation rejected", "status", resp.StatusCode, "detail", serr.Detail)
		return nil, serr
	}

	return decodeResult(body)
}

// Health checks the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.healthURL == "" {
		return errors.New("health URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func writeForm(mw *multipart.Writer, req *models.SubmissionRequest, src io.Reader) error {
	part, err := mw.CreateFormFile(FieldFile, req.File.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("streaming file: %w", err)
	}
	if err := mw.WriteField(FieldClientID, req.ClientID); err != nil {
		return err
	}
	if err := mw.WriteField(FieldIncludeImages, strconv.FormatBool(req.IncludeImages)); err != nil {
		return err
	}
	if req.CustomInstructions != "" {
		if err := mw.WriteField(FieldCustomInstructions, req.CustomInstructions); err != nil {
			return err
		}
	}
	return mw.Close()
}

// parseDetail extracts a string "detail" from an error body. Anything else
// yields an empty string so the caller falls back to its generic message.
func parseDetail(body []byte) string {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	detail, ok := er.Detail.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(detail)
}

func decodeResult(body []byte) (*models.MemorialResult, error) {
	var probe struct {
		MemorialText *string `json:"memorial_text"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if probe.MemorialText == nil {
		return nil, fmt.Errorf("%w: memorial_text missing", ErrMalformedResponse)
	}

	var result models.MemorialResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Raw = append([]byte(nil), body...)
	return &result, nil
}

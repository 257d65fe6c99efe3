// Package workflow implements the upload/processing/result/error view-state
// machine that drives a memorial generation from file selection to export.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/memorial-automator/client/internal/clipboard"
	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/export"
	"github.com/memorial-automator/client/internal/generator"
	"github.com/memorial-automator/client/internal/models"
)

// DefaultMaxFileSize is the largest accepted document (50 MiB).
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// DefaultStepInterval is the cadence of the progress animation.
const DefaultStepInterval = time.Second

// DefaultExtension is the only accepted document suffix unless configured.
const DefaultExtension = ".pdf"

// Renderer receives a snapshot after every transition. It is called with
// the controller lock held, in revision order, and must not block or call
// back into the controller.
type Renderer interface {
	Render(v models.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(models.View)

func (f RendererFunc) Render(v models.View) { f(v) }

// Options configures a Controller.
type Options struct {
	Clipboard   clipboard.Clipboard
	Renderer    Renderer
	Messages    *config.Messages
	MaxFileSize int64
	// AllowedExtension is matched case-insensitively against the file name.
	AllowedExtension string
	StepInterval     time.Duration
	Logger           log.Logger
}

// Controller owns the selected file, the last result and the view state.
// All methods are safe for concurrent use.
type Controller struct {
	gen      generator.Generator
	clip     clipboard.Clipboard
	renderer Renderer
	msgs     config.Messages
	maxSize  int64
	ext      string
	interval time.Duration
	logger   log.Logger

	mu         sync.Mutex
	state      models.ViewState
	file       *models.SelectedFile
	fields     models.FormFields
	result     *models.MemorialResult
	errMsg     string
	notice     string
	progress   models.ProgressView
	anim       *animation
	cancel     context.CancelFunc
	submission uint64
	revision   uint64
}

// New creates a controller in the Upload/Empty state.
func New(gen generator.Generator, opts Options) *Controller {
	c := &Controller{
		gen:      gen,
		clip:     opts.Clipboard,
		renderer: opts.Renderer,
		maxSize:  opts.MaxFileSize,
		ext:      strings.ToLower(opts.AllowedExtension),
		interval: opts.StepInterval,
		logger:   opts.Logger,
		state:    models.ViewUpload,
		fields:   models.DefaultFormFields(),
	}
	if c.clip == nil {
		c.clip = clipboard.System{}
	}
	if c.maxSize <= 0 {
		c.maxSize = DefaultMaxFileSize
	}
	if c.ext == "" {
		c.ext = DefaultExtension
	}
	msgs := config.DefaultMessages()
	if opts.Messages != nil {
		msgs = *opts.Messages
	}
	c.msgs = ResolveMessages(msgs, c.maxSize)
	if c.interval <= 0 {
		c.interval = DefaultStepInterval
	}
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	c.progress = c.initialProgress()
	return c
}

// SelectFile validates and stores a candidate, replacing any previous one.
func (c *Controller) SelectFile(f *models.SelectedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.ViewUpload {
		return &Error{Kind: ErrWrongState}
	}
	if f == nil || !strings.HasSuffix(strings.ToLower(f.Name), c.ext) {
		return c.rejectLocked(ErrInvalidFileType, c.msgs.OnlyPDF)
	}
	if f.Size > c.maxSize {
		return c.rejectLocked(ErrFileTooLarge, c.msgs.FileTooLarge)
	}

	c.releaseFileLocked()
	c.file = f
	c.notice = ""
	level.Info(c.logger).Log("msg", "file selected", "file", f.Name, "size", f.Size)
	c.renderLocked()
	return nil
}

// RemoveFile clears the selection. Calling it with nothing selected is a no-op.
func (c *Controller) RemoveFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.ViewUpload {
		return &Error{Kind: ErrWrongState}
	}
	if c.file == nil {
		return nil
	}
	c.releaseFileLocked()
	c.notice = ""
	c.renderLocked()
	return nil
}

// Submit sends the selected file with fields to the generation service and
// blocks until a terminal state is reached.
func (c *Controller) Submit(ctx context.Context, fields models.FormFields) error {
	done, err := c.Start(ctx, fields)
	if err != nil {
		return err
	}
	return <-done
}

// Start validates the submission, moves to Processing and issues the request
// in the background. Precondition failures are returned directly; the
// outcome of the request is delivered on the returned channel. The progress
// animation runs alongside the request and is stopped on every exit from
// Processing.
func (c *Controller) Start(ctx context.Context, fields models.FormFields) (<-chan error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == models.ViewProcessing:
		return nil, c.rejectLocked(ErrSubmissionInProgress, c.msgs.SubmitInProgress)
	case c.state != models.ViewUpload:
		return nil, &Error{Kind: ErrWrongState}
	case c.file == nil:
		return nil, c.rejectLocked(ErrNoFileSelected, c.msgs.SelectPDFFirst)
	}

	c.fields = fields
	req := models.NewSubmissionRequest(c.file, fields)
	c.state = models.ViewProcessing
	c.errMsg = ""
	c.notice = ""
	c.progress = c.initialProgress()
	c.submission++
	id := c.submission
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.startAnimationLocked()
	c.renderLocked()

	level.Info(c.logger).Log("msg", "submission started", "file", req.File.Name, "client_id", req.ClientID)

	done := make(chan error, 1)
	go func() {
		defer cancel()
		result, err := c.gen.Generate(reqCtx, req)
		done <- c.finish(id, req, result, err)
	}()
	return done, nil
}

func (c *Controller) finish(id uint64, req *models.SubmissionRequest, result *models.MemorialResult, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submission != id || c.state != models.ViewProcessing {
		level.Info(c.logger).Log("msg", "submission outcome discarded", "file", req.File.Name)
		return ErrAbandoned
	}
	c.cancel = nil
	c.stopAnimationLocked()

	if err != nil {
		msg := c.requestMessage(err)
		c.state = models.ViewError
		c.errMsg = msg
		level.Warn(c.logger).Log("msg", "submission failed", "err", err)
		c.renderLocked()
		return &Error{Kind: ErrRequestFailed, Message: msg, Err: err}
	}

	c.result = result
	c.state = models.ViewResult
	level.Info(c.logger).Log("msg", "submission succeeded", "warnings", len(result.Warnings))
	c.renderLocked()
	return nil
}

// CopyResult copies the displayed generated text to the clipboard.
func (c *Controller) CopyResult(ctx context.Context) error {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return ErrNoResult
	}
	text := c.result.MemorialText
	c.mu.Unlock()

	err := c.clip.WriteText(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		level.Warn(c.logger).Log("msg", "clipboard copy failed", "err", err)
		c.notice = c.msgs.CopyFailed
		c.renderLocked()
		return &Error{Kind: ErrClipboardUnavailable, Message: c.msgs.CopyFailed, Err: err}
	}
	c.notice = c.msgs.Copied
	c.renderLocked()
	return nil
}

// DownloadAsText returns the generated text as memorial_descritivo.txt.
func (c *Controller) DownloadAsText() (*export.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return nil, ErrNoResult
	}
	return export.TextArtifact(c.result.MemorialText), nil
}

// DownloadAsJSON returns the complete result as memorial_dados_completos.json.
func (c *Controller) DownloadAsJSON() (*export.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return nil, ErrNoResult
	}
	raw := c.result.Raw
	if len(raw) == 0 {
		// Generators other than the HTTP client may not keep the body.
		data, err := json.Marshal(c.result)
		if err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}
		raw = data
	}
	return export.JSONArtifact(raw)
}

// Reset returns to Upload/Empty with default fields from any state. An
// in-flight submission is abandoned and its outcome discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.stopAnimationLocked()
	c.releaseFileLocked()
	c.state = models.ViewUpload
	c.fields = models.DefaultFormFields()
	c.result = nil
	c.errMsg = ""
	c.notice = ""
	c.progress = c.initialProgress()
	level.Debug(c.logger).Log("msg", "reset")
	c.renderLocked()
}

// View returns the current snapshot.
func (c *Controller) View() models.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Result returns the last successful result, or nil.
func (c *Controller) Result() *models.MemorialResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// ProgressActive reports whether the animation ticker is still running.
func (c *Controller) ProgressActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anim != nil
}

func (c *Controller) rejectLocked(kind error, msg string) error {
	c.notice = msg
	c.renderLocked()
	return &Error{Kind: kind, Message: msg}
}

func (c *Controller) releaseFileLocked() {
	if c.file == nil {
		return
	}
	if r, ok := c.file.Source.(models.Releaser); ok {
		if err := r.Release(); err != nil {
			level.Warn(c.logger).Log("msg", "failed to release file", "file", c.file.Name, "err", err)
		}
	}
	c.file = nil
}

// requestMessage picks the text shown in the error view: the service's
// detail, the generic message when it gave none, or the transport error.
func (c *Controller) requestMessage(err error) string {
	var serr *generator.StatusError
	if errors.As(err, &serr) {
		if serr.Detail != "" {
			return serr.Detail
		}
		return c.msgs.RequestFailed
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return c.msgs.RequestFailed
}

func (c *Controller) renderLocked() {
	c.revision++
	if c.renderer != nil {
		c.renderer.Render(c.viewLocked())
	}
}

func (c *Controller) viewLocked() models.View {
	v := models.View{
		Revision:      c.revision,
		State:         c.state,
		Upload:        models.UploadEmpty,
		Fields:        c.fields,
		SubmitEnabled: c.state == models.ViewUpload && c.file != nil,
		Progress:      copyProgress(c.progress),
		ErrorMessage:  c.errMsg,
		Notice:        c.notice,
	}
	if c.file != nil {
		v.Upload = models.UploadFileSelected
		v.File = &models.FileInfo{
			Name:          c.file.Name,
			Size:          c.file.Size,
			FormattedSize: FormatFileSize(c.file.Size),
		}
	}
	if c.state == models.ViewResult && c.result != nil {
		v.Result = BuildResultView(c.result)
	}
	return v
}

func copyProgress(p models.ProgressView) models.ProgressView {
	p.Steps = append([]models.ProgressStep(nil), p.Steps...)
	return p
}

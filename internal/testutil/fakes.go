// fakes.go - In-memory collaborators for controller tests
package testutil

import (
	"context"
	"sync"

	"github.com/memorial-automator/client/internal/models"
)

// FakeClipboard records copied text or fails with Err.
type FakeClipboard struct {
	mu     sync.Mutex
	Err    error
	copied []string
}

func (f *FakeClipboard) WriteText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.copied = append(f.copied, text)
	return nil
}

// Copied returns every text written so far.
func (f *FakeClipboard) Copied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.copied...)
}

// RecordingRenderer keeps every view it is asked to render.
type RecordingRenderer struct {
	mu    sync.Mutex
	views []models.View
}

func (r *RecordingRenderer) Render(v models.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

// Views returns the rendered views in order.
func (r *RecordingRenderer) Views() []models.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.View(nil), r.views...)
}

// Count returns the number of rendered views.
func (r *RecordingRenderer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Last returns the most recent view.
func (r *RecordingRenderer) Last() (models.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return models.View{}, false
	}
	return r.views[len(r.views)-1], true
}

// PDF returns a small valid-looking selected file.
func PDF(name string) *models.SelectedFile {
	return models.FileFromBytes(name, []byte("%PDF-1.4\n%test\n"))
}

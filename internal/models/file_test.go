package models

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planta.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	f, err := FileFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "planta.pdf", f.Name)
	assert.Equal(t, int64(8), f.Size)

	rc, err := f.Source.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = FileFromPath(dir)
	assert.Error(t, err)
	_, err = FileFromPath(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestNewSubmissionRequest_DefaultsClientID(t *testing.T) {
	file := FileFromBytes("a.pdf", []byte("x"))

	req := NewSubmissionRequest(file, FormFields{IncludeImages: true})
	assert.Equal(t, DefaultClientID, req.ClientID)
	assert.True(t, req.IncludeImages)
	assert.Same(t, file, req.File)

	req = NewSubmissionRequest(file, FormFields{ClientID: "acme", CustomInstructions: "x"})
	assert.Equal(t, "acme", req.ClientID)
	assert.Equal(t, "x", req.CustomInstructions)
}

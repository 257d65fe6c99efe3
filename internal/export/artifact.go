// Package export produces the downloadable artifacts of a memorial result.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	TextFileName = "memorial_descritivo.txt"
	JSONFileName = "memorial_dados_completos.json"

	TextContentType = "text/plain; charset=utf-8"
	JSONContentType = "application/json"
)

// Artifact is a file produced client-side for download.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// TextArtifact wraps the generated text verbatim.
func TextArtifact(text string) *Artifact {
	return &Artifact{
		FileName:    TextFileName,
		ContentType: TextContentType,
		Data:        []byte(text),
	}
}

// JSONArtifact pretty-prints a JSON document with a two-space indent.
func JSONArtifact(raw []byte) (*Artifact, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting result: %w", err)
	}
	return &Artifact{
		FileName:    JSONFileName,
		ContentType: JSONContentType,
		Data:        buf.Bytes(),
	}, nil
}

// DirWriter saves artifacts into a directory.
type DirWriter struct {
	dir string
}

// NewDirWriter creates a DirWriter, creating the directory if needed.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

// Write stores the artifact under its file name and returns the full path.
func (w *DirWriter) Write(a *Artifact) (string, error) {
	path := filepath.Join(w.dir, a.FileName)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", a.FileName, err)
	}
	return path, nil
}

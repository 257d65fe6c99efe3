package models

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource opens the binary content of a candidate document.
type FileSource interface {
	Open() (io.ReadCloser, error)
}

// Releaser is implemented by sources that hold resources (staged uploads)
// which must be freed once the file is no longer selected.
type Releaser interface {
	Release() error
}

// SelectedFile represents the user's chosen candidate document.
type SelectedFile struct {
	Name   string     `json:"name"`
	Size   int64      `json:"size"`
	Source FileSource `json:"-"`
}

// FileInfo is the display form of a selected file.
type FileInfo struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	FormattedSize string `json:"formattedSize"`
}

type pathSource string

func (p pathSource) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

type bytesSource []byte

func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FileFromPath builds a SelectedFile backed by a file on disk.
func FileFromPath(path string) (*SelectedFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &SelectedFile{
		Name:   filepath.Base(path),
		Size:   st.Size(),
		Source: pathSource(path),
	}, nil
}

// FileFromBytes builds a SelectedFile backed by an in-memory buffer.
func FileFromBytes(name string, data []byte) *SelectedFile {
	return &SelectedFile{
		Name:   name,
		Size:   int64(len(data)),
		Source: bytesSource(data),
	}
}

// Package storage stages uploaded documents on disk for the lifetime of a
// selection. Multipart temp files disappear when the upload request ends,
// so the server copies them here first.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memorial-automator/client/internal/models"
)

// StoredFile is the metadata of a staged document.
type StoredFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store defines the interface for staged file storage.
type Store interface {
	Save(name string, r io.Reader) (*StoredFile, error)
	Get(id string) (*StoredFile, error)
	List(limit int) ([]*StoredFile, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	files     map[string]*StoredFile
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{
		uploadDir: uploadDir,
		files:     make(map[string]*StoredFile),
	}, nil
}

// Save writes r to a new staged file.
func (s *LocalStore) Save(name string, r io.Reader) (*StoredFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &StoredFile{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return info, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*StoredFile, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Open returns a reader over the staged content.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return os.Open(filepath.Join(s.uploadDir, id))
}

// Delete removes a staged file.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// SelectedFile wraps a staged file for the workflow controller. Releasing
// the selection deletes the staged copy.
func SelectedFile(s Store, info *StoredFile) *models.SelectedFile {
	return &models.SelectedFile{
		Name:   info.Name,
		Size:   info.Size,
		Source: &stagedSource{store: s, id: info.ID},
	}
}

type stagedSource struct {
	store Store
	id    string
}

func (src *stagedSource) Open() (io.ReadCloser, error) {
	return src.store.Open(src.id)
}

func (src *stagedSource) Release() error {
	return src.store.Delete(src.id)
}

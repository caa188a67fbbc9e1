package parsers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps parsers.json on the local filesystem.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name returns the backend identifier.
func (s *FileStore) Name() string { return "file" }

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty document.
func (s *FileStore) Load(ctx context.Context) (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, nil
		}
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	return doc, nil
}

// Save writes the document to a temporary file and renames it into place.
func (s *FileStore) Save(ctx context.Context, doc Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".parsers-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}

var _ Store = (*FileStore)(nil)

package parsers

import (
	"context"
	"fmt"
)

// Store persists the whole parsers.json document. Every save replaces the
// remote copy.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	// Name identifies the backend in logs and errors.
	Name() string
}

// SyncError reports a failed load or save against a backend.
type SyncError struct {
	Backend    string
	Op         string // "load" or "save"
	StatusCode int    // HTTP status, when the backend is remote
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Backend, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

package parsers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveFiles is the slice of the Drive API the store needs.
type DriveFiles interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Update(ctx context.Context, fileID string, content io.Reader) error
}

// DriveConfig addresses parsers.json as a Google Drive file.
type DriveConfig struct {
	FileID          string
	CredentialsFile string
	APIKey          string
}

// DriveStore keeps parsers.json as a Google Drive file.
type DriveStore struct {
	fileID string
	files  DriveFiles
}

// NewDriveStore connects to the Drive API with a service-account credentials
// file or, for public read-only files, an API key.
func NewDriveStore(ctx context.Context, cfg DriveConfig) (*DriveStore, error) {
	if cfg.FileID == "" {
		return nil, fmt.Errorf("drive file id is required")
	}
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(drive.DriveFileScope))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewDriveStoreWithFiles(cfg.FileID, &driveService{files: srv.Files}), nil
}

// NewDriveStoreWithFiles creates a store over an existing DriveFiles.
func NewDriveStoreWithFiles(fileID string, files DriveFiles) *DriveStore {
	return &DriveStore{fileID: fileID, files: files}
}

// Name returns the backend identifier.
func (s *DriveStore) Name() string { return "drive" }

// Load downloads the file. A missing file is an empty document.
func (s *DriveStore) Load(ctx context.Context) (Document, error) {
	rc, err := s.files.Download(ctx, s.fileID)
	if err != nil {
		code := driveStatus(err)
		if code == http.StatusNotFound {
			return Document{}, nil
		}
		return nil, &SyncError{Backend: s.Name(), Op: "load", StatusCode: code, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	return doc, nil
}

// Save replaces the file content.
func (s *DriveStore) Save(ctx context.Context, doc Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	if err := s.files.Update(ctx, s.fileID, bytes.NewReader(data)); err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", StatusCode: driveStatus(err), Err: err}
	}
	return nil
}

func driveStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// driveService adapts *drive.FilesService to DriveFiles.
type driveService struct {
	files *drive.FilesService
}

func (d *driveService) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d *driveService) Update(ctx context.Context, fileID string, content io.Reader) error {
	_, err := d.files.Update(fileID, &drive.File{}).
		Media(content, googleapi.ContentType("application/json")).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

var _ Store = (*DriveStore)(nil)

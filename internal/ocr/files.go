package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	// ErrUnsupportedType is returned for files whose extension the OCR API
	// does not accept.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("empty file")
)

// mimeTypes lists the accepted extensions and the content type sent for each.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
}

// SupportedExtensions returns the accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeTypes))
	for ext := range mimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ContentTypeFor returns the MIME type sent for a file name.
// Unknown extensions map to application/octet-stream.
func ContentTypeFor(name string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// File is one uploaded document.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	// Pages is the page count for PDFs and 1 for images.
	Pages int
}

// FileInfo describes a submitted file without its content.
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Pages       int    `json:"pages"`
}

// NewFile validates an upload and prepares it for submission.
func NewFile(name string, data []byte) (*File, error) {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := mimeTypes[ext]; !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedType, name, strings.Join(SupportedExtensions(), ", "))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}

	f := &File{
		Name:        name,
		ContentType: ContentTypeFor(name),
		Data:        data,
		Pages:       1,
	}
	if ext == ".pdf" {
		pages, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read PDF %s: %w", name, err)
		}
		f.Pages = pages
	}
	return f, nil
}

// Size returns the file size in bytes.
func (f *File) Size() int {
	return len(f.Data)
}

// Info returns the metadata recorded with a run.
func (f *File) Info() FileInfo {
	return FileInfo{
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        f.Size(),
		Pages:       f.Pages,
	}
}

// FetchTimeout bounds a single FetchFile download.
const FetchTimeout = 30 * time.Second

// ErrFetch is returned when a document URL cannot be downloaded.
var ErrFetch = errors.New("failed to fetch document")

// FetchFile downloads a document by URL and validates it like an upload.
// The file is named after the last path segment; a URL without one is
// named from the response content type. Bodies over maxBytes are rejected.
func FetchFile(ctx context.Context, client *http.Client, rawURL string, maxBytes int64) (*File, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrFetch, rawURL)
	}
	if client == nil {
		client = &http.Client{Timeout: FetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, u.Redacted(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetch, u.Redacted(), resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, u.Redacted(), err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s: larger than %d bytes", ErrFetch, u.Redacted(), maxBytes)
	}

	name := path.Base(u.Path)
	if filepath.Ext(name) == "" {
		name = "download" + extensionFor(resp.Header.Get("Content-Type"))
	}
	return NewFile(name, data)
}

// extensionFor maps a response content type back to an accepted extension.
func extensionFor(contentType string) string {
	ct := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, ext := range SupportedExtensions() {
		if mimeTypes[ext] == ct {
			return ext
		}
	}
	return ""
}

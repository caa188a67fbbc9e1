package parsers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGitHubAPIURL  = "https://api.github.com"
	DefaultCommitMessage = "Update parsers.json file"
)

// GitHubConfig addresses parsers.json in a GitHub repository.
type GitHubConfig struct {
	APIURL     string
	Owner      string
	Repo       string
	Path       string
	Branch     string
	Token      string
	Message    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GitHubStore keeps parsers.json in a repository through the contents API.
type GitHubStore struct {
	apiURL  string
	owner   string
	repo    string
	path    string
	branch  string
	token   string
	message string
	client  *http.Client
}

// NewGitHubStore creates a GitHub-backed store.
func NewGitHubStore(cfg GitHubConfig) *GitHubStore {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultGitHubAPIURL
	}
	if cfg.Path == "" {
		cfg.Path = "parsers.json"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Message == "" {
		cfg.Message = DefaultCommitMessage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &GitHubStore{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		path:    strings.TrimLeft(cfg.Path, "/"),
		branch:  cfg.Branch,
		token:   cfg.Token,
		message: cfg.Message,
		client:  cfg.HTTPClient,
	}
}

// Name returns the backend identifier.
func (s *GitHubStore) Name() string { return "github" }

func (s *GitHubStore) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.apiURL,
		url.PathEscape(s.owner), url.PathEscape(s.repo), s.path)
}

type githubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type githubPut struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type githubError struct {
	Message string `json:"message"`
}

// Load downloads and decodes the document. A missing file is an empty
// document.
func (s *GitHubStore) Load(ctx context.Context) (Document, error) {
	content, found, err := s.fetch(ctx)
	if err != nil {
		return nil, s.syncErr("load", err)
	}
	if !found {
		return Document{}, nil
	}
	data, err := decodeContent(content)
	if err != nil {
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, &SyncError{Backend: s.Name(), Op: "load", Err: err}
	}
	return doc, nil
}

// Save uploads the document, replacing the current version. The current
// blob sha is fetched first; a missing file is created.
func (s *GitHubStore) Save(ctx context.Context, doc Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}

	current, found, err := s.fetch(ctx)
	if err != nil {
		return s.syncErr("save", err)
	}
	payload := githubPut{
		Message: s.message,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  s.branch,
	}
	if found {
		payload.SHA = current.SHA
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	req, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(), bytes.NewReader(body))
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &SyncError{Backend: s.Name(), Op: "save", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &SyncError{Backend: s.Name(), Op: "save", StatusCode: resp.StatusCode, Err: githubMessage(respBody)}
	}
	return nil
}

// statusError carries a non-success response out of fetch.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }

func (s *GitHubStore) syncErr(op string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return &SyncError{Backend: s.Name(), Op: op, StatusCode: se.code, Err: se.err}
	}
	return &SyncError{Backend: s.Name(), Op: op, Err: err}
}

// fetch reads the file metadata and content. found is false on 404.
func (s *GitHubStore) fetch(ctx context.Context) (*githubContent, bool, error) {
	u := s.contentsURL() + "?ref=" + url.QueryEscape(s.branch)
	req, err := s.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, &statusError{code: resp.StatusCode, err: githubMessage(body)}
	}

	var content githubContent
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, false, fmt.Errorf("failed to decode contents response: %w", err)
	}
	return &content, true, nil
}

func (s *GitHubStore) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}
	return req, nil
}

func decodeContent(c *githubContent) ([]byte, error) {
	if c.Encoding != "" && c.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q", c.Encoding)
	}
	// The API wraps base64 content at 60 columns.
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(c.Content)
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return data, nil
}

func githubMessage(body []byte) error {
	var ge githubError
	if json.Unmarshal(body, &ge) == nil && ge.Message != "" {
		return errors.New(ge.Message)
	}
	if len(body) == 0 {
		return errors.New("empty response")
	}
	return errors.New(strings.TrimSpace(string(body)))
}

var _ Store = (*GitHubStore)(nil)

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

const (
	DefaultEndpoint   = "https://prod-ml.fracto.tech/upload-file-smart-ocr"
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second

	// maxErrorBody bounds the response text kept on HTTP failures.
	maxErrorBody = 512
)

var (
	// ErrNoFiles is returned when a request carries no files.
	ErrNoFiles = errors.New("no files to submit")
	// ErrMissingCredentials is returned when the API key or app id is empty.
	ErrMissingCredentials = errors.New("api key and parser app id are required")
)

// Credentials identify the caller and route the request to a parser app.
type Credentials struct {
	APIKey string
	AppID  string
}

// Request is one submission: every file in a single call.
type Request struct {
	Files         []*File
	Credentials   Credentials
	ExtraAccuracy bool
}

// Validate checks the request before anything is sent.
func (r *Request) Validate() error {
	if len(r.Files) == 0 {
		return ErrNoFiles
	}
	if strings.TrimSpace(r.Credentials.APIKey) == "" || strings.TrimSpace(r.Credentials.AppID) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Submitter sends documents to the OCR API.
type Submitter interface {
	// Submit returns a Result for every completed exchange, successful or
	// not. The error is reserved for invalid requests and cancellation.
	Submit(ctx context.Context, req *Request) (*Result, error)
}

// Config holds configuration for the OCR client.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int // total attempts
	RetryDelay time.Duration
	ClientIP   string
	Location   string
	UserAgent  string
	HTTPClient *http.Client // overrides Timeout when set
	Limiter    *Limiter     // nil submits without pacing
	Logger     *slog.Logger
}

// Client implements Submitter over the OCR API's multipart upload endpoint.
type Client struct {
	endpoint   string
	maxRetries int
	retryDelay time.Duration
	clientIP   string
	location   string
	userAgent  string
	client     *http.Client
	limiter    *Limiter
	logger     *slog.Logger
}

// NewClient creates a new OCR API client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.ClientIP == "" {
		cfg.ClientIP = "127.0.0.1"
	}
	if cfg.Location == "" {
		cfg.Location = "delhi"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Dummy-device-testing11"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		clientIP:   cfg.ClientIP,
		location:   cfg.Location,
		userAgent:  cfg.UserAgent,
		client:     cfg.HTTPClient,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger,
	}
}

// Limiter returns the client's rate limiter, or nil.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// attemptError carries the result of a failed attempt through retry.Do.
type attemptError struct {
	result    *Result
	transient bool
}

func (e *attemptError) Error() string {
	return e.result.Describe()
}

func isTransient(err error) bool {
	var ae *attemptError
	return errors.As(err, &ae) && ae.transient
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}

// Submit posts every file of req in one multipart request. Timeouts, 408,
// 429 and 5xx responses are retried with a fixed delay; other failures end
// the submission immediately.
func (c *Client) Submit(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := c.encode(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	attempts := 0
	var last *Result

	err = retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			attempts++
			res, transient := c.attempt(ctx, body, contentType, req.Credentials.APIKey)
			last = res
			if res.Outcome == OutcomeSuccess {
				return nil
			}
			if res.StatusCode == http.StatusTooManyRequests {
				c.limiter.Throttled()
			}
			return &attemptError{result: res, transient: transient}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("ocr request failed, retrying",
				"attempt", n+1,
				"extra_accuracy", req.ExtraAccuracy,
				"error", err)
		}),
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if last == nil {
		// retry.Do only skips the first call when the context is already done.
		return nil, fmt.Errorf("ocr request not attempted: %w", err)
	}

	last.Attempts = attempts
	last.Elapsed = time.Since(start)
	if err != nil {
		c.logger.Error("ocr request failed",
			"attempts", attempts,
			"extra_accuracy", req.ExtraAccuracy,
			"error", err)
	}
	return last, nil
}

// attempt performs one HTTP exchange and reports whether a failure is worth
// retrying.
func (c *Client) attempt(ctx context.Context, body []byte, contentType, apiKey string) (*Result, bool) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return transportFailure("failed to create request: %v", err), false
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("x-api-key", apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		timeout := errors.As(err, &netErr) && netErr.Timeout()
		if timeout {
			return transportFailure("request timed out: %v", err), true
		}
		return transportFailure("request failed: %v", err), false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		var netErr net.Error
		timeout := errors.As(err, &netErr) && netErr.Timeout()
		return transportFailure("failed to read response: %v", err), timeout
	}

	if resp.StatusCode != http.StatusOK {
		return httpFailure(resp.StatusCode, truncate(string(respBody), maxErrorBody)), transientStatus(resp.StatusCode)
	}

	doc, err := jsondiff.DecodeBytes(respBody)
	if err != nil {
		return transportFailure("invalid JSON in response: %v", err), false
	}
	return successResult(doc), false
}

// encode builds the multipart body: one "file" part per document plus the
// routing and client identity fields.
func (c *Client) encode(req *Request) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range req.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	fields := []struct{ name, value string }{
		{"parserApp", req.Credentials.AppID},
		{"user_ip", c.clientIP},
		{"location", c.location},
		{"user_agent", c.userAgent},
		{"extra_accuracy", strconv.FormatBool(req.ExtraAccuracy)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify interface
var _ Submitter = (*Client)(nil)

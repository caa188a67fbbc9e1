package ocr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

// MockSubmitter is a Submitter for testing. It answers with a fixed result
// per extra-accuracy setting.
type MockSubmitter struct {
	// Configurable behavior
	Latency      time.Duration
	WithExtra    *Result
	WithoutExtra *Result
	Err          error

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []*Request
}

// NewMockSubmitter creates a mock that answers both calls with the given
// documents.
func NewMockSubmitter(withExtra, withoutExtra any) *MockSubmitter {
	return &MockSubmitter{
		WithExtra:    successResult(withExtra),
		WithoutExtra: successResult(withoutExtra),
	}
}

// NewMockSubmitterJSON is NewMockSubmitter for raw JSON documents.
func NewMockSubmitterJSON(withExtra, withoutExtra string) (*MockSubmitter, error) {
	a, err := jsondiff.DecodeBytes([]byte(withExtra))
	if err != nil {
		return nil, err
	}
	b, err := jsondiff.DecodeBytes([]byte(withoutExtra))
	if err != nil {
		return nil, err
	}
	return NewMockSubmitter(a, b), nil
}

// Submit records the request and returns the configured result.
func (m *MockSubmitter) Submit(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m.requestCount.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	src := m.WithoutExtra
	if req.ExtraAccuracy {
		src = m.WithExtra
	}
	if src == nil {
		return transportFailure("mock has no result configured"), nil
	}
	res := *src
	if res.Attempts == 0 {
		res.Attempts = 1
	}
	return &res, nil
}

// RequestCount returns the number of submissions received.
func (m *MockSubmitter) RequestCount() int64 {
	return m.requestCount.Load()
}

// Requests returns the submissions received, in order.
func (m *MockSubmitter) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockHTTPFailure builds a failed result for configuring mocks.
func MockHTTPFailure(status int, body string) *Result {
	return httpFailure(status, body)
}

// MockTransportFailure builds a transport failure for configuring mocks.
func MockTransportFailure(message string) *Result {
	return transportFailure("%s", message)
}

// Verify interface
var _ Submitter = (*MockSubmitter)(nil)

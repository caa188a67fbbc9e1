package ocr

import (
	"fmt"
	"time"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

// Outcome classifies a submission.
type Outcome string

const (
	// OutcomeSuccess means the API answered 200 with a JSON document.
	OutcomeSuccess Outcome = "success"
	// OutcomeHTTPFailure means the API answered with a non-200 status.
	OutcomeHTTPFailure Outcome = "http_failure"
	// OutcomeTransportFailure means no usable answer was received.
	OutcomeTransportFailure Outcome = "transport_failure"
)

// Result is the outcome of one submission. Exactly one of Document,
// StatusCode or Message is meaningful, selected by Outcome.
type Result struct {
	Outcome    Outcome            `json:"outcome"`
	Document   *jsondiff.Document `json:"document,omitempty"`
	StatusCode int                `json:"status_code,omitempty"`
	// Body holds the start of the response body of an HTTP failure.
	Body     string        `json:"body,omitempty"`
	Message  string        `json:"message,omitempty"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
}

// OK reports whether the submission produced a document.
func (r *Result) OK() bool {
	return r != nil && r.Outcome == OutcomeSuccess && r.Document != nil
}

// Value returns the parsed document, or nil when the submission failed.
func (r *Result) Value() any {
	if !r.OK() {
		return nil
	}
	return r.Document.Value
}

// Describe renders the outcome for logs and error displays.
func (r *Result) Describe() string {
	if r == nil {
		return "no result"
	}
	switch r.Outcome {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPFailure:
		if r.Body != "" {
			return fmt.Sprintf("HTTP %d: %s", r.StatusCode, r.Body)
		}
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	default:
		return r.Message
	}
}

func successResult(doc any) *Result {
	return &Result{Outcome: OutcomeSuccess, Document: &jsondiff.Document{Value: doc}}
}

func httpFailure(status int, body string) *Result {
	return &Result{Outcome: OutcomeHTTPFailure, StatusCode: status, Body: body}
}

func transportFailure(format string, args ...any) *Result {
	return &Result{Outcome: OutcomeTransportFailure, Message: fmt.Sprintf(format, args...)}
}

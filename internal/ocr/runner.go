package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

// Status is the overall state of a run.
type Status string

const (
	// StatusCompared means both submissions succeeded and were compared.
	StatusCompared Status = "compared"
	// StatusFailed means at least one submission did not produce a document.
	StatusFailed Status = "failed"
)

// RunRequest describes one dual submission.
type RunRequest struct {
	Parser      string
	Credentials Credentials
	Files       []*File
	// Expected is an optional sample response compared against the
	// extra-accuracy result.
	Expected        any
	Separator       string
	EmptyContainers bool

	// ParserExtraAccuracy is the parser's own extra_accuracy setting. Both
	// submissions are made regardless; the setting is recorded with the run.
	ParserExtraAccuracy bool
}

// Run is the record of a dual submission and its comparison.
type Run struct {
	ID              string             `json:"id"`
	Parser          string             `json:"parser"`
	Files           []FileInfo         `json:"files"`
	Status          Status             `json:"status"`
	StartedAt       time.Time          `json:"started_at"`
	Duration        time.Duration      `json:"duration"`
	Separator       string             `json:"separator"`
	EmptyContainers bool               `json:"empty_containers,omitempty"`
	WithExtra       *Result            `json:"with_extra"`
	WithoutExtra    *Result            `json:"without_extra"`
	Expected        *jsondiff.Document `json:"expected,omitempty"`

	// ParserExtraAccuracy is the parser's extra_accuracy setting at run time.
	ParserExtraAccuracy bool `json:"parser_extra_accuracy"`

	// Derived from the documents above; recomputed when a run is decoded.
	Comparison         *jsondiff.Result `json:"comparison,omitempty"`
	ExpectedComparison *jsondiff.Result `json:"expected_comparison,omitempty"`
}

// Options returns the flattening options the run was compared with.
func (r *Run) Options() []jsondiff.Option {
	return []jsondiff.Option{
		jsondiff.WithSeparator(r.Separator),
		jsondiff.WithEmptyContainers(r.EmptyContainers),
	}
}

// Recompare rebuilds both comparisons from the stored documents.
func (r *Run) Recompare() {
	r.Comparison = nil
	r.ExpectedComparison = nil
	if r.WithExtra.OK() && r.WithoutExtra.OK() {
		r.Comparison = jsondiff.Compare(r.WithExtra.Value(), r.WithoutExtra.Value(), r.Options()...)
	}
	if r.Expected != nil && r.WithExtra.OK() {
		r.ExpectedComparison = jsondiff.Compare(r.Expected.Value, r.WithExtra.Value(), r.Options()...)
	}
}

// UnmarshalJSON decodes a stored run and recomputes its comparisons.
func (r *Run) UnmarshalJSON(data []byte) error {
	type plain Run
	var aux struct {
		plain
		Comparison         json.RawMessage `json:"comparison,omitempty"`
		ExpectedComparison json.RawMessage `json:"expected_comparison,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Run(aux.plain)
	if r.Separator == "" {
		r.Separator = jsondiff.DefaultSeparator
	}
	r.Recompare()
	return nil
}

// ErrInvalidRun is returned for run requests that cannot be submitted.
var ErrInvalidRun = errors.New("invalid run request")

// Runner submits a request with and without extra accuracy and compares the
// two responses.
type Runner struct {
	submitter Submitter
	logger    *slog.Logger
}

// Limiter returns the submitter's rate limiter, or nil when it has none.
func (r *Runner) Limiter() *Limiter {
	if l, ok := r.submitter.(interface{ Limiter() *Limiter }); ok {
		return l.Limiter()
	}
	return nil
}

// NewRunner creates a runner over the given submitter.
func NewRunner(submitter Submitter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{submitter: submitter, logger: logger}
}

// Run submits sequentially, first with extra accuracy and then without, and
// compares the results when both succeed. The extra-accuracy document is the
// reference.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*Run, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRun, ErrNoFiles)
	}
	if req.Separator == "" {
		req.Separator = jsondiff.DefaultSeparator
	}

	run := &Run{
		ID:              uuid.New().String(),
		Parser:          req.Parser,
		StartedAt:       time.Now().UTC(),
		Separator:       req.Separator,
		EmptyContainers: req.EmptyContainers,

		ParserExtraAccuracy: req.ParserExtraAccuracy,
	}
	for _, f := range req.Files {
		run.Files = append(run.Files, f.Info())
	}
	if req.Expected != nil {
		run.Expected = &jsondiff.Document{Value: req.Expected}
	}

	logger := r.logger.With("run_id", run.ID, "parser", req.Parser)
	logger.Info("starting dual run", "files", len(req.Files), "parser_extra_accuracy", req.ParserExtraAccuracy)
	if !req.ParserExtraAccuracy {
		logger.Warn("parser does not enable extra accuracy, submitting both variants anyway")
	}

	for _, extra := range []bool{true, false} {
		res, err := r.submitter.Submit(ctx, &Request{
			Files:         req.Files,
			Credentials:   req.Credentials,
			ExtraAccuracy: extra,
		})
		if err != nil {
			if errors.Is(err, ErrNoFiles) || errors.Is(err, ErrMissingCredentials) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRun, err)
			}
			return nil, fmt.Errorf("submission (extra_accuracy=%t) failed: %w", extra, err)
		}
		if extra {
			run.WithExtra = res
		} else {
			run.WithoutExtra = res
		}
		if !res.OK() {
			logger.Warn("submission failed", "extra_accuracy", extra, "result", res.Describe())
		}
	}

	run.Recompare()
	run.Status = StatusFailed
	if run.Comparison != nil {
		run.Status = StatusCompared
	}
	run.Duration = time.Since(run.StartedAt)

	if run.Comparison != nil {
		s := run.Comparison.Summary()
		logger.Info("dual run compared",
			"paths", s.Total,
			"matches", s.Matches,
			"mismatches", s.Mismatches,
			"duration", run.Duration)
	} else {
		logger.Info("dual run finished without comparison", "duration", run.Duration)
	}
	return run, nil
}

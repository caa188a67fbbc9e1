// Package report renders comparison results for export.
//
// A run can be exported as a CSV table, an annotated diff (plain text or
// HTML), a JSON merge patch from the reference document to the candidate,
// or a PDF report rendered with pdfcpu.
// Structured JSON and YAML exports go through the api output helpers.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	nsfdiff "github.com/nsf/jsondiff"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

// Format is an export format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatDiff  Format = "diff"
	FormatHTML  Format = "html"
	FormatPatch Format = "patch"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPDF   Format = "pdf"
)

// Formats lists every export format.
var Formats = []Format{FormatCSV, FormatDiff, FormatHTML, FormatPatch, FormatJSON, FormatYAML, FormatPDF}

// View selects which rows a table export contains.
type View string

const (
	ViewTable      View = "table"
	ViewMismatches View = "mismatches"
)

var (
	// ErrUnknownFormat is returned for unsupported export formats.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrUnknownView is returned for unsupported table views.
	ErrUnknownView = errors.New("unknown view")
)

// ParseFormat parses a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatCSV, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ParseView parses a view name. Empty means the full table.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewTable:
		return ViewTable, nil
	case ViewMismatches:
		return ViewMismatches, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// ContentType returns the HTTP content type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPatch:
		return "application/merge-patch+json"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension for a format.
func (f Format) Extension() string {
	switch f {
	case FormatDiff:
		return "txt"
	case FormatPatch:
		return "json"
	default:
		return string(f)
	}
}

// Column headers for the two table views.
var (
	TableHeader      = []string{"Attribute", "Result with Extra Accuracy", "Result without Extra Accuracy", "Comparison"}
	MismatchesHeader = []string{"Field", "Result with Extra Accuracy", "Result without Extra Accuracy"}
)

// Labeler maps a flattened path to its display label.
type Labeler func(path string) string

// Labels builds a Labeler from a field mapping. Unmapped paths keep their
// own name.
func Labels(mappings map[string]string) Labeler {
	return func(path string) string {
		if l, ok := mappings[path]; ok && l != "" {
			return l
		}
		return path
	}
}

// WriteCSV writes the comparison as CSV. A nil label keeps raw paths.
func WriteCSV(w io.Writer, res *jsondiff.Result, view View, label Labeler) error {
	if res == nil {
		return errors.New("no comparison to export")
	}
	if label == nil {
		label = Labels(nil)
	}

	cw := csv.NewWriter(w)
	switch view {
	case ViewTable, "":
		if err := cw.Write(TableHeader); err != nil {
			return err
		}
		for _, row := range res.Table() {
			rec := []string{
				label(row.Path),
				jsondiff.FormatValue(row.Reference),
				jsondiff.FormatValue(row.Candidate),
				row.Verdict.Symbol(),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	case ViewMismatches:
		if err := cw.Write(MismatchesHeader); err != nil {
			return err
		}
		for _, row := range res.Mismatches() {
			rec := []string{
				label(row.Path),
				jsondiff.FormatValue(row.Reference),
				jsondiff.FormatValue(row.Candidate),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	cw.Flush()
	return cw.Error()
}

// DiffResult is an annotated structural diff of two documents.
type DiffResult struct {
	// Outcome is one of FullMatch, SupersetMatch or NoMatch.
	Outcome string
	Text    string
}

// Matched reports whether the documents are identical.
func (d DiffResult) Matched() bool {
	return d.Outcome == nsfdiff.FullMatch.String()
}

// Diff renders an annotated diff of candidate against reference. Object
// keys keep document order. With html set, the output is HTML markup.
func Diff(reference, candidate any, html bool) (DiffResult, error) {
	a, err := json.Marshal(reference)
	if err != nil {
		return DiffResult{}, fmt.Errorf("failed to encode reference: %w", err)
	}
	b, err := json.Marshal(candidate)
	if err != nil {
		return DiffResult{}, fmt.Errorf("failed to encode candidate: %w", err)
	}

	opts := nsfdiff.DefaultConsoleOptions()
	if html {
		opts = nsfdiff.DefaultHTMLOptions()
	} else {
		// Plain text: drop ANSI colors.
		opts.Added = nsfdiff.Tag{Begin: "+", End: ""}
		opts.Removed = nsfdiff.Tag{Begin: "-", End: ""}
		opts.Changed = nsfdiff.Tag{Begin: "~", End: ""}
		opts.Skipped = nsfdiff.Tag{}
	}
	opts.Indent = "  "

	d, text := nsfdiff.Compare(a, b, &opts)
	switch d {
	case nsfdiff.FirstArgIsInvalidJson, nsfdiff.SecondArgIsInvalidJson, nsfdiff.BothArgsAreInvalidJson:
		return DiffResult{}, fmt.Errorf("diff failed: %s", d)
	}
	return DiffResult{Outcome: d.String(), Text: text}, nil
}

// MergePatch returns the RFC 7386 merge patch that turns reference into
// candidate.
func MergePatch(reference, candidate any) ([]byte, error) {
	a, err := json.Marshal(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reference: %w", err)
	}
	b, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidate: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch: %w", err)
	}
	return patch, nil
}

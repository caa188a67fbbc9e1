package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/ocr"
)

// ErrNoComparison is returned when a run has nothing to export because one
// of its submissions failed.
var ErrNoComparison = errors.New("run has no comparison")

// Options controls a run export.
type Options struct {
	Format Format
	View   View
	// Label relabels paths in table exports. Nil keeps raw paths.
	Label Labeler
}

// Export writes a run in the requested format. Table and diff formats need
// both submissions to have succeeded. JSON and YAML export the whole run.
func Export(w io.Writer, run *ocr.Run, opts Options) error {
	if run == nil {
		return errors.New("nil run")
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}

	switch opts.Format {
	case FormatJSON:
		return api.OutputTo(w, api.OutputFormatJSON, run)
	case FormatYAML:
		return api.OutputTo(w, api.OutputFormatYAML, run)
	}

	if run.Comparison == nil {
		return fmt.Errorf("%w: %s", ErrNoComparison, run.ID)
	}
	ref, cand := run.WithExtra.Value(), run.WithoutExtra.Value()

	switch opts.Format {
	case FormatCSV:
		return WriteCSV(w, run.Comparison, opts.View, opts.Label)
	case FormatDiff, FormatHTML:
		d, err := Diff(ref, cand, opts.Format == FormatHTML)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, d.Text)
		return err
	case FormatPDF:
		files := make([]string, len(run.Files))
		for i, f := range run.Files {
			files[i] = f.Name
		}
		return WritePDF(w, PDFReport{
			Title:      fmt.Sprintf("ocrdiff run %s (parser %s)", run.ID, run.Parser),
			Files:      files,
			Reference:  ref,
			Candidate:  cand,
			Comparison: run.Comparison,
			Label:      opts.Label,
		})
	case FormatPatch:
		patch, err := MergePatch(ref, cand)
		if err != nil {
			return err
		}
		_, err = w.Write(append(patch, '\n'))
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

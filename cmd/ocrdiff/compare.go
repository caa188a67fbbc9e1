package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/internal/jsondiff"
	"github.com/parserlab/ocrdiff/internal/report"
)

// formatTable renders an aligned terminal table. It is only offered by the
// local compare command.
const formatTable = "table"

// errDocumentsDiffer is returned with --fail-on-diff when any path differs.
var errDocumentsDiffer = errors.New("documents differ")

type compareOptions struct {
	format          string
	view            string
	separator       string
	emptyContainers bool
	mappings        map[string]string
	attachments     []string // images embedded in pdf output
}

// compareOutput is the structured form of a local comparison.
type compareOutput struct {
	Reference  string                 `json:"reference"`
	Candidate  string                 `json:"candidate"`
	Separator  string                 `json:"separator"`
	Summary    jsondiff.Summary       `json:"summary"`
	Rows       []jsondiff.Row         `json:"rows,omitempty"`
	Mismatches []jsondiff.MismatchRow `json:"mismatches,omitempty"`
}

var (
	compareOpts compareOptions
	failOnDiff  bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <reference.json> <candidate.json>",
	Short: "Compare two JSON documents locally",
	Long: `Flatten two JSON documents and compare them leaf by leaf without a
server. The reference decides which paths are compared; paths absent from
the candidate are reported as N/A.

Formats:
  table  aligned terminal table (default)
  csv    comparison table as CSV
  diff   structural text diff
  html   structural HTML diff
  patch  JSON merge patch turning the reference into the candidate
  json   rows and summary as JSON
  yaml   rows and summary as YAML
  pdf    report with both documents, the table and the mismatches;
         --attach adds the scanned pages (jpg, png, tiff)`,
	Example: `  ocrdiff compare with-extra.json without-extra.json
  ocrdiff compare a.json b.json --view mismatches --map "total=Total Amount"
  ocrdiff compare a.json b.json --format csv > report.csv
  ocrdiff compare a.json b.json --format pdf --attach scan.png > report.pdf`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cand, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		res, err := compareFiles(cmd.OutOrStdout(), args[0], args[1], ref, cand, compareOpts)
		if err != nil {
			return err
		}
		if failOnDiff && !res.Matched() {
			return errDocumentsDiffer
		}
		return nil
	},
}

// compareFiles compares two encoded documents and writes the result to w.
func compareFiles(w io.Writer, refName, candName string, refData, candData []byte, opts compareOptions) (*jsondiff.Result, error) {
	view, err := report.ParseView(opts.view)
	if err != nil {
		return nil, err
	}
	ref, err := jsondiff.DecodeBytes(refData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", refName, err)
	}
	cand, err := jsondiff.DecodeBytes(candData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", candName, err)
	}

	sep := opts.separator
	if sep == "" {
		sep = jsondiff.DefaultSeparator
	}
	res := jsondiff.Compare(ref, cand, jsondiff.WithSeparator(sep), jsondiff.WithEmptyContainers(opts.emptyContainers))
	label := report.Labels(opts.mappings)

	if opts.format == "" || opts.format == formatTable {
		_, err := io.WriteString(w, renderTable(res, view, label))
		return res, err
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}
	switch format {
	case report.FormatCSV:
		err = report.WriteCSV(w, res, view, label)
	case report.FormatDiff, report.FormatHTML:
		var d report.DiffResult
		d, err = report.Diff(ref, cand, format == report.FormatHTML)
		if err == nil {
			_, err = io.WriteString(w, d.Text)
		}
	case report.FormatPatch:
		var patch []byte
		patch, err = report.MergePatch(ref, cand)
		if err == nil {
			_, err = w.Write(append(patch, '\n'))
		}
	case report.FormatPDF:
		rep := report.PDFReport{
			Title:      fmt.Sprintf("%s vs %s", refName, candName),
			Reference:  ref,
			Candidate:  cand,
			Comparison: res,
			Label:      label,
		}
		rep.Images, err = readAttachments(opts.attachments)
		if err == nil {
			err = report.WritePDF(w, rep)
		}
	case report.FormatJSON, report.FormatYAML:
		out := compareOutput{
			Reference: refName,
			Candidate: candName,
			Separator: res.Separator,
			Summary:   res.Summary(),
		}
		if view == report.ViewMismatches {
			out.Mismatches = res.Mismatches()
		} else {
			out.Rows = res.Table()
		}
		err = api.OutputTo(w, api.OutputFormat(format), out)
	}
	return res, err
}

func readAttachments(paths []string) ([]report.Image, error) {
	images := make([]report.Image, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		images = append(images, report.Image{Name: filepath.Base(p), Data: data})
	}
	return images, nil
}

func init() {
	compareCmd.Flags().StringVarP(&compareOpts.format, "format", "f", formatTable, "table, csv, diff, html, patch, json, yaml or pdf")
	compareCmd.Flags().StringVar(&compareOpts.view, "view", string(report.ViewTable), "table or mismatches")
	compareCmd.Flags().StringVar(&compareOpts.separator, "separator", jsondiff.DefaultSeparator, "Path separator")
	compareCmd.Flags().BoolVar(&compareOpts.emptyContainers, "empty-containers", false, "Keep empty objects and arrays as leaves")
	compareCmd.Flags().StringToStringVar(&compareOpts.mappings, "map", nil, "Field label path=Label (repeatable)")
	compareCmd.Flags().StringSliceVar(&compareOpts.attachments, "attach", nil, "Image to embed in pdf output (repeatable)")
	compareCmd.Flags().BoolVar(&failOnDiff, "fail-on-diff", false, "Exit with status 1 when any path differs")

	rootCmd.AddCommand(compareCmd)
}

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

// A4 portrait in points; pdfcpu positions from the lower left corner.
const (
	pdfPageHeight  = 842
	pdfMarginLeft  = 40
	pdfTop         = 800
	pdfLineHeight  = 13
	pdfLinesPage   = 56
	pdfLineWidth   = 100 // characters before a line is wrapped
	pdfBodySize    = 9
	pdfHeadingSize = 14
)

// Image is a source document embedded in a PDF report.
type Image struct {
	Name string
	Data []byte
}

// PDFReport is the content of a PDF export.
type PDFReport struct {
	Title string
	// Files lists the submitted documents by name.
	Files []string
	// Images are appended after the text pages. Only JPEG, PNG and TIFF
	// images can be embedded; other files are listed as skipped.
	Images     []Image
	Reference  any
	Candidate  any
	Comparison *jsondiff.Result
	Label      Labeler
}

// embeddable reports whether pdfcpu can import an image by its extension.
func embeddable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
		return true
	}
	return false
}

type pdfSection struct {
	heading string
	lines   []string
}

// WritePDF renders the report: uploaded files, both documents, the
// comparison table and the mismatched fields, each section starting on a
// new page, followed by one page per embedded image.
func WritePDF(w io.Writer, rep PDFReport) error {
	if rep.Comparison == nil {
		return ErrNoComparison
	}
	label := rep.Label
	if label == nil {
		label = Labels(nil)
	}

	var images []Image
	files := pdfSection{heading: "Uploaded Files"}
	for _, name := range rep.Files {
		files.lines = append(files.lines, name)
	}
	for _, img := range rep.Images {
		if embeddable(img.Name) {
			images = append(images, img)
			files.lines = append(files.lines, img.Name+" (attached)")
		} else {
			files.lines = append(files.lines, img.Name+" (not embedded)")
		}
	}

	refText, err := indentJSON(rep.Reference)
	if err != nil {
		return fmt.Errorf("failed to encode reference: %w", err)
	}
	candText, err := indentJSON(rep.Candidate)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}

	table := pdfSection{heading: "Comparison Table"}
	for _, row := range rep.Comparison.Table() {
		table.lines = append(table.lines, fmt.Sprintf("%s: %s vs %s - %s",
			label(row.Path), jsondiff.FormatValue(row.Reference), jsondiff.FormatValue(row.Candidate), row.Verdict))
	}
	s := rep.Comparison.Summary()
	table.lines = append(table.lines, "", fmt.Sprintf("%d fields: %d match, %d differ, %d missing", s.Total, s.Matches, s.Mismatches, s.Missing))

	mismatches := pdfSection{heading: "Mismatched Fields"}
	for _, row := range rep.Comparison.Mismatches() {
		mismatches.lines = append(mismatches.lines, fmt.Sprintf("%s: %s vs %s",
			label(row.Path), jsondiff.FormatValue(row.Reference), jsondiff.FormatValue(row.Candidate)))
	}
	if len(mismatches.lines) == 0 {
		mismatches.lines = []string{"All fields match."}
	}

	sections := []pdfSection{
		{heading: "Results with Extra Accuracy", lines: strings.Split(refText, "\n")},
		{heading: "Results without Extra Accuracy", lines: strings.Split(candText, "\n")},
		table,
		mismatches,
	}
	if len(files.lines) > 0 {
		sections = append([]pdfSection{files}, sections...)
	}

	layout, err := json.Marshal(pdfLayout(rep.Title, sections))
	if err != nil {
		return fmt.Errorf("failed to encode pdf layout: %w", err)
	}
	var text bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(layout), &text, nil); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if len(images) == 0 {
		_, err := w.Write(text.Bytes())
		return err
	}

	readers := make([]io.Reader, len(images))
	for i, img := range images {
		readers[i] = bytes.NewReader(img.Data)
	}
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(bytes.NewReader(text.Bytes()), w, readers, imp, nil); err != nil {
		return fmt.Errorf("failed to embed images: %w", err)
	}
	return nil
}

func indentJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pdfcpu's JSON page description, reduced to the text boxes used here.
type pdfDoc struct {
	Paper string              `json:"paper"`
	Pages map[string]*pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// pdfLayout paginates sections into pdfcpu text boxes.
func pdfLayout(title string, sections []pdfSection) pdfDoc {
	doc := pdfDoc{Paper: "A4", Pages: map[string]*pdfPage{}}
	pageNo := 0
	var page *pdfPage
	var row int

	newPage := func(heading string) {
		pageNo++
		page = &pdfPage{}
		doc.Pages[strconv.Itoa(pageNo)] = page
		if pageNo == 1 && title != "" {
			page.Content.Text = append(page.Content.Text, pdfText{
				Value: pdfSafe(title),
				Pos:   [2]float64{pdfMarginLeft, pdfPageHeight - 24},
				Font:  pdfFont{Name: "Helvetica", Size: pdfBodySize},
			})
		}
		page.Content.Text = append(page.Content.Text, pdfText{
			Value: pdfSafe(heading),
			Pos:   [2]float64{pdfMarginLeft, pdfTop},
			Font:  pdfFont{Name: "Helvetica-Bold", Size: pdfHeadingSize},
		})
		row = 2
	}

	for _, sec := range sections {
		newPage(sec.heading + ":")
		for _, line := range sec.lines {
			for _, part := range wrap(line, pdfLineWidth) {
				if row >= pdfLinesPage {
					newPage(sec.heading + " (continued):")
				}
				if part != "" {
					page.Content.Text = append(page.Content.Text, pdfText{
						Value: pdfSafe(part),
						Pos:   [2]float64{pdfMarginLeft, float64(pdfTop - row*pdfLineHeight)},
						Font:  pdfFont{Name: "Courier", Size: pdfBodySize},
					})
				}
				row++
			}
		}
	}
	return doc
}

// wrap splits s into chunks of at most n runes.
func wrap(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	var out []string
	for len(r) > n {
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return append(out, string(r))
}

// pdfSafe keeps text inside the Latin-1 range the core fonts encode.
func pdfSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x20:
			return -1
		case r > 0xFF:
			return '?'
		}
		return r
	}, s)
}

package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	require.NoError(t, err)
	return n
}

func testReport(t *testing.T) PDFReport {
	ref, cand := decode(t, withExtra), decode(t, withoutExtra)
	return PDFReport{
		Title:      "invoices",
		Reference:  ref,
		Candidate:  cand,
		Comparison: jsondiff.Compare(ref, cand),
		Label:      Labels(map[string]string{"total": "Total Amount"}),
	}
}

func TestPDFLayout(t *testing.T) {
	t.Run("one page per section", func(t *testing.T) {
		doc := pdfLayout("title", []pdfSection{
			{heading: "A", lines: []string{"one", "", "two"}},
			{heading: "B", lines: []string{"three"}},
		})
		require.Len(t, doc.Pages, 2)

		first := doc.Pages["1"].Content.Text
		require.Len(t, first, 4) // title, heading, two non-empty lines
		assert.Equal(t, "title", first[0].Value)
		assert.Equal(t, "A:", first[1].Value)
		assert.Equal(t, "Helvetica-Bold", first[1].Font.Name)
		assert.Equal(t, "one", first[2].Value)
		assert.Equal(t, "two", first[3].Value)
		assert.Greater(t, first[2].Pos[1], first[3].Pos[1])

		assert.Equal(t, "B:", doc.Pages["2"].Content.Text[0].Value)
	})

	t.Run("long sections continue on new pages", func(t *testing.T) {
		lines := make([]string, 2*pdfLinesPage)
		for i := range lines {
			lines[i] = fmt.Sprintf("line %d", i)
		}
		doc := pdfLayout("", []pdfSection{{heading: "Long", lines: lines}})
		require.Len(t, doc.Pages, 3)
		assert.Equal(t, "Long (continued):", doc.Pages["2"].Content.Text[0].Value)
		for _, p := range doc.Pages {
			for _, tb := range p.Content.Text {
				assert.Greater(t, tb.Pos[1], 0.0)
			}
		}
	})

	t.Run("long lines wrap", func(t *testing.T) {
		doc := pdfLayout("", []pdfSection{{heading: "W", lines: []string{strings.Repeat("x", pdfLineWidth+5)}}})
		text := doc.Pages["1"].Content.Text
		require.Len(t, text, 3)
		assert.Len(t, text[1].Value, pdfLineWidth)
		assert.Equal(t, "xxxxx", text[2].Value)
	})
}

func TestPDFSafe(t *testing.T) {
	assert.Equal(t, "café ? ok", pdfSafe("café ✔\tok"))
	assert.Equal(t, "ab", pdfSafe("a\nb"))
}

func TestWritePDF(t *testing.T) {
	t.Run("text sections", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, testReport(t)))
		require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		// two documents, the table and the mismatches
		assert.Equal(t, 4, pageCount(t, buf.Bytes()))
	})

	t.Run("images are appended", func(t *testing.T) {
		rep := testReport(t)
		rep.Images = []Image{
			{Name: "scan.png", Data: pngBytes(t)},
			{Name: "scan.bmp", Data: []byte("BM")},
		}
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, rep))
		// files page, four text sections, one embedded image
		assert.Equal(t, 6, pageCount(t, buf.Bytes()))
	})

	t.Run("requires a comparison", func(t *testing.T) {
		rep := testReport(t)
		rep.Comparison = nil
		require.ErrorIs(t, WritePDF(&bytes.Buffer{}, rep), ErrNoComparison)
	})
}

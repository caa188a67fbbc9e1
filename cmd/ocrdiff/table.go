package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
	"github.com/parserlab/ocrdiff/internal/report"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	sepStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a94a6"))
	matchStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#8BC34A"))
	mismatchStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#e53935"))
	summaryStyle  = lipgloss.NewStyle().Italic(true)
)

// renderTable draws a comparison as an aligned terminal table followed by
// its summary line.
func renderTable(res *jsondiff.Result, view report.View, label report.Labeler) string {
	if label == nil {
		label = report.Labels(nil)
	}

	headers := report.TableHeader
	var rows [][]string
	var verdicts []jsondiff.Verdict
	if view == report.ViewMismatches {
		headers = report.MismatchesHeader
		for _, m := range res.Mismatches() {
			rows = append(rows, []string{label(m.Path), jsondiff.FormatValue(m.Reference), jsondiff.FormatValue(m.Candidate)})
		}
	} else {
		for _, r := range res.Table() {
			rows = append(rows, []string{label(r.Path), jsondiff.FormatValue(r.Reference), jsondiff.FormatValue(r.Candidate), r.Verdict.Symbol()})
			verdicts = append(verdicts, r.Verdict)
		}
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Width includes padding
	total := len(headers) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	var sb strings.Builder
	sep := sepStyle.Render("|")
	for i, h := range headers {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for n, row := range rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(sep)
			}
			style := cellStyle
			if i == 3 && verdicts != nil {
				style = matchStyle
				if verdicts[n] == jsondiff.Mismatch {
					style = mismatchStyle
				}
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
		}
		sb.WriteString("\n")
	}

	s := res.Summary()
	sb.WriteString("\n")
	sb.WriteString(summaryStyle.Render(summaryLine(s)))
	sb.WriteString("\n")
	return sb.String()
}

func summaryLine(s jsondiff.Summary) string {
	line := fmt.Sprintf("%d fields: %d match, %d differ", s.Total, s.Matches, s.Mismatches)
	if s.Missing > 0 {
		line += fmt.Sprintf(" (%d missing)", s.Missing)
	}
	return line
}

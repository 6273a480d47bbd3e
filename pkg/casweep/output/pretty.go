package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	w.WriteString(f.formatHeader(t))
	w.WriteString("\n")
	w.WriteString(f.formatTable(t))
	w.WriteString(f.formatFooter(t))
	w.WriteString("\n")

	if errs := f.formatErrors(t); errs != "" {
		w.WriteString("\n")
		w.WriteString(errs)
	}
	return nil
}

// formatHeader builds the header box with the column layout.
func (f *PrettyFormatter) formatHeader(t *types.Table) string {
	lines := []string{TitleStyle.Render("Study results")}

	var parts []string
	if t != nil && len(t.Variables) > 0 {
		parts = append(parts, LabelStyle.Render("Inputs:")+" "+ValueStyle.Render(strings.Join(t.Variables, ", ")))
	}
	if t != nil && len(t.Outputs) > 0 {
		parts = append(parts, LabelStyle.Render("Outputs:")+" "+ValueStyle.Render(strings.Join(t.Outputs, ", ")))
	}
	if len(parts) > 0 {
		lines = append(lines, strings.Join(parts, "  "))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the aligned, colored result table.
func (f *PrettyFormatter) formatTable(t *types.Table) string {
	if t.Len() == 0 {
		return MutedStyle.Render("  No cases were run") + "\n"
	}

	cols := append([]string{"#", "case"}, t.Columns()...)
	rows := make([][]string, len(t.Rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for i := range t.Rows {
		row := &t.Rows[i]
		rec := []string{strconv.Itoa(row.Index), row.Case}
		for _, col := range t.Columns() {
			rec = append(rec, cell(row, col, NullText))
		}
		for j, c := range rec {
			widths[j] = max(widths[j], len(c))
		}
		rows[i] = rec
	}

	var sb strings.Builder
	sb.WriteString(" ")
	for i, c := range cols {
		sb.WriteString(" ")
		sb.WriteString(TableHeaderStyle.Render(padRight(c, widths[i])))
	}
	sb.WriteString("\n")

	for i, rec := range rows {
		status := t.Rows[i].Status
		sb.WriteString(" ")
		for j, c := range rec {
			sb.WriteString(" ")
			sb.WriteString(f.styleCell(cols[j], c, status).Render(padRight(c, widths[j])))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) styleCell(col, value string, status types.Status) lipgloss.Style {
	switch {
	case col == "status":
		return StatusStyle(status)
	case col == "#", value == NullText:
		return MutedStyle
	case col == "case":
		return ValueStyle
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return NumberStyle
	}
	return ValueStyle
}

// formatFooter builds the footer box with counts and total run time.
func (f *PrettyFormatter) formatFooter(t *types.Table) string {
	sum := report.Summarize(t)

	var total float64
	if t != nil {
		for _, r := range t.Rows {
			total += r.Duration.Seconds()
		}
	}

	parts := []string{
		LabelStyle.Render("Cases:") + " " + ValueStyle.Render(strconv.Itoa(sum.Total)),
		LabelStyle.Render("Done:") + " " + SuccessStyle.Render(strconv.Itoa(sum.Successful)),
	}
	failedStyle := MutedStyle
	if sum.Failed > 0 {
		failedStyle = WarningStyle
	}
	parts = append(parts,
		LabelStyle.Render("Failed:")+" "+failedStyle.Render(strconv.Itoa(sum.Failed)),
		LabelStyle.Render("Solver time:")+" "+ValueStyle.Render(humanize.FtoaWithDigits(total, 1)+"s"),
		MutedStyle.Render("Use -o plain for unformatted output"),
	)
	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatErrors lists the error messages of rows that did not finish.
func (f *PrettyFormatter) formatErrors(t *types.Table) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	for _, r := range t.Rows {
		if r.Status.IsDone() || r.Error == "" {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString(WarningStyle.Bold(true).Render("Errors:"))
			sb.WriteString("\n")
		}
		sb.WriteString(StatusStyle(r.Status).Render(fmt.Sprintf("  %s: %s", r.Case, r.Error)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// padRight pads s with spaces to width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)

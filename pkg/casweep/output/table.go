package output

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// header returns the case column followed by the table columns.
func header(t *types.Table) []string {
	return append([]string{"case"}, t.Columns()...)
}

// records renders every row; null outputs become null.
func records(t *types.Table, null string) [][]string {
	cols := t.Columns()
	out := make([][]string, len(t.Rows))
	for i := range t.Rows {
		row := &t.Rows[i]
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, row.Case)
		for _, col := range cols {
			rec = append(rec, cell(row, col, null))
		}
		out[i] = rec
	}
	return out
}

// TSVFormatter formats output as tab-separated values.
// Null outputs are empty fields.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t == nil {
		return nil
	}
	w.WriteString(strings.Join(header(t), "\t"))
	w.WriteByte('\n')
	for _, rec := range records(t, "") {
		w.WriteString(strings.Join(rec, "\t"))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as comma-separated values with proper quoting.
// Null outputs are empty fields.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t == nil {
		return nil
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(header(t)); err != nil {
		return err
	}
	if err := writer.WriteAll(records(t, "")); err != nil {
		return err
	}
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t == nil {
		return nil
	}
	cols := header(t)
	writeMarkdownRow(w, cols)

	sep := make([]string, len(cols))
	for i, c := range cols {
		sep[i] = strings.Repeat("-", max(len(c), 3))
	}
	writeMarkdownRow(w, sep)

	for _, rec := range records(t, NullText) {
		writeMarkdownRow(w, rec)
	}
	return nil
}

func writeMarkdownRow(w *bytes.Buffer, cells []string) {
	w.WriteString("|")
	for _, c := range cells {
		w.WriteString(" ")
		w.WriteString(escapeMarkdownPipe(c))
		w.WriteString(" |")
	}
	w.WriteByte('\n')
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)

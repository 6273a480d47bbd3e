package output

import (
	"bytes"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// PlainFormatter prints the table as right-aligned columns with a leading
// row index, the way a dataframe prints. Null outputs print as NaN.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t.Len() == 0 {
		w.WriteString("Empty table\n")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	cols := t.Columns()

	if _, err := tw.Write([]byte("\t" + strings.Join(cols, "\t") + "\t\n")); err != nil {
		return err
	}

	for i := range t.Rows {
		row := &t.Rows[i]
		cells := make([]string, 0, len(cols)+1)
		cells = append(cells, strconv.Itoa(row.Index))
		for _, col := range cols {
			cells = append(cells, cell(row, col, NullText))
		}
		if _, err := tw.Write([]byte(strings.Join(cells, "\t") + "\t\n")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)

// PathsFormatter prints one case directory per line, for piping to other
// tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t == nil {
		return nil
	}
	for _, row := range t.Rows {
		w.WriteString(row.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)

// Package report renders the text summary printed after a study: status
// counts and the per-case burnup analysis.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// Column names read by the burnup analysis.
const (
	EnrichmentColumn = "enrichment"
	BurnupColumn     = "burnup"
	KInfColumn       = "k_inf"
	M2Column         = "m2"
)

// NotAvailable is printed for absent or null outputs.
const NotAvailable = "N/A"

// RuleWidth is the width of section rules.
const RuleWidth = 60

// Rule returns a section rule made of ch.
func Rule(ch string) string {
	return strings.Repeat(ch, RuleWidth)
}

// Summary holds the status counts of a study.
type Summary struct {
	Total      int `json:"total" yaml:"total"`
	Successful int `json:"successful" yaml:"successful"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Summarize counts rows. Every row that is not done counts as failed.
func Summarize(t *types.Table) Summary {
	done := t.CountStatus(types.StatusDone)
	return Summary{
		Total:      t.Len(),
		Successful: done,
		Failed:     t.Len() - done,
	}
}

// WriteSummary prints the three count lines.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Total calculations: %d\nSuccessful: %d\nFailed: %d\n",
		s.Total, s.Successful, s.Failed)
	return err
}

// WriteAnalysis prints the burnup analysis section. A row with a k_inf
// value gets its burnup, k-inf and M2 lines; any other row gets a single
// placeholder line, whatever its status.
func WriteAnalysis(w io.Writer, t *types.Table) error {
	var sb strings.Builder
	sb.WriteString("Burnup Analysis:\n")
	sb.WriteString(Rule("-"))
	sb.WriteString("\n")

	if t != nil {
		for i := range t.Rows {
			row := &t.Rows[i]
			enr := enrichment(row)
			if _, ok := row.Output(KInfColumn); !ok {
				fmt.Fprintf(&sb, "  Enrichment=%s%%: Calculation failed or incomplete\n", enr)
				continue
			}
			fmt.Fprintf(&sb, "  Enrichment=%s%%:\n", enr)
			fmt.Fprintf(&sb, "    Burnup: %s\n", outputText(row, BurnupColumn))
			fmt.Fprintf(&sb, "    k-inf: %s\n", outputText(row, KInfColumn))
			fmt.Fprintf(&sb, "    M2: %s\n", outputText(row, M2Column))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// enrichment renders the enrichment input with one decimal.
func enrichment(row *types.Row) string {
	v, ok := row.Input(EnrichmentColumn)
	if !ok {
		return NotAvailable
	}
	if f, ok := v.Float64(); ok {
		return fmt.Sprintf("%.1f", f)
	}
	return v.String()
}

// outputText renders an output the way the input value would print,
// keeping a trailing ".0" on integral numbers.
func outputText(row *types.Row, name string) string {
	v, ok := row.Output(name)
	if !ok {
		return NotAvailable
	}
	return types.Float(v).String()
}

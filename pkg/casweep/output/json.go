package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// record is one table row in json, jsonl and yaml output.
type record struct {
	Index    int                    `json:"index" yaml:"index"`
	Case     string                 `json:"case" yaml:"case"`
	Status   types.Status           `json:"status" yaml:"status"`
	Inputs   map[string]types.Value `json:"inputs" yaml:"inputs"`
	Outputs  map[string]*float64    `json:"outputs" yaml:"outputs"`
	Path     string                 `json:"path,omitempty" yaml:"path,omitempty"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string                 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// document is the full json and yaml output structure.
type document struct {
	Columns []string       `json:"columns" yaml:"columns"`
	Rows    []record       `json:"rows" yaml:"rows"`
	Summary report.Summary `json:"summary" yaml:"summary"`
}

func buildRecord(r *types.Row) record {
	outputs := r.Outputs
	if outputs == nil {
		outputs = map[string]*float64{}
	}
	return record{
		Index:    r.Index,
		Case:     r.Case,
		Status:   r.Status,
		Inputs:   r.Inputs,
		Outputs:  outputs,
		Path:     r.Path,
		Error:    r.Error,
		Duration: formatDurationString(r.Duration),
	}
}

func buildDocument(t *types.Table) document {
	doc := document{Columns: []string{}, Rows: []record{}}
	if t == nil {
		return doc
	}
	doc.Columns = t.Columns()
	for i := range t.Rows {
		doc.Rows = append(doc.Rows, buildRecord(&t.Rows[i]))
	}
	doc.Summary = report.Summarize(t)
	return doc
}

// formatDurationString formats a duration for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// JSONFormatter formats output as a single indented JSON object with
// columns, rows, and summary sections. Null outputs are JSON null.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(t))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON, one compact
// object per row, for tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, t *types.Table) error {
	if t == nil {
		return nil
	}
	for i := range t.Rows {
		data, err := json.Marshal(buildRecord(&t.Rows[i]))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)

package types

import (
	"strconv"
	"time"
)

// Status is the outcome of a single sweep point.
type Status string

// Row statuses. Anything else read back from disk is treated as failed.
const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

// IsDone reports whether the case finished successfully.
func (s Status) IsDone() bool {
	return s == StatusDone
}

// Row is one executed sweep point.
type Row struct {
	// Index is the zero-based position of the case in the sweep.
	Index int `json:"index" yaml:"index"`

	// Case is the case directory name under the results directory.
	Case string `json:"case" yaml:"case"`

	// Status is the case outcome.
	Status Status `json:"status" yaml:"status"`

	// Inputs echoes the parameter values used for this case.
	Inputs map[string]Value `json:"inputs" yaml:"inputs"`

	// Outputs holds solver outputs. A nil pointer is a null output.
	Outputs map[string]*float64 `json:"outputs" yaml:"outputs"`

	// Calculator is the calculator that ran the case.
	Calculator string `json:"calculator,omitempty" yaml:"calculator,omitempty"`

	// Command is the command line executed for the case.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Path is the case directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Error describes why the case did not finish.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is the wall time spent running the calculator.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Input returns the named input value.
func (r *Row) Input(name string) (Value, bool) {
	v, ok := r.Inputs[name]
	return v, ok
}

// Output returns the named output. The boolean is false when the output
// is absent or null.
func (r *Row) Output(name string) (float64, bool) {
	v, ok := r.Outputs[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Table is the row-per-case result of a study.
type Table struct {
	// Variables lists the input columns in declaration order.
	Variables []string `json:"variables" yaml:"variables"`

	// Outputs lists the output columns in model order.
	Outputs []string `json:"outputs" yaml:"outputs"`

	// Rows holds one row per sweep point, in sweep order.
	Rows []Row `json:"rows" yaml:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// CountStatus returns the number of rows with the given status.
func (t *Table) CountStatus(s Status) int {
	if t == nil {
		return 0
	}
	n := 0
	for _, r := range t.Rows {
		if r.Status == s {
			n++
		}
	}
	return n
}

// Columns returns every column name: status, inputs, then outputs.
func (t *Table) Columns() []string {
	cols := make([]string, 0, 1+len(t.Variables)+len(t.Outputs))
	cols = append(cols, "status")
	cols = append(cols, t.Variables...)
	cols = append(cols, t.Outputs...)
	return cols
}

// Cell renders a column value for the row. Null or missing outputs and
// unknown columns render as the empty string.
func (r *Row) Cell(name string) string {
	if name == "status" {
		return string(r.Status)
	}
	if v, ok := r.Inputs[name]; ok {
		return v.String()
	}
	if v, ok := r.Output(name); ok {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

// Column returns the rendered cells of a column in row order.
func (t *Table) Column(name string) []string {
	if t == nil {
		return nil
	}
	cells := make([]string, len(t.Rows))
	for i := range t.Rows {
		cells[i] = t.Rows[i].Cell(name)
	}
	return cells
}

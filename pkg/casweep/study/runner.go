// Package study runs parametric studies: it expands a sweep specification
// into cases, compiles an input template for each case, runs a calculator
// on it, and collects the declared outputs into a result table.
//
// Model and calculator definitions live in a definitions directory (.fz by
// default) as models/<name>.json and calculators/<name>.json.
package study

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/casweep/pkg/casweep/logging"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// DefaultDefinitionsDir is the definitions directory relative to the
// working directory.
const DefaultDefinitionsDir = ".fz"

// Request describes one study.
type Request struct {
	// InputPath is the input template.
	InputPath string

	// Variables is the sweep specification.
	Variables types.Variables

	// Model and Calculator name definitions in the definitions directory.
	Model      string
	Calculator string

	// ResultsDir receives one directory per case plus the study manifest.
	ResultsDir string
}

// Options configures a Runner.
type Options struct {
	// DefinitionsDir holds models/ and calculators/. Empty uses DefaultDefinitionsDir.
	DefinitionsDir string

	// Observer, if set, receives progress events.
	Observer Observer
}

// Runner executes studies. Cases run one at a time on the calling goroutine.
type Runner struct {
	opts Options
	log  *logging.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.DefinitionsDir == "" {
		opts.DefinitionsDir = DefaultDefinitionsDir
	}
	return &Runner{opts: opts, log: logging.Get("study")}
}

// Run executes every case of the request and returns the result table.
//
// Errors are returned only when the study cannot start: an invalid sweep,
// a missing input template, or a missing or invalid definition. Missing
// files yield errors wrapping fs.ErrNotExist. Per-case failures, including
// cancellation of ctx, are recorded on the rows instead.
func (r *Runner) Run(ctx context.Context, req Request) (*types.Table, error) {
	if err := req.Variables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}

	template, err := os.ReadFile(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	model, err := LoadModel(r.opts.DefinitionsDir, req.Model)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", req.Model, err)
	}
	calc, err := LoadCalculator(r.opts.DefinitionsDir, req.Calculator)
	if err != nil {
		return nil, fmt.Errorf("loading calculator %s: %w", req.Calculator, err)
	}
	command, err := calc.Command(model.ID)
	if err != nil {
		return nil, fmt.Errorf("calculator %s: %w", req.Calculator, err)
	}

	resultsDir := req.ResultsDir
	if resultsDir == "" {
		resultsDir = "results"
	}
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	cases := Expand(req.Variables)
	table := &types.Table{
		Variables: req.Variables.Names(),
		Outputs:   append([]string(nil), model.OutputOrder...),
		Rows:      make([]types.Row, 0, len(cases)),
	}
	manifest := &Manifest{
		Input:      req.InputPath,
		Model:      req.Model,
		Calculator: req.Calculator,
		Command:    command,
		Variables:  req.Variables,
		Started:    time.Now(),
		Table:      table,
	}

	r.log.Info("study started",
		"input", req.InputPath,
		"model", req.Model,
		"calculator", req.Calculator,
		"cases", len(cases),
	)

	for _, c := range cases {
		r.notify(Event{Kind: CaseStarted, Index: c.Index, Total: len(cases), Case: c.Name})

		row := r.runCase(ctx, caseJob{
			c:          c,
			resultsDir: resultsDir,
			inputName:  filepath.Base(req.InputPath),
			template:   string(template),
			model:      model,
			calc:       calc,
			calcName:   req.Calculator,
			command:    command,
		})
		table.Rows = append(table.Rows, row)

		if row.Status.IsDone() {
			r.log.Info("case finished", "case", row.Case, "duration", row.Duration)
		} else {
			r.log.Warn("case did not finish", "case", row.Case, "status", row.Status, "error", row.Error)
		}
		r.notify(Event{
			Kind:     CaseFinished,
			Index:    c.Index,
			Total:    len(cases),
			Case:     c.Name,
			Status:   row.Status,
			Duration: row.Duration,
		})
	}

	manifest.Finished = time.Now()
	if err := writeJSON(filepath.Join(resultsDir, ManifestFile), manifest); err != nil {
		r.log.Warn("failed to write study manifest", "error", err)
	}

	r.log.Info("study finished",
		"total", table.Len(),
		"done", table.CountStatus(types.StatusDone),
		"elapsed", manifest.Finished.Sub(manifest.Started),
	)
	return table, nil
}

func (r *Runner) notify(e Event) {
	if r.opts.Observer != nil {
		r.opts.Observer(e)
	}
}

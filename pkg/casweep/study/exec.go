package study

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// caseJob is everything runCase needs for one sweep point.
type caseJob struct {
	c          Case
	resultsDir string
	inputName  string
	template   string
	model      *Model
	calc       *Calculator
	calcName   string
	command    string
}

// runCase prepares, executes and extracts one case. It never returns an
// error: every failure is recorded on the row.
func (r *Runner) runCase(ctx context.Context, job caseJob) types.Row {
	dir := filepath.Join(job.resultsDir, job.c.Name)
	line := job.command + " " + shellQuote(job.inputName)

	row := types.Row{
		Index:      job.c.Index,
		Case:       job.c.Name,
		Inputs:     job.c.Values,
		Outputs:    nullOutputs(job.model),
		Calculator: job.calcName,
		Command:    line,
		Path:       dir,
	}

	fail := func(status types.Status, err error) {
		row.Status = status
		row.Error = err.Error()
	}

	if err := ctx.Err(); err != nil {
		fail(types.StatusError, fmt.Errorf("not started: %w", err))
		return row
	}

	if err := prepareCase(dir, job); err != nil {
		fail(types.StatusError, err)
		return row
	}

	runCtx := ctx
	if job.calc.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.calc.timeout)
		defer cancel()
	}

	start := time.Now()
	err := execute(runCtx, dir, line, job.calc.Env)
	row.Duration = time.Since(start)

	switch {
	case err == nil:
		row.Status = types.StatusDone
	case ctx.Err() != nil:
		fail(types.StatusError, fmt.Errorf("cancelled: %w", ctx.Err()))
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		fail(types.StatusFailed, fmt.Errorf("timed out after %s", job.calc.timeout))
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fail(types.StatusFailed, fmt.Errorf("calculator %s", exitErr))
		} else {
			fail(types.StatusError, fmt.Errorf("launching calculator: %w", err))
		}
	}

	if row.Status.IsDone() {
		outputs, failures := extract(ctx, job.model, dir)
		row.Outputs = outputs
		for name, ferr := range failures {
			r.log.Warn("output extraction failed", "case", job.c.Name, "output", name, "error", ferr)
		}
	}

	if err := writeJSON(filepath.Join(dir, CaseFile), row); err != nil {
		r.log.Warn("failed to write case record", "case", job.c.Name, "error", err)
	}
	return row
}

// prepareCase recreates the case directory and writes the compiled input.
func prepareCase(dir string, job caseJob) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing case directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating case directory: %w", err)
	}

	input, err := Compile(job.template, job.c.Values, job.model)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", job.inputName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, job.inputName), []byte(input), 0o644); err != nil {
		return fmt.Errorf("writing input: %w", err)
	}
	return nil
}

// execute runs line through sh in dir, capturing stdout and stderr into
// the case directory.
func execute(ctx context.Context, dir, line string, env map[string]string) error {
	stdout, err := os.Create(filepath.Join(dir, StdoutFile))
	if err != nil {
		return err
	}
	defer func() { _ = stdout.Close() }()

	stderr, err := os.Create(filepath.Join(dir, StderrFile))
	if err != nil {
		return err
	}
	defer func() { _ = stderr.Close() }()

	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = environ(env)
	return cmd.Run()
}

// environ returns the process environment plus extra, in a stable order.
func environ(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+os.ExpandEnv(extra[k]))
	}
	return env
}

func nullOutputs(m *Model) map[string]*float64 {
	out := make(map[string]*float64, len(m.OutputOrder))
	for _, name := range m.OutputOrder {
		out[name] = nil
	}
	return out
}

// shellQuote single-quotes s when it contains anything but safe characters.
func shellQuote(s string) string {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == '/':
		default:
			return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
		}
	}
	return s
}

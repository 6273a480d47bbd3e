package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/casweep/cmd/casweep/tui"
	"github.com/jamesainslie/casweep/pkg/casweep/config"
	"github.com/jamesainslie/casweep/pkg/casweep/history"
	"github.com/jamesainslie/casweep/pkg/casweep/logging"
	"github.com/jamesainslie/casweep/pkg/casweep/output"
	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/study"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// studyRunner runs a parametric study. *study.Runner implements it.
type studyRunner interface {
	Run(ctx context.Context, req study.Request) (*types.Table, error)
}

// driver runs the lattice study and prints its report.
type driver struct {
	cfg       *config.Config
	formatter output.Formatter
	out       io.Writer
	errOut    io.Writer
	progress  bool

	// newRunner builds the runner, wiring obs into it when non-nil.
	newRunner func(obs study.Observer) studyRunner

	// record saves the finished study. Nil skips history.
	record func(rec *history.Record) error

	log *logging.Logger
}

// demoVariables is the lattice sweep: four enrichments at fixed fuel and
// moderator temperature, burnt to 50 MWd/kgU.
func demoVariables() types.Variables {
	return types.Variables{
		types.Axis("enrichment", types.Float(3.0), types.Float(3.5), types.Float(4.0), types.Float(4.5)),
		types.Scalar("fuel_temp", types.Int(900)),
		types.Scalar("moderator_temp", types.Int(580)),
		types.Scalar("burnup_steps", types.Int(50)),
	}
}

// runStudy is the root command action.
func runStudy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cfg.Output)
	if err != nil {
		return err
	}

	d := &driver{
		cfg:       cfg,
		formatter: formatter,
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
		progress:  viper.GetBool("progress"),
		newRunner: func(obs study.Observer) studyRunner {
			return study.New(study.Options{DefinitionsDir: cfg.Study.DefinitionsDir, Observer: obs})
		},
		log: logging.Get("cli"),
	}
	if cfg.History.Enabled && !viper.GetBool("no_history") {
		d.record = saveRecord(cfg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.run(ctx)
}

// newFormatter resolves the configured table formatter.
func newFormatter(cfg config.OutputConfig) (output.Formatter, error) {
	f, err := output.Get(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, output.Available())
	}
	if tf, ok := f.(*output.TemplateFormatter); ok && cfg.Template != "" {
		tf.SetTemplate(cfg.Template)
	}
	return f, nil
}

// run executes the driver routine. Failures are printed here and returned
// as an *ExitError with an empty message.
func (d *driver) run(ctx context.Context) error {
	d.checkSolverEnv()

	input := d.cfg.Study.Input
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(d.out, "Error: Input file '%s' not found.\n", input)
			fmt.Fprintln(d.out, "Please run casweep from the fz-casmo directory.")
		} else {
			fmt.Fprintf(d.out, "Error: Cannot read input file '%s': %v\n", input, err)
		}
		d.log.Error("input file unavailable", "input", input, "error", err)
		return &ExitError{Code: ExitFailure}
	}

	vars := demoVariables()

	fmt.Fprintln(d.out, report.Rule("="))
	fmt.Fprintln(d.out, "CASMO5 Parametric Study: PWR Lattice Burnup")
	fmt.Fprintln(d.out, report.Rule("="))
	fmt.Fprintln(d.out)

	fmt.Fprintln(d.out, "Parameters:")
	for _, v := range vars {
		fmt.Fprintf(d.out, "  %s: %s\n", v.Name, v)
	}
	fmt.Fprintln(d.out)

	fmt.Fprintln(d.out, "Running calculations...")
	fmt.Fprintln(d.out, report.Rule("-"))

	req := study.Request{
		InputPath:  input,
		Variables:  vars,
		Model:      d.cfg.Study.Model,
		Calculator: d.cfg.Study.Calculator,
		ResultsDir: d.cfg.Study.ResultsDir,
	}

	started := time.Now()
	table, trace, err := d.execute(ctx, req)
	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(d.out, "\nError: %v\n", err)
			fmt.Fprintln(d.out, "\nMake sure you have:")
			fmt.Fprintln(d.out, "1. The fz-casmo plugin files checked out")
			fmt.Fprintf(d.out, "2. CASMO5 installed and %s set correctly\n", d.cfg.Solver.Env)
			fmt.Fprintln(d.out, "3. The .fz/models and .fz/calculators directories present")
			d.log.Error("study could not start", "error", err)
			return &ExitError{Code: ExitFailure}
		}

		fmt.Fprintf(d.out, "\nError during calculation: %v\n", err)
		if trace == nil {
			trace = debug.Stack()
		}
		d.errOut.Write(trace)
		d.log.Error("study failed", "error", err)
		return &ExitError{Code: ExitFailure}
	}

	if err := d.report(table); err != nil {
		return err
	}
	d.save(req, table, elapsed)

	if ctx.Err() != nil {
		d.log.Warn("study interrupted", "error", ctx.Err())
		return &ExitError{Code: ExitFailure, Message: "study interrupted before all cases finished"}
	}

	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, report.Rule("="))
	fmt.Fprintln(d.out, "Study completed successfully!")
	fmt.Fprintln(d.out, report.Rule("="))
	return nil
}

// checkSolverEnv substitutes the placeholder installation path when the
// solver variable is unset.
func (d *driver) checkSolverEnv() {
	name := d.cfg.Solver.Env
	if _, ok := os.LookupEnv(name); ok {
		return
	}

	fmt.Fprintf(d.out, "Warning: %s environment variable is not set.\n", name)
	fmt.Fprintln(d.out, "Please set it to your CASMO5 installation directory:")
	fmt.Fprintf(d.out, "  export %s=/path/to/casmo5\n", name)
	fmt.Fprintln(d.out, "\nFor demonstration purposes, setting a placeholder path...")
	_ = os.Setenv(name, d.cfg.Solver.Placeholder)
	fmt.Fprintln(d.out, "(You will need to update this for actual calculations)")
	fmt.Fprintln(d.out)

	d.log.Warn("solver path not set, using placeholder", "env", name, "path", d.cfg.Solver.Placeholder)
}

// execute calls the runner, turning a panic into an error with the stack
// of the panicking goroutine as its trace.
func (d *driver) execute(ctx context.Context, req study.Request) (table *types.Table, trace []byte, err error) {
	var (
		obs  study.Observer
		wait func()
	)
	if d.progress {
		obs, wait = d.startProgress(ctx, req.Variables.Combinations())
		defer wait()
	}

	defer func() {
		if r := recover(); r != nil {
			table = nil
			trace = debug.Stack()
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	table, err = d.newRunner(obs).Run(ctx, req)
	return table, nil, err
}

// startProgress runs the progress view on stderr. The returned wait
// closes the event stream and blocks until the view has exited.
func (d *driver) startProgress(ctx context.Context, total int) (study.Observer, func()) {
	events := make(chan study.Event, 2*total+2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tui.RunProgress(ctx, events, total, d.errOut); err != nil {
			d.log.Warn("progress view failed", "error", err)
		}
	}()

	obs := func(e study.Event) {
		select {
		case events <- e:
		default:
		}
	}
	return obs, func() {
		close(events)
		wg.Wait()
	}
}

// report prints the result table, the counts and the burnup analysis.
func (d *driver) report(table *types.Table) error {
	var buf bytes.Buffer
	if err := d.formatter.Format(&buf, table); err != nil {
		return fmt.Errorf("formatting results: %w", err)
	}

	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, report.Rule("="))
	fmt.Fprintln(d.out, "Results:")
	fmt.Fprintln(d.out, report.Rule("="))
	fmt.Fprintln(d.out)
	d.out.Write(buf.Bytes())
	fmt.Fprintln(d.out)

	summary := report.Summarize(table)
	fmt.Fprintln(d.out, report.Rule("-"))
	if err := report.WriteSummary(d.out, summary); err != nil {
		return err
	}

	if summary.Successful > 0 {
		fmt.Fprintln(d.out)
		if err := report.WriteAnalysis(d.out, table); err != nil {
			return err
		}
	}
	return nil
}

// save records the study in history. Failures are logged, not returned.
func (d *driver) save(req study.Request, table *types.Table, elapsed time.Duration) {
	if d.record == nil {
		return
	}

	rec := &history.Record{
		Input:      req.InputPath,
		Model:      req.Model,
		Calculator: req.Calculator,
		ResultsDir: req.ResultsDir,
		Variables:  req.Variables,
		Summary:    report.Summarize(table),
		Elapsed:    elapsed,
		Table:      table,
	}
	if size, err := history.DirSize(req.ResultsDir); err == nil {
		rec.ResultsSize = size
	}

	if err := d.record(rec); err != nil {
		d.log.Warn("failed to record study history", "error", err)
		printVerbose("history not saved: %v", err)
		return
	}
	d.log.Debug("study recorded", "id", rec.ID)
}

// saveRecord returns a recorder writing to the configured history store.
func saveRecord(cfg *config.Config) func(*history.Record) error {
	return func(rec *history.Record) error {
		store, err := history.Open(cfg.HistoryPath(), cfg.History.RetentionDays)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Save(rec)
	}
}

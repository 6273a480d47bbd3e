package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/casweep/pkg/casweep/config"
	"github.com/jamesainslie/casweep/pkg/casweep/history"
	"github.com/jamesainslie/casweep/pkg/casweep/logging"
	"github.com/jamesainslie/casweep/pkg/casweep/output"
	"github.com/jamesainslie/casweep/pkg/casweep/study"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

type fakeRunner struct {
	table *types.Table
	err   error
	panic interface{}

	calls int
	req   study.Request
	ctx   context.Context
}

func (f *fakeRunner) Run(ctx context.Context, req study.Request) (*types.Table, error) {
	f.calls++
	f.req = req
	f.ctx = ctx
	if f.panic != nil {
		panic(f.panic)
	}
	return f.table, f.err
}

func ptr(v float64) *float64 { return &v }

// latticeTable is a four-case result with the last case failed.
func latticeTable() *types.Table {
	t := &types.Table{
		Variables: []string{"enrichment", "fuel_temp", "moderator_temp", "burnup_steps"},
		Outputs:   []string{"k_inf", "burnup", "m2"},
	}
	for i, enr := range []float64{3.0, 3.5, 4.0, 4.5} {
		row := types.Row{
			Index:  i,
			Case:   fmt.Sprintf("enrichment=%.1f", enr),
			Status: types.StatusDone,
			Inputs: map[string]types.Value{
				"enrichment":     types.Float(enr),
				"fuel_temp":      types.Int(900),
				"moderator_temp": types.Int(580),
				"burnup_steps":   types.Int(50),
			},
			Outputs: map[string]*float64{"k_inf": ptr(1.3 - float64(i)/100), "burnup": ptr(50), "m2": ptr(55.1)},
		}
		if i == 3 {
			row.Status = types.StatusFailed
			row.Error = "calculator exit status 2"
			row.Outputs = map[string]*float64{"k_inf": nil, "burnup": nil, "m2": nil}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Decode(v)
	require.NoError(t, err)
	return cfg
}

type harness struct {
	d       *driver
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	records []*history.Record
}

// newHarness builds a driver around runner with an existing input file
// and CASMO_PATH set.
func newHarness(t *testing.T, runner studyRunner) *harness {
	t.Helper()
	t.Setenv("CASMO_PATH", "/opt/casmo5")

	cfg := defaultConfig(t)
	cfg.Study.Input = filepath.Join(t.TempDir(), "pwr_lattice.inp")
	require.NoError(t, os.WriteFile(cfg.Study.Input, []byte("ENR ${enrichment}\n"), 0o644))

	formatter, err := newFormatter(cfg.Output)
	require.NoError(t, err)

	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.d = &driver{
		cfg:       cfg,
		formatter: formatter,
		out:       h.out,
		errOut:    h.errOut,
		newRunner: func(study.Observer) studyRunner { return runner },
		record: func(rec *history.Record) error {
			h.records = append(h.records, rec)
			return nil
		},
		log: logging.Get("cli"),
	}
	return h
}

func TestDriver_Success(t *testing.T) {
	runner := &fakeRunner{table: latticeTable()}
	h := newHarness(t, runner)

	require.NoError(t, h.d.run(context.Background()))

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, h.d.cfg.Study.Input, runner.req.InputPath)
	assert.Equal(t, "CASMO", runner.req.Model)
	assert.Equal(t, "Localhost_CASMO", runner.req.Calculator)
	assert.Equal(t, "results", runner.req.ResultsDir)
	assert.Equal(t, demoVariables(), runner.req.Variables)

	got := h.out.String()
	rule := strings.Repeat("=", 60)
	dash := strings.Repeat("-", 60)

	assert.True(t, strings.HasPrefix(got, rule+"\nCASMO5 Parametric Study: PWR Lattice Burnup\n"+rule+"\n\n"), got)
	assert.Contains(t, got, "Parameters:\n"+
		"  enrichment: [3.0, 3.5, 4.0, 4.5]\n"+
		"  fuel_temp: 900\n"+
		"  moderator_temp: 580\n"+
		"  burnup_steps: 50\n\n")
	assert.Contains(t, got, "Running calculations...\n"+dash+"\n")
	assert.Contains(t, got, "\n"+rule+"\nResults:\n"+rule+"\n\n")
	assert.Contains(t, got, dash+"\nTotal calculations: 4\nSuccessful: 3\nFailed: 1\n")
	assert.Contains(t, got, "\nBurnup Analysis:\n"+dash+"\n")
	assert.Contains(t, got, "  Enrichment=3.0%:\n    Burnup: 50.0\n    k-inf: 1.3\n    M2: 55.1\n")
	assert.Contains(t, got, "  Enrichment=4.5%: Calculation failed or incomplete\n")
	assert.True(t, strings.HasSuffix(got, "\n"+rule+"\nStudy completed successfully!\n"+rule+"\n"), got)
	assert.NotContains(t, got, "Warning:")
	assert.Empty(t, h.errOut.String())

	require.Len(t, h.records, 1)
	assert.Equal(t, 4, h.records[0].Summary.Total)
	assert.Equal(t, 3, h.records[0].Summary.Successful)
	assert.Equal(t, "CASMO", h.records[0].Model)
}

func TestDriver_NoSuccessfulCases(t *testing.T) {
	table := latticeTable()
	for i := range table.Rows {
		table.Rows[i].Status = types.StatusFailed
	}
	h := newHarness(t, &fakeRunner{table: table})

	require.NoError(t, h.d.run(context.Background()))

	got := h.out.String()
	assert.Contains(t, got, "Total calculations: 4\nSuccessful: 0\nFailed: 4\n")
	assert.NotContains(t, got, "Burnup Analysis:")
	assert.Contains(t, got, "Study completed successfully!")
}

func TestDriver_DoneRowWithoutOutputs(t *testing.T) {
	table := latticeTable()
	table.Rows[1].Outputs = map[string]*float64{"k_inf": nil}
	h := newHarness(t, &fakeRunner{table: table})

	require.NoError(t, h.d.run(context.Background()))
	assert.Contains(t, h.out.String(), "  Enrichment=3.5%: Calculation failed or incomplete\n")
}

func TestDriver_SolverEnvUnset(t *testing.T) {
	h := newHarness(t, &fakeRunner{table: latticeTable()})
	require.NoError(t, os.Unsetenv("CASMO_PATH"))

	require.NoError(t, h.d.run(context.Background()))

	assert.Equal(t, "/opt/studsvik/casmo5", os.Getenv("CASMO_PATH"))
	assert.True(t, strings.HasPrefix(h.out.String(),
		"Warning: CASMO_PATH environment variable is not set.\n"+
			"Please set it to your CASMO5 installation directory:\n"+
			"  export CASMO_PATH=/path/to/casmo5\n"+
			"\nFor demonstration purposes, setting a placeholder path...\n"+
			"(You will need to update this for actual calculations)\n\n"+
			strings.Repeat("=", 60)), h.out.String())
	assert.Contains(t, h.out.String(), "Study completed successfully!")
}

func TestDriver_SolverEnvEmptyIsSet(t *testing.T) {
	h := newHarness(t, &fakeRunner{table: latticeTable()})
	t.Setenv("CASMO_PATH", "")

	require.NoError(t, h.d.run(context.Background()))
	assert.Equal(t, "", os.Getenv("CASMO_PATH"))
	assert.NotContains(t, h.out.String(), "Warning:")
}

func TestDriver_MissingInput(t *testing.T) {
	runner := &fakeRunner{table: latticeTable()}
	h := newHarness(t, runner)
	h.d.cfg.Study.Input = filepath.Join(t.TempDir(), "pwr_lattice.inp")

	err := h.d.run(context.Background())

	assert.Equal(t, ExitFailure, exitCode(err))
	assert.Zero(t, runner.calls)
	assert.Equal(t,
		"Error: Input file '"+h.d.cfg.Study.Input+"' not found.\n"+
			"Please run casweep from the fz-casmo directory.\n",
		h.out.String())
	assert.Empty(t, h.records)
}

func TestDriver_UnreadableInput(t *testing.T) {
	runner := &fakeRunner{table: latticeTable()}
	h := newHarness(t, runner)
	parent := filepath.Join(t.TempDir(), "lattice")
	require.NoError(t, os.WriteFile(parent, []byte("not a directory"), 0o644))
	h.d.cfg.Study.Input = filepath.Join(parent, "pwr_lattice.inp")

	err := h.d.run(context.Background())

	assert.Equal(t, ExitFailure, exitCode(err))
	assert.Zero(t, runner.calls)
	assert.Contains(t, h.out.String(), "Error: Cannot read input file '"+h.d.cfg.Study.Input+"': ")
	assert.NotContains(t, h.out.String(), "not found")
	assert.Empty(t, h.records)
}

func TestDriver_Errors(t *testing.T) {
	tests := []struct {
		name       string
		runner     *fakeRunner
		wantOut    []string
		notOut     []string
		wantTrace  bool
		traceMatch string
	}{
		{
			name:   "missing file",
			runner: &fakeRunner{err: fmt.Errorf("loading model CASMO: %w", &fs.PathError{Op: "open", Path: ".fz/models/CASMO.json", Err: fs.ErrNotExist})},
			wantOut: []string{
				"\nError: loading model CASMO: open .fz/models/CASMO.json: file does not exist\n",
				"\nMake sure you have:\n",
				"2. CASMO5 installed and CASMO_PATH set correctly\n",
				"3. The .fz/models and .fz/calculators directories present\n",
			},
			notOut: []string{"Error during calculation"},
		},
		{
			name:       "other error",
			runner:     &fakeRunner{err: errors.New("calculator localhost unreachable")},
			wantOut:    []string{"\nError during calculation: calculator localhost unreachable\n"},
			notOut:     []string{"Make sure you have:"},
			wantTrace:  true,
			traceMatch: "goroutine",
		},
		{
			name:       "panic",
			runner:     &fakeRunner{panic: "index out of range"},
			wantOut:    []string{"\nError during calculation: panic: index out of range\n"},
			wantTrace:  true,
			traceMatch: "fakeRunner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.runner)

			err := h.d.run(context.Background())

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, ExitFailure, exitErr.Code)
			assert.Empty(t, exitErr.Message, "failure is already reported")

			got := h.out.String()
			for _, want := range tt.wantOut {
				assert.Contains(t, got, want)
			}
			for _, not := range tt.notOut {
				assert.NotContains(t, got, not)
			}
			assert.NotContains(t, got, "Study completed successfully!")
			assert.NotContains(t, got, "Results:")

			if tt.wantTrace {
				assert.Contains(t, h.errOut.String(), tt.traceMatch)
			} else {
				assert.Empty(t, h.errOut.String())
			}
			assert.Empty(t, h.records)
		})
	}
}

func TestDriver_Interrupted(t *testing.T) {
	table := latticeTable()
	table.Rows[3].Status = types.StatusError
	table.Rows[3].Error = "cancelled: context canceled"
	h := newHarness(t, &fakeRunner{table: table})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.d.run(ctx)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
	assert.NotEmpty(t, exitErr.Message)

	got := h.out.String()
	assert.Contains(t, got, "Total calculations: 4\nSuccessful: 3\nFailed: 1\n")
	assert.NotContains(t, got, "Study completed successfully!")
	assert.Len(t, h.records, 1, "partial studies are still recorded")
}

func TestDriver_HistoryFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, &fakeRunner{table: latticeTable()})
	h.d.record = func(*history.Record) error { return errors.New("database locked") }

	require.NoError(t, h.d.run(context.Background()))
	assert.Contains(t, h.out.String(), "Study completed successfully!")
}

func TestDriver_HistoryDisabled(t *testing.T) {
	h := newHarness(t, &fakeRunner{table: latticeTable()})
	h.d.record = nil

	require.NoError(t, h.d.run(context.Background()))
	assert.Empty(t, h.records)
}

func TestDriver_Formatter(t *testing.T) {
	runner := &fakeRunner{table: latticeTable()}
	h := newHarness(t, runner)
	f, err := newFormatter(config.OutputConfig{Format: "csv"})
	require.NoError(t, err)
	h.d.formatter = f

	require.NoError(t, h.d.run(context.Background()))
	assert.Contains(t, h.out.String(), "case,status,enrichment,fuel_temp,moderator_temp,burnup_steps,k_inf,burnup,m2\n")
}

func TestNewFormatter(t *testing.T) {
	f, err := newFormatter(config.OutputConfig{Format: "plain"})
	require.NoError(t, err)
	assert.IsType(t, &output.PlainFormatter{}, f)

	f, err = newFormatter(config.OutputConfig{Format: "template", Template: "{{len .Rows}} rows\n"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, latticeTable()))
	assert.Equal(t, "4 rows\n", buf.String())

	_, err = newFormatter(config.OutputConfig{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain")
}

const (
	e2eModel = `{
	"id": "CASMO",
	"output": {
		"k_inf": {"file": "out.txt", "regex": "K-INF\\s+(\\S+)"},
		"burnup": {"file": "out.txt", "regex": "BURNUP\\s+(\\S+)"},
		"m2": {"file": "out.txt", "regex": "M2\\s+(\\S+)"}
	}
}`
	e2eScript = `enr=$(awk '/^ENR/ {print $2}' "$1")
[ "$enr" = "4.5" ] && exit 3
echo "K-INF   1.2${enr%.*}"
echo "BURNUP  $(awk '/^DEP/ {print $2}' "$1")"
echo "M2      55.1"
`
	e2eTemplate = "ENR ${enrichment}\nTFU ${fuel_temp}\nDEP ${burnup_steps}\n"
)

func TestDriver_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CASMO_PATH", dir)

	files := map[string]string{
		"pwr_lattice.inp":                      e2eTemplate,
		"casmo.sh":                             e2eScript,
		".fz/models/CASMO.json":                e2eModel,
		".fz/calculators/Localhost_CASMO.json": `{"uri": "sh://sh ` + filepath.Join(dir, "casmo.sh") + `"}`,
	}
	for name, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	}

	cfg := defaultConfig(t)
	formatter, err := newFormatter(cfg.Output)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	d := &driver{
		cfg:       cfg,
		formatter: formatter,
		out:       &out,
		errOut:    &errOut,
		newRunner: func(obs study.Observer) studyRunner {
			return study.New(study.Options{DefinitionsDir: cfg.Study.DefinitionsDir, Observer: obs})
		},
		log: logging.Get("cli"),
	}

	require.NoError(t, d.run(context.Background()), out.String())

	got := out.String()
	assert.Contains(t, got, "Total calculations: 4\nSuccessful: 3\nFailed: 1\n")
	assert.Contains(t, got, "  Enrichment=3.0%:\n    Burnup: 50.0\n    k-inf: 1.23\n    M2: 55.1\n")
	assert.Contains(t, got, "  Enrichment=4.5%: Calculation failed or incomplete\n")

	m, err := study.ReadManifest("results")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Table.Len())
	assert.DirExists(t, filepath.Join("results", "enrichment=3.0"))
}

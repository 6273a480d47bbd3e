// Package config provides configuration management for casweep.
package config

// Default configuration values for casweep.
const (
	// DefaultSolverEnv is the environment variable naming the CASMO5
	// installation directory.
	DefaultSolverEnv = "CASMO_PATH"

	// DefaultSolverPlaceholder is assigned to the solver variable when it is
	// unset so the study can still be assembled.
	DefaultSolverPlaceholder = "/opt/studsvik/casmo5"

	// DefaultInput is the lattice input template, relative to the working
	// directory.
	DefaultInput = "pwr_lattice.inp"

	// DefaultModel is the model definition used to compile and parse cases.
	DefaultModel = "CASMO"

	// DefaultCalculator is the calculator definition that runs the solver.
	DefaultCalculator = "Localhost_CASMO"

	// DefaultResultsDir receives one subdirectory per case.
	DefaultResultsDir = "results"

	// DefaultDefinitionsDir holds models/ and calculators/.
	DefaultDefinitionsDir = ".fz"

	// DefaultOutputFormat is the formatter used for the result table.
	DefaultOutputFormat = "plain"

	// DefaultRetentionDays is the default number of days to keep history.
	DefaultRetentionDays = 30

	// DefaultHistoryLimit is how many studies `history` lists by default.
	DefaultHistoryLimit = 20
)

// DefaultComponentLevels are the per-component log levels written to new
// config files.
var DefaultComponentLevels = map[string]string{
	"study":   "info",
	"history": "info",
	"cli":     "info",
	"tui":     "warn",
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/casweep/pkg/casweep/config"
)

var (
	cfgFile string

	// configErr holds a config file error found by initConfig; commands
	// that need the configuration report it through loadConfig.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "casweep",
		Short: "Run a CASMO5 parametric study on a PWR lattice",
		Long: `casweep runs a CASMO5 burnup study on a PWR lattice, sweeping fuel
enrichment at fixed fuel temperature, moderator temperature and burnup.

Each sweep point is compiled from the lattice input template, run through
the configured calculator and collected into a result table under results/.

Examples:
  casweep                      # Run the study from the fz-casmo directory
  casweep -o pretty            # Styled result table
  casweep -o json > study.json # Machine-readable table
  casweep --progress           # Show a progress bar on stderr
  casweep history              # List past studies
  casweep models               # List available models and calculators`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runStudy,
	}
)

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (initializeLogging -> commandName -> rootCmd).
	rootCmd.PersistentPreRunE = initializeLogging

	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/casweep/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "echo debug logs to stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")

	// Study flags
	rootCmd.Flags().StringP("input", "i", "", "lattice input template (default: pwr_lattice.inp)")
	rootCmd.Flags().String("results", "", "results directory (default: results)")
	rootCmd.Flags().String("definitions", "", "model and calculator definitions directory (default: .fz)")
	rootCmd.Flags().StringP("output", "o", "", "result table format (plain, pretty, json, jsonl, yaml, csv, tsv, markdown, paths, template)")
	rootCmd.Flags().String("template", "", "Go template for -o template")
	rootCmd.Flags().BoolP("progress", "p", false, "show a progress bar on stderr while cases run")
	rootCmd.Flags().Bool("no-history", false, "do not record the study in history")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("study.input", rootCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("study.results_dir", rootCmd.Flags().Lookup("results"))
	_ = viper.BindPFlag("study.definitions_dir", rootCmd.Flags().Lookup("definitions"))
	_ = viper.BindPFlag("output.format", rootCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.template", rootCmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("progress", rootCmd.Flags().Lookup("progress"))
	_ = viper.BindPFlag("no_history", rootCmd.Flags().Lookup("no-history"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "casweep"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "casweep"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("CASWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (a missing file means defaults)
	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("failed to read config file: %w", err)
		}
	}
}

// loadConfig decodes the merged flag, environment, file and default settings.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

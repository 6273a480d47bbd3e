package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/casweep/pkg/casweep/study"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List model and calculator definitions",
	Long: `List the models and calculators found in the definitions directory
(.fz by default), with the outputs each model extracts and the command
each calculator runs.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().String("definitions", "", "definitions directory (default: .fz)")
	rootCmd.AddCommand(modelsCmd)
}

// runModels prints the available definitions.
func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dir := cfg.Study.DefinitionsDir
	if flag, _ := cmd.Flags().GetString("definitions"); flag != "" {
		dir = flag
	}

	out := cmd.OutOrStdout()
	if err := listModels(out, dir); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return listCalculators(out, dir)
}

func listModels(out io.Writer, dir string) error {
	names, err := study.ListDefinitions(dir, study.ModelsDir)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	fmt.Fprintln(out, "Models:")
	if len(names) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, name := range names {
		m, err := study.LoadModel(dir, name)
		if err != nil {
			fmt.Fprintf(out, "  %-20s  invalid: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "  %-20s  outputs: %s\n", name, strings.Join(m.OutputOrder, ", "))
	}
	return nil
}

func listCalculators(out io.Writer, dir string) error {
	names, err := study.ListDefinitions(dir, study.CalculatorsDir)
	if err != nil {
		return fmt.Errorf("listing calculators: %w", err)
	}

	fmt.Fprintln(out, "Calculators:")
	if len(names) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, name := range names {
		c, err := study.LoadCalculator(dir, name)
		if err != nil {
			fmt.Fprintf(out, "  %-20s  invalid: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "  %-20s  %s\n", name, c.URI)
	}
	return nil
}

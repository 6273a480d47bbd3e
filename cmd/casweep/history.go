package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/casweep/pkg/casweep/config"
	"github.com/jamesainslie/casweep/pkg/casweep/history"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past studies",
	Long: `View the history of studies run by casweep.

Each completed study is recorded with its sweep, its counts and its full
result table, so results stay inspectable after results/ is overwritten.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific study",
	Long:  `Display a recorded study by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a recorded study",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", config.DefaultHistoryLimit, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := history.Open(cfg.HistoryPath(), cfg.History.RetentionDays)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, cfg, nil
}

// runHistory lists recent studies.
func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'casweep' from the fz-casmo directory to record a study.")
		return nil
	}

	fmt.Fprintf(out, "\n%-36s  %-16s  %-24s  %-6s  %-6s  %-10s\n", "ID", "WHEN", "INPUT", "CASES", "DONE", "RESULTS")
	fmt.Fprintln(out, strings.Repeat("-", 110))

	for _, rec := range records {
		fmt.Fprintf(out, "%-36s  %-16s  %-24s  %-6d  %-6d  %-10s\n",
			truncateString(rec.ID, 36),
			humanize.Time(rec.Timestamp),
			truncateString(rec.Input, 24),
			rec.Summary.Total,
			rec.Summary.Successful,
			types.FormatSize(rec.ResultsSize),
		)
	}

	fmt.Fprintln(out, strings.Repeat("-", 110))
	fmt.Fprintf(out, "\nShowing %d entries. Use --limit to see more.\n", len(records))
	fmt.Fprintln(out, "Use 'casweep history show <id>' for details on a specific study.")

	return nil
}

// runHistoryShow displays a recorded study.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nStudy Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:          %s\n", rec.ID)
	fmt.Fprintf(out, "Timestamp:   %s\n", rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Input:       %s\n", rec.Input)
	fmt.Fprintf(out, "Model:       %s\n", rec.Model)
	fmt.Fprintf(out, "Calculator:  %s\n", rec.Calculator)
	fmt.Fprintf(out, "Results:     %s (%s)\n", rec.ResultsDir, types.FormatSize(rec.ResultsSize))
	fmt.Fprintf(out, "Elapsed:     %s\n", rec.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Cases:       %d total, %d successful, %d failed\n",
		rec.Summary.Total, rec.Summary.Successful, rec.Summary.Failed)

	if len(rec.Variables) > 0 {
		fmt.Fprintln(out, "\nParameters:")
		for _, v := range rec.Variables {
			fmt.Fprintf(out, "  %s: %s\n", v.Name, v)
		}
	}

	if rec.Table.Len() > 0 {
		fmt.Fprintln(out, "\nCases:")
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, row := range rec.Table.Rows {
			line := fmt.Sprintf("%-8s  %s", row.Status, row.Case)
			if row.Error != "" {
				line += "  (" + truncateString(row.Error, 40) + ")"
			}
			fmt.Fprintln(out, line)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := store.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete: %d removed.", removed)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	printInfo("Deleted %s", args[0])
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

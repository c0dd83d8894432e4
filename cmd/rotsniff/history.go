package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past runs",
	Long: `View the history of append, remove, update and verify runs.

Each run is recorded with its counters and, for verify, the paths that
diverged. Records older than history.retention_days are pruned.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a run",
	Long:  `Display a run by its ID or any unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

// maxShownAnomalies bounds the paths printed by "history show".
const maxShownAnomalies = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// errHistoryDisabled is returned when history.enabled is false.
var errHistoryDisabled = errors.New("history is disabled (history.enabled: false)")

// openHistory opens the configured store.
func openHistory() (*history.Store, int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	if !cfg.History.Enabled {
		return nil, 0, errHistoryDisabled
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open history: %w", err)
	}
	return store, cfg.History.RetentionDays, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	printHistoryTable(cmd.OutOrStdout(), records)
	return nil
}

func printHistoryTable(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		fmt.Fprintln(w, "Run 'rotsniff append <dir>' to start indexing.")
		return
	}

	fmt.Fprintf(w, "\n%-8s  %-16s  %-7s  %-9s  %8s  %8s  %s\n",
		"ID", "WHEN", "OP", "OUTCOME", "CHECKED", "DIVERGED", "ROOT")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, rec := range records {
		diverged := rec.Modified + rec.Missing + rec.Untracked
		fmt.Fprintf(w, "%-8s  %-16s  %-7s  %-9s  %8s  %8s  %s\n",
			rec.ShortID(),
			truncateString(humanize.Time(rec.Started), 16),
			rec.Operation,
			rec.Outcome,
			humanize.Comma(int64(rec.Checked)),
			humanize.Comma(int64(diverged)),
			truncateString(rec.Root, 30),
		)
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "\nShowing %d runs. Use --limit to see more.\n", len(records))
	fmt.Fprintln(w, "Use 'rotsniff history show <id>' for details on a specific run.")
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	printHistoryRecord(cmd.OutOrStdout(), rec)
	return nil
}

func printHistoryRecord(w io.Writer, rec *history.Record) {
	fmt.Fprintln(w, "\nRun Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:         %s\n", rec.ID)
	fmt.Fprintf(w, "Started:    %s\n", rec.Started.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration:   %s\n", rec.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Operation:  %s\n", rec.Operation)
	if rec.Root != "" {
		fmt.Fprintf(w, "Root:       %s\n", rec.Root)
	}
	fmt.Fprintf(w, "Index:      %s (%s entries)\n", rec.Index, humanize.Comma(int64(rec.IndexSize)))
	fmt.Fprintf(w, "Outcome:    %s\n", rec.Outcome)
	if rec.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", rec.Error)
	}
	fmt.Fprintf(w, "Checked:    %s\n", humanize.Comma(int64(rec.Checked)))
	fmt.Fprintf(w, "Hashed:     %s\n", humanize.Comma(int64(rec.Hashed)))
	fmt.Fprintf(w, "Matched:    %s\n", humanize.Comma(int64(rec.Matched)))
	fmt.Fprintf(w, "Skipped:    %s\n", humanize.Comma(int64(rec.Skipped)))
	fmt.Fprintf(w, "Changed:    %s\n", humanize.Comma(int64(rec.Changed)))

	if len(rec.Anomalies) == 0 {
		return
	}

	fmt.Fprintf(w, "\nDivergence (%d modified, %d missing, %d untracked):\n", rec.Modified, rec.Missing, rec.Untracked)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	limit := min(len(rec.Anomalies), maxShownAnomalies)
	for _, a := range rec.Anomalies[:limit] {
		fmt.Fprintf(w, "%-10s  %s\n", a.Outcome, a.Path)
	}
	total := rec.Modified + rec.Missing + rec.Untracked
	if total > limit {
		fmt.Fprintf(w, "\n... and %d more\n", total-limit)
	}
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	store, days, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	printInfo("Cleaning runs older than %d days...", days)
	removed, err := store.Cleanup(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d runs.", removed)
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

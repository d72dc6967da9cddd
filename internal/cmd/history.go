package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/pitufo/internal/history"
	"github.com/harrison/pitufo/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'pitufo history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show runs recorded in a history database",
		Long: `Display runs recorded with --history.

Without arguments, lists the most recent runs with their counts.
With a run ID, lists the outcome of every file in that run.

Examples:
  pitufo history --db runs.db
  pitufo history --db runs.db --limit 50
  pitufo history --db runs.db 6f1c2d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().String("db", "", "Path to the history database (required)")
	cmd.Flags().Int("limit", 10, "Number of runs to list")
	cmd.Flags().Bool("failed", false, "Only list failed files when showing a run")
	cmd.MarkFlagRequired("db")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")
	failedOnly, _ := cmd.Flags().GetBool("failed")
	output := cmd.OutOrStdout()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history found at %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	schema, err := store.GetLatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		outcomes, err := store.RunOutcomes(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("load outcomes: %w", err)
		}
		printRun(output, schema, run, outcomes, failedOnly)
		return nil
	}

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded in %s\n", dbPath)
		return nil
	}
	fmt.Fprintf(output, "History: %s (schema v%d)\n\n", dbPath, schema)
	printRuns(output, runs)
	return nil
}

func printRuns(w io.Writer, runs []*history.Run) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%-36s  %-19s  %8s  %8s  %8s  %8s  %s\n",
		"RUN", "STARTED", "FILES", "REWRITE", "SAME", "FAILED", "ROOT")

	for _, run := range runs {
		failed := fmt.Sprintf("%8d", run.Failed)
		if run.Failed > 0 {
			failed = color.RedString(failed)
		}
		started := run.StartedAt.Local().Format("2006-01-02 15:04:05")
		if run.FinishedAt == nil {
			started += "*"
		}
		fmt.Fprintf(w, "%-36s  %-19s  %8d  %8d  %8d  %s  %s\n",
			run.ID, started, run.Candidates, run.Rewritten, run.Unchanged, failed, run.Root)
	}
}

func printRun(w io.Writer, schema int, run *history.Run, outcomes []*history.OutcomeRecord, failedOnly bool) {
	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Schema:   v%d\n", schema)
	fmt.Fprintf(w, "Root:     %s\n", run.Root)
	fmt.Fprintf(w, "Started:  %s (%s)\n", run.StartedAt.Local().Format(time.RFC3339), humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Duration: unfinished\n")
	}
	fmt.Fprintf(w, "Settings: %s\n", describeSettings(run.Settings))
	fmt.Fprintf(w, "Files:    %d rewritten, %d unchanged, %d failed (%s in, %s out)\n\n",
		run.Rewritten, run.Unchanged, run.Failed,
		humanize.Bytes(uint64(run.BytesIn)), humanize.Bytes(uint64(run.BytesOut)))

	for _, o := range outcomes {
		if failedOnly && o.Status != models.StatusFailed {
			continue
		}
		switch o.Status {
		case models.StatusFailed:
			fmt.Fprintf(w, "%s %s: %s %s\n", color.RedString("%-9s", o.Status), o.ErrorKind, o.ErrorMessage, o.Path)
		case models.StatusRewritten:
			fmt.Fprintf(w, "%s %s (%s -> %s)\n", color.GreenString("%-9s", o.Status), o.Path,
				humanize.Bytes(uint64(o.BytesIn)), humanize.Bytes(uint64(o.BytesOut)))
			if o.DigestBefore != "" && o.DigestAfter != "" {
				fmt.Fprintf(w, "%-9s blake3 %s -> %s\n", "", shortDigest(o.DigestBefore), shortDigest(o.DigestAfter))
			}
		default:
			fmt.Fprintf(w, "%-9s %s\n", o.Status, o.Path)
			if o.DigestAfter != "" {
				fmt.Fprintf(w, "%-9s blake3 %s\n", "", shortDigest(o.DigestAfter))
			}
		}
	}
}

// shortDigest abbreviates a hex digest the way git abbreviates object names.
func shortDigest(hex string) string {
	const n = 12
	if len(hex) <= n {
		return hex
	}
	return hex[:n]
}

func describeSettings(s history.RunSettings) string {
	parts := []string{"pretty"}
	if s.Minify {
		parts[0] = "minify"
	}
	if s.StripBOM {
		parts = append(parts, "strip-bom")
	}
	if s.FollowSymlinks {
		parts = append(parts, "follow")
	}
	if s.MaxDepth > 0 {
		parts = append(parts, fmt.Sprintf("max-depth=%d", s.MaxDepth))
	}
	return strings.Join(parts, ", ")
}

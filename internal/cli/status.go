package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/snapshot"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the result of the latest refresh",
	Long: `Show today's refresh status report, or the run history recorded in the
local database with --history.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("history", false, "List recent runs from the history database")
	statusCmd.Flags().IntP("limit", "n", 10, "Number of runs to list with --history")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, logger, logFile := setup()
	defer logFile.Close()
	history, _ := cmd.Flags().GetBool("history")

	if history {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := initStorage(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println(storage.ErrNoRuns)
			return nil
		}
		printRuns(os.Stdout, runs)
		return nil
	}

	now := time.Now()
	status, err := newSnapshots(cfg).ReadStatus(now)
	if errors.Is(err, snapshot.ErrNotFound) {
		fmt.Printf("No refresh recorded for %s\n", now.Format(time.DateOnly))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("=== Refresh Status (%s) ===\n", now.Format(time.DateOnly))
	printStatus(os.Stdout, status)
	fmt.Printf("\n%d/%d stages succeeded\n", status.Succeeded(), len(model.Stages))
	return nil
}

func printStatus(out io.Writer, status model.RefreshStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STAGE\tSTATUS\tRECORDS\tTIME\tERROR\n")
	for _, st := range model.Stages {
		r, ok := status[st]
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t-\t\n", st)
			continue
		}
		records := "-"
		if r.OK() {
			records = fmt.Sprintf("%d", r.Count())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			st, r.Status, records, r.Timestamp.Format(time.TimeOnly), r.Error)
	}
	w.Flush()
}

func printRuns(out io.Writer, runs []model.RefreshRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RUN\tSTARTED\tDURATION\tSTAGES\tALERTS\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Status.Succeeded(), len(model.Stages),
			r.AlertCount,
		)
	}
	w.Flush()
}

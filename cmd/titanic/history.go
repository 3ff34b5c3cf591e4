package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"titanic-survival/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded training runs and served predictions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initialize(cmd, args); err != nil {
				return err
			}
			if settings.DataPath == "" {
				return fmt.Errorf("history requires DATA_PATH (or system.dataPath) to be set")
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryRunsCmd())
	cmd.AddCommand(newHistorySummaryCmd())
	cmd.AddCommand(newHistoryExportCmd())
	return cmd
}

func newHistoryRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List training runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(settings.DataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListTrainingRuns(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tID\tRECORDS\tTREES\tACCURACY")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\n",
					run.StartedAt.Format(time.RFC3339), run.ID, run.Records, run.Forest.Trees, run.Evaluation.Accuracy)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs to list (0 = all)")
	return cmd
}

func newHistorySummaryCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize predictions served in a recent window",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(settings.DataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			end := time.Now()
			summary, err := store.SummarizePredictions(end.Add(-since), end)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "window to summarize, ending now")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var (
		from, to string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export served predictions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := exportWindow(from, to)
			if err != nil {
				return err
			}

			store, err := storage.New(settings.DataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := store.ExportPredictionsCSV(w, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d predictions\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD), default 30 days ago")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, inclusive), default now")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exportWindow(from, to string) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date: %w", err)
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date: %w", err)
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}

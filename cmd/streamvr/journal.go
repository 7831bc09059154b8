package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamvr/server/internal/config"
	"github.com/streamvr/server/internal/journal"
	"github.com/streamvr/server/internal/tui/views/calls"
)

var (
	journalLimit int
	journalRuns  bool
	journalJSON  bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print recorded host calls",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()

		out := cmd.OutOrStdout()
		if journalRuns {
			runs, err := j.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if journalJSON {
				return json.NewEncoder(out).Encode(runs)
			}
			return printRuns(out, runs)
		}

		entries, err := j.Recent(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		if journalJSON {
			return json.NewEncoder(out).Encode(entries)
		}
		return printEntries(out, entries)
	},
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 50, "Number of most recent calls to print")
	journalCmd.Flags().BoolVar(&journalRuns, "runs", false, "List recorded runs instead of calls")
	journalCmd.Flags().BoolVar(&journalJSON, "json", false, "Print JSON")
}

// printEntries writes entries oldest first, the way they happened.
func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRUN\tAT\tCALL\tDETAIL")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, shortRun(e.RunID), e.Call.At.Format(time.StampMilli), e.Call.Kind, calls.Describe(e.Call))
	}
	return tw.Flush()
}

func printRuns(w io.Writer, runs []journal.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tCALLS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.LastAt.Sub(r.StartedAt).Round(time.Millisecond), r.Calls)
	}
	return tw.Flush()
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

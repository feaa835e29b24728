package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/report"
	"github.com/sells-group/datacleaner/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect cleaning run history",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cleaning runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		file, _ := cmd.Flags().GetString("file")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:   model.RunStatus(status),
			FileName: file,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs get --

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs get")
		}
		return report.WriteJSON(cmd.OutOrStdout(), run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		file, _ := cmd.Flags().GetString("file")
		runs, err := st.ListRuns(ctx, store.RunFilter{FileName: file, Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the run history schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", cfg.Store.Driver)
		return st.Close()
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().String("file", "", "filter by input file name")
	runsListCmd.Flags().Int("limit", 20, "max runs to show")
	runsListCmd.Flags().Int("offset", 0, "runs to skip")

	runsStatsCmd.Flags().String("file", "", "only count runs for this input file name")

	runsCmd.AddCommand(runsListCmd, runsGetCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd, migrateCmd)
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tROWS\tCREATED\tDETAIL")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows := fmt.Sprintf("%d", r.Source.Rows)
		detail := ""
		switch {
		case r.Report != nil:
			rows = fmt.Sprintf("%d -> %d", r.Report.OriginalRows, r.Report.FinalRows)
			detail = r.CleanedFile
		case r.Failure != nil:
			detail = fmt.Sprintf("failed in %s: %s", r.Failure.State, truncate(r.Failure.Message, 60))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id, r.Source.FileName, r.Status, rows, r.CreatedAt.Format("2006-01-02 15:04"), detail)
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Failed      int
	Running     int
	RowsIn      int
	RowsOut     int
	Duplicates  int
	FailedState map[model.RunState]int
	FailedKind  map[model.ErrorKind]int
}

func computeRunStats(runs []model.Run) runStats {
	s := runStats{
		Total:       len(runs),
		FailedState: make(map[model.RunState]int),
		FailedKind:  make(map[model.ErrorKind]int),
	}
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			if r.Report != nil {
				s.RowsIn += r.Report.OriginalRows
				s.RowsOut += r.Report.FinalRows
				s.Duplicates += r.Report.DuplicatesRemoved
			}
		case model.RunStatusFailed:
			s.Failed++
			if r.Failure != nil {
				s.FailedState[r.Failure.State]++
				kind := r.Failure.Kind
				if kind == "" {
					kind = "unclassified"
				}
				s.FailedKind[kind]++
			}
		default:
			s.Running++
		}
	}
	return s
}

func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	for _, state := range sortedKeys(s.FailedState) {
		fmt.Fprintf(w, "  during %s:\t%d\n", state, s.FailedState[state])
	}
	for _, kind := range sortedKeys(s.FailedKind) {
		fmt.Fprintf(w, "  %s:\t%d\n", kind, s.FailedKind[kind])
	}
	fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	if s.Complete > 0 {
		fmt.Fprintf(w, "Rows cleaned:\t%d -> %d\n", s.RowsIn, s.RowsOut)
		fmt.Fprintf(w, "Duplicates removed:\t%d\n", s.Duplicates)
	}
	_ = w.Flush()
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRJAPPS/CBruteLib/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	Run  store.Run   `json:"run"`
	Hits []store.Hit `json:"hits"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs",
		Long: `List the runs journaled by 'cbrute run --db', newest first, or show one
run and its hits with --run.

Examples:
  cbrute history --db ./runs.db
  cbrute history --db ./runs.db --limit 5
  cbrute history --db ./runs.db --run 01928c7e-... --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 means all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run and its hits")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	f := opts.formatter(cmd)
	if _, err := os.Stat(opts.Database); err != nil {
		return fail(f, ErrCodeNotFound, WrapExitError(ExitCommandError, "database not found", err))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	ctx := commandContext(cmd)
	if opts.RunID != "" {
		run, err := st.GetRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return fail(f, ErrCodeNotFound, WrapExitError(ExitCommandError, "run not found", err))
		}
		if err != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to read run", err))
		}
		hits, err := st.Hits(ctx, run.ID)
		if err != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to read hits", err))
		}
		if hits == nil {
			hits = []store.Hit{}
		}
		if f.Format == "json" {
			return f.SuccessWithRun(run.ID, RunDetail{Run: run, Hits: hits})
		}
		printRunDetail(f, run, hits)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to list runs", err))
	}
	if runs == nil {
		runs = []store.Run{}
	}
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs found.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tWINDOW\tTHREADS\tEMITTED\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Status, r.Start, r.End, r.Threads, r.Emitted, r.StartedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printRunDetail(f *OutputFormatter, run store.Run, hits []store.Hit) {
	w := f.Writer
	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	if run.Name != "" {
		fmt.Fprintf(w, "Name:     %s\n", run.Name)
	}
	fmt.Fprintf(w, "Space:    %s %q lengths %d-%d\n", run.Mode, run.Alphabet, run.Min, run.Max)
	fmt.Fprintf(w, "Window:   %d-%d on %d threads\n", run.Start, run.End, run.Threads)
	fmt.Fprintf(w, "Status:   %s after %d candidates\n", run.Status, run.Emitted)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	for _, h := range hits {
		fmt.Fprintf(w, "Hit %d:    %s at position %d (worker %d)\n", h.Seq, h.Candidate, h.Position, h.Worker)
	}
}

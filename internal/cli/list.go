package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Space SpaceOptions
	Start int64
	End   int64
	Limit int64
	Pos   bool // prefix each candidate with its position
}

// ListEntry is one element of the JSON listing.
type ListEntry struct {
	Position  int64  `json:"position"`
	Candidate string `json:"candidate"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every candidate of a window in order",
		Long: `Print the candidates of a window in position order, one per line.

Examples:
  cbrute list -a a,b --max 2
  cbrute list -a :lower --max 8 --start 1000 --limit 20 --positions
  cbrute list --mode permutation -a a-c --max 3 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}
	addSpaceFlags(cmd, &opts.Space)
	cmd.Flags().Int64Var(&opts.Start, "start", 1, "first position")
	cmd.Flags().Int64Var(&opts.End, "end", 0, "last position (0 means the last candidate)")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "stop after this many candidates (0 means no limit)")
	cmd.Flags().BoolVar(&opts.Pos, "positions", false, "prefix each candidate with its position")
	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	f := opts.formatter(cmd)
	space, err := opts.Space.build()
	if err != nil {
		return fail(f, ErrCodeInvalidSpace, err)
	}

	w := bufio.NewWriter(f.Writer)
	var entries []ListEntry
	var e *engine.Engine[string]
	check := func(g engine.Generated[string]) bool {
		s := engine.Format(g.Candidate, opts.Space.Separator)
		switch {
		case f.Format == "json":
			entries = append(entries, ListEntry{Position: g.Position, Candidate: s})
		case opts.Pos:
			fmt.Fprintf(w, "%d\t%s\n", g.Position, s)
		default:
			fmt.Fprintln(w, s)
		}
		if opts.Limit > 0 && g.Generated >= opts.Limit {
			e.Stop()
		}
		return false
	}
	e, err = engine.New(space, engine.Window{Start: opts.Start, End: opts.End}, check,
		engine.WithLogger(opts.logger(f.GetErrWriter())))
	if err != nil {
		return fail(f, ErrCodeInvalidInput, WrapExitError(ExitCommandError, "invalid window", err))
	}
	if err := e.Start(cmd.Context()); err != nil {
		return fail(f, ErrCodeGeneric, WrapExitError(ExitCommandError, "enumeration failed", err))
	}
	if f.Format == "json" {
		if entries == nil {
			entries = []ListEntry{}
		}
		return f.Success(entries)
	}
	return w.Flush()
}

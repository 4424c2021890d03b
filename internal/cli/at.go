package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// CandidateResult is the JSON payload of the at and pos commands.
type CandidateResult struct {
	Position  int64    `json:"position"`
	Candidate string   `json:"candidate"`
	Symbols   []string `json:"symbols"`
}

// NewAtCommand creates the at command.
func NewAtCommand(rootOpts *RootOptions) *cobra.Command {
	space := &SpaceOptions{}

	cmd := &cobra.Command{
		Use:   "at <position>...",
		Short: "Print the candidate at each position",
		Long: `Print the candidate at each 1-based position without enumerating the
positions before it.

Examples:
  cbrute at -a a-z --max 3 1 26 27
  cbrute at -a :digits --max 6 --separator . 123456`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := space.build()
			if err != nil {
				return fail(f, ErrCodeInvalidSpace, err)
			}
			results := make([]CandidateResult, 0, len(args))
			for _, arg := range args {
				pos, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fail(f, ErrCodeInvalidInput, WrapExitError(ExitCommandError, fmt.Sprintf("invalid position %q", arg), err))
				}
				c, err := s.CandidateAt(pos)
				if err != nil {
					return fail(f, ErrCodeInvalidInput, WrapExitError(ExitCommandError, fmt.Sprintf("position %d", pos), err))
				}
				results = append(results, CandidateResult{
					Position:  pos,
					Candidate: engine.Format(c, space.Separator),
					Symbols:   c,
				})
			}
			if f.Format == "json" {
				return f.Success(results)
			}
			for _, r := range results {
				fmt.Fprintln(f.Writer, r.Candidate)
			}
			return nil
		},
	}
	addSpaceFlags(cmd, space)
	return cmd
}

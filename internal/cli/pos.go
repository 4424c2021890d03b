package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// NewPosCommand creates the pos command.
func NewPosCommand(rootOpts *RootOptions) *cobra.Command {
	space := &SpaceOptions{}

	cmd := &cobra.Command{
		Use:   "pos <candidate>...",
		Short: "Print the position of a candidate",
		Long: `Print the 1-based position of a candidate.

A single argument is split on --separator when one is given, and into
characters otherwise. Several arguments are taken as one symbol each, which
is how multi-character symbols are passed without a separator.

Examples:
  cbrute pos -a a-z --max 3 ab
  cbrute pos -a 1-12 --max 2 --separator - 10-3
  cbrute pos -a 1-12 --max 2 10 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := space.build()
			if err != nil {
				return fail(f, ErrCodeInvalidSpace, err)
			}
			symbols := splitCandidate(args, space.Separator)
			pos, err := s.PositionOf(symbols)
			if err != nil {
				return fail(f, ErrCodeInvalidInput, WrapExitError(ExitCommandError, "invalid candidate", err))
			}
			if f.Format == "json" {
				return f.Success(CandidateResult{
					Position:  pos,
					Candidate: engine.Format(symbols, space.Separator),
					Symbols:   symbols,
				})
			}
			fmt.Fprintln(f.Writer, pos)
			return nil
		},
	}
	addSpaceFlags(cmd, space)
	return cmd
}

// splitCandidate turns command arguments into candidate symbols. Input is
// NFC-normalized like alphabet symbols are.
func splitCandidate(args []string, sep string) []string {
	if len(args) > 1 {
		out := make([]string, len(args))
		for i, a := range args {
			out[i] = norm.NFC.String(a)
		}
		return out
	}
	arg := norm.NFC.String(args[0])
	if sep != "" {
		return strings.Split(arg, sep)
	}
	out := make([]string, 0, len(arg))
	for _, r := range arg {
		out = append(out, string(r))
	}
	return out
}

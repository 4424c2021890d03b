package cli

import (
	"github.com/spf13/cobra"
)

// MaxResult is the JSON payload of the max command.
type MaxResult struct {
	Max        int64   `json:"max"`
	Excluded   []int   `json:"excluded,omitempty"`
	SkipRanges [][]int `json:"skip_ranges,omitempty"`
}

// NewMaxCommand creates the max command.
func NewMaxCommand(rootOpts *RootOptions) *cobra.Command {
	space := &SpaceOptions{}

	cmd := &cobra.Command{
		Use:   "max",
		Short: "Print the number of candidates in a space",
		Long: `Print the number of candidates in a space. Excluded lengths own no
positions, so the count covers generatable candidates only.

Examples:
  cbrute max -a :lower --max 4
  cbrute max -a a-c --min 1 --max 5 --exclude 2,3
  cbrute max --mode permutation -a a-e --max 3 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := space.build()
			if err != nil {
				return fail(f, ErrCodeInvalidSpace, err)
			}
			if f.Format != "json" {
				return f.Success(s.Max())
			}
			res := MaxResult{Max: s.Max(), Excluded: s.Excluded()}
			for _, r := range s.SkipRanges() {
				res.SkipRanges = append(res.SkipRanges, []int{r.Min, r.Max})
			}
			return f.Success(res)
		},
	}
	addSpaceFlags(cmd, space)
	return cmd
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/job"
)

// SpaceOptions holds the flags that define a candidate space.
type SpaceOptions struct {
	Mode              string
	Alphabet          string
	Min               int
	Max               int
	Exclude           []int
	Slots             []string // "index=expression"
	TolerateAmbiguity bool
	SubsetTimeout     string
	Separator         string
}

func addSpaceFlags(cmd *cobra.Command, o *SpaceOptions) {
	f := cmd.Flags()
	f.StringVar(&o.Mode, "mode", job.ModeSimple, "space mode (simple|structured|permutation)")
	f.StringVarP(&o.Alphabet, "alphabet", "a", "", "alphabet expression (required)")
	f.IntVar(&o.Min, "min", 1, "minimum candidate length")
	f.IntVar(&o.Max, "max", 0, "maximum candidate length (required)")
	f.IntSliceVar(&o.Exclude, "exclude", nil, "lengths that are never generated")
	f.StringArrayVar(&o.Slots, "slot", nil, "slot override as index=expression, repeatable (structured mode)")
	f.BoolVar(&o.TolerateAmbiguity, "tolerate-ambiguity", false, "allow overrides that address the same slot")
	f.StringVar(&o.SubsetTimeout, "subset-timeout", "", "subset enumeration budget (permutation mode)")
	f.StringVar(&o.Separator, "separator", "", "separator between rendered symbols")
	_ = cmd.MarkFlagRequired("alphabet")
	_ = cmd.MarkFlagRequired("max")
}

// definition converts the flags into a space definition.
func (o *SpaceOptions) definition() (job.Definition, error) {
	d := job.Definition{
		Mode:              o.Mode,
		Alphabet:          o.Alphabet,
		Min:               o.Min,
		Max:               o.Max,
		Exclude:           o.Exclude,
		TolerateAmbiguity: o.TolerateAmbiguity,
		SubsetTimeout:     o.SubsetTimeout,
	}
	for _, s := range o.Slots {
		index, expr, ok := strings.Cut(s, "=")
		if !ok {
			return job.Definition{}, fmt.Errorf("slot %q: want index=expression", s)
		}
		i, err := strconv.Atoi(strings.TrimSpace(index))
		if err != nil {
			return job.Definition{}, fmt.Errorf("slot %q: %w", s, err)
		}
		d.Slots = append(d.Slots, job.Slot{Index: i, Alphabet: expr})
	}
	return d, nil
}

// build constructs the space, reporting failures as command errors.
func (o *SpaceOptions) build() (engine.Space[string], error) {
	d, err := o.definition()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid space", err)
	}
	space, err := d.Build("")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid space", err)
	}
	return space, nil
}

// fail reports err through the formatter and returns it unchanged so that
// the exit code survives.
func fail(f *OutputFormatter, code string, err error) error {
	if f.Format == "json" {
		details := any(nil)
		if c, ok := engine.ValidationCode(err); ok {
			details = map[string]string{"validation_code": string(c)}
		}
		_ = f.Error(code, err.Error(), details)
	}
	return err
}

package job

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MRJAPPS/CBruteLib/internal/alphabet"
	"github.com/MRJAPPS/CBruteLib/internal/coordinator"
	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/subset"
)

func (d Definition) check() error {
	switch d.Mode {
	case "", ModeSimple, ModePermutation:
		if len(d.Slots) > 0 {
			return fmt.Errorf("space: slots require mode %q", ModeStructured)
		}
	case ModeStructured:
		if len(d.Slots) == 0 {
			return fmt.Errorf("space: mode %q needs at least one slot", ModeStructured)
		}
	default:
		return fmt.Errorf("space: unknown mode %q", d.Mode)
	}
	if d.SubsetTimeout != "" {
		if d.Mode != ModePermutation {
			return fmt.Errorf("space: subset_timeout only applies to mode %q", ModePermutation)
		}
		if _, err := time.ParseDuration(d.SubsetTimeout); err != nil {
			return fmt.Errorf("space: subset_timeout: %w", err)
		}
	}
	return nil
}

// Build parses the alphabets and constructs the space. dir resolves relative
// @file items.
func (d Definition) Build(dir string) (engine.Space[string], error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	p := alphabet.Parser{Dir: dir}
	symbols, err := p.Parse(d.Alphabet)
	if err != nil {
		return nil, err
	}
	lengths := engine.Lengths{Min: d.Min, Max: d.Max}

	switch d.Mode {
	case ModeStructured:
		infos := make([]engine.PositionInfo[string], len(d.Slots))
		for i, slot := range d.Slots {
			a, err := p.Parse(slot.Alphabet)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", slot.Index, err)
			}
			infos[i] = engine.PositionInfo[string]{Slot: slot.Index, Alphabet: a}
		}
		s, err := engine.NewStructured(symbols, lengths, infos, engine.StructuredOptions{
			Excluded:          d.Exclude,
			TolerateAmbiguity: d.TolerateAmbiguity,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case ModePermutation:
		timeout, _ := time.ParseDuration(d.SubsetTimeout)
		s, err := engine.NewPermutation(symbols, lengths, engine.PermutationOptions{
			Excluded:      d.Exclude,
			SubsetTimeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := engine.NewSimple(symbols, lengths, d.Exclude...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Space builds the space of the job.
func (j *Job) Space() (engine.Space[string], error) {
	return j.Definition.Build(j.dir)
}

// Window returns the job window.
func (j *Job) Window() engine.Window {
	return engine.Window{Start: j.Bounds.Start, End: j.Bounds.End}
}

// Matcher returns a callback reporting a hit for candidates whose symbols,
// joined with the job separator, equal one of the targets. A job without
// targets never hits.
func (j *Job) Matcher() engine.Callback[string] {
	targets := make(map[string]struct{}, len(j.Targets))
	for _, t := range j.Targets {
		targets[t] = struct{}{}
	}
	sep := j.Separator
	return func(g engine.Generated[string]) bool {
		if len(targets) == 0 {
			return false
		}
		_, ok := targets[engine.Format(g.Candidate, sep)]
		return ok
	}
}

// Options returns the coordinator options the job configures.
func (j *Job) Options(logger *slog.Logger) []coordinator.Option {
	opts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithMaxRetries(j.Retries),
	}
	if j.Retries > 0 {
		opts = append(opts, coordinator.WithErrorHandler(Retryable))
	}
	if d := j.Poll(); d > 0 {
		opts = append(opts, coordinator.WithPollInterval(d))
	}
	if j.RateLimit > 0 {
		opts = append(opts, coordinator.WithRateLimit(j.RateLimit, max(j.Burst, 1)))
	}
	return opts
}

// Retryable reports whether a worker failure may succeed on a second attempt.
// Invalid input, internal faults and subset timeouts fail the same way every
// time.
func Retryable(_ int, err error) bool {
	return !engine.IsValidationError(err) && !engine.IsFault(err) && !errors.Is(err, subset.ErrTimeout)
}

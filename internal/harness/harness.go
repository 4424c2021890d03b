package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MRJAPPS/CBruteLib/internal/coordinator"
	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the space from the scenario definition
// 2. Enumerate the window through a coordinator with a collecting callback
// 3. Sort the listing by position
// 4. Evaluate assertions against the listing
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	s := *scenario
	s.withDefaults()
	h := &Harness{
		scenario: &s,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result, err := h.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) enumerate(ctx context.Context) (*Result, error) {
	s := h.scenario
	space, err := s.Space.Build(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to build space: %w", err)
	}

	var col testutil.Collector[string]
	window := engine.Window{Start: s.Window.Start, End: s.Window.End}
	c, err := coordinator.New(space, window, s.Threads, col.Callback(nil),
		coordinator.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	if err := c.Run(ctx); err != nil {
		return nil, fmt.Errorf("enumeration failed: %w", err)
	}

	result := NewResult()
	result.Threads = c.Threads()
	result.Listing = listing(col.Visits(), s.Separator)
	h.logger.Info("scenario enumerated", "name", s.Name, "candidates", len(result.Listing))
	return result, nil
}

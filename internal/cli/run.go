package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MRJAPPS/CBruteLib/internal/coordinator"
	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/job"
	"github.com/MRJAPPS/CBruteLib/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Threads  int

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, the store defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// HitResult is one target match.
type HitResult struct {
	Worker    int    `json:"worker"`
	Position  int64  `json:"position"`
	Candidate string `json:"candidate"`
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name    string       `json:"name,omitempty"`
	Status  store.Status `json:"status"`
	Threads int          `json:"threads"`
	Emitted int64        `json:"emitted"`
	Hits    []HitResult  `json:"hits"`
	Error   string       `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Search a job's window for its targets",
		Long: `Run a job: partition its window over parallel workers and check every
candidate against the job targets. The run ends as soon as any worker finds
a target.

A job file is YAML or CUE (by extension) and is validated against the job
schema. With --db every run and hit is journaled to a SQLite database.

Exit codes:
  0 - A target was found
  1 - The window was exhausted or the run stopped without a hit
  2 - Command error (invalid job, database error, etc.)

Examples:
  cbrute run ./pin.yaml
  cbrute run --db ./runs.db --threads 8 ./job.cue
  cbrute run ./pin.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().IntVarP(&opts.Threads, "threads", "t", 0, "override the job thread count")

	return cmd
}

// hits collects matches from concurrent workers.
type hits struct {
	mu   sync.Mutex
	list []HitResult
	err  error
}

func (h *hits) add(hit HitResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list = append(h.list, hit)
	if err != nil && h.err == nil {
		h.err = err
	}
}

func (h *hits) sorted() ([]HitResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]HitResult{}, h.list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, h.err
}

func runJob(cmd *cobra.Command, opts *RunOptions, path string) error {
	f := opts.formatter(cmd)
	logger := opts.logger(f.GetErrWriter())

	j, err := job.Load(path)
	if err != nil {
		code := ErrCodeJob
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return fail(f, code, WrapExitError(ExitCommandError, "failed to load job", err))
	}
	if opts.Threads > 0 {
		j.Threads = opts.Threads
	}
	space, err := j.Space()
	if err != nil {
		return fail(f, ErrCodeInvalidSpace, WrapExitError(ExitCommandError, "invalid space", err))
	}
	f.VerboseLog("loaded job %s: %d candidates, %d targets", path, space.Max(), len(j.Targets))

	ctx := commandContext(cmd)

	var st *store.Store
	var run store.Run
	if opts.Database != "" {
		var storeOpts []store.Option
		if opts.IDGenerator != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
		}
		st, err = store.Open(opts.Database, storeOpts...)
		if err != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to open database", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	found := &hits{}
	match := j.Matcher()
	check := func(g engine.Generated[string]) bool {
		if !match(g) {
			return false
		}
		hit := HitResult{Worker: g.EngineID, Position: g.Position, Candidate: engine.Format(g.Candidate, j.Separator)}
		var recErr error
		if st != nil {
			recErr = st.RecordHit(ctx, run.ID, hit.Worker, hit.Position, hit.Candidate)
		}
		found.add(hit, recErr)
		logger.Info("target found", "worker", hit.Worker, "position", hit.Position)
		return true
	}

	c, err := coordinator.New(space, j.Window(), j.Threads, check, j.Options(logger)...)
	if err != nil {
		return fail(f, ErrCodeInvalidInput, WrapExitError(ExitCommandError, "invalid window", err))
	}

	var (
		mu       sync.Mutex
		terminal coordinator.Event
	)
	_ = c.Subscribe(coordinator.ObserverFunc(func(ev coordinator.Event) {
		if ev.Kind == coordinator.EventStart {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if ev.Kind == coordinator.EventStop || ev.Kind == coordinator.EventEnd || ev.Kind == coordinator.EventError {
			terminal = ev
		}
	}))

	if st != nil {
		w := c.Window()
		run, err = st.CreateRun(ctx, store.Run{
			Name:     j.Name,
			Mode:     modeOf(j.Definition.Mode),
			Alphabet: j.Definition.Alphabet,
			Min:      j.Definition.Min,
			Max:      j.Definition.Max,
			Start:    w.Start,
			End:      w.End,
			Threads:  c.Threads(),
		})
		if err != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to journal run", err))
		}
		logger.Debug("run journaled", "run_id", run.ID)
	}

	// SIGINT and SIGTERM stop the workers gracefully.
	sigCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			c.Stop()
		case <-sigCtx.Done():
		}
	}()

	runErr := c.Run(ctx)

	mu.Lock()
	term := terminal
	mu.Unlock()
	list, recErr := found.sorted()

	res := RunResult{
		Name:    j.Name,
		Threads: c.Threads(),
		Emitted: c.Emitted(),
		Hits:    list,
	}
	switch {
	case runErr != nil || term.Kind == coordinator.EventError:
		res.Status = store.StatusFailed
		if runErr == nil {
			runErr = term.Err
		}
		if runErr != nil {
			res.Error = runErr.Error()
		}
	case c.Found():
		res.Status = store.StatusFound
	case term.Kind == coordinator.EventStop:
		res.Status = store.StatusStopped
	default:
		res.Status = store.StatusExhausted
	}

	if st != nil {
		// The journal is closed out even when ctx was cancelled.
		if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, store.Outcome{
			Status:  res.Status,
			Emitted: res.Emitted,
			Err:     runErr,
		}); err != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to journal outcome", err))
		}
		if recErr != nil {
			return fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to journal hit", recErr))
		}
	}

	if err := printRun(f, run.ID, res); err != nil {
		return err
	}

	switch res.Status {
	case store.StatusFound:
		return nil
	case store.StatusFailed:
		return WrapExitError(ExitCommandError, "run failed", runErr)
	default:
		return NewExitError(ExitFailure, fmt.Sprintf("no target found (%s)", res.Status))
	}
}

func printRun(f *OutputFormatter, runID string, res RunResult) error {
	if f.Format == "json" {
		return f.SuccessWithRun(runID, res)
	}
	for _, h := range res.Hits {
		fmt.Fprintf(f.Writer, "found %s at position %d (worker %d)\n", h.Candidate, h.Position, h.Worker)
	}
	fmt.Fprintf(f.Writer, "%s: %d candidates checked on %d threads\n", res.Status, res.Emitted, res.Threads)
	if runID != "" {
		fmt.Fprintf(f.Writer, "run %s\n", runID)
	}
	return nil
}

func modeOf(mode string) string {
	if mode == "" {
		return job.ModeSimple
	}
	return mode
}

// commandContext returns the command context, or Background when the
// command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often a paused engine checks whether it may resume.
const DefaultPollInterval = 200 * time.Millisecond

// Engine drives a generation loop over a Space within a window.
//
// The loop runs on the goroutine that calls Start. All other methods are safe
// to call from any goroutine.
type Engine[S comparable] struct {
	space     Space[S]
	check     Callback[S]
	id        int
	poll      time.Duration
	found     *atomic.Bool
	logger    *slog.Logger
	observers []Observer[S]

	// mu guards the window, the totals derived from it and the run state
	// transitions made outside the loop.
	mu      sync.Mutex
	window  Window
	total   int64
	restart bool

	state     atomic.Int32
	paused    atomic.Bool
	stopped   atomic.Bool
	realPos   atomic.Int64
	generated atomic.Int64
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	id     int
	poll   time.Duration
	found  *atomic.Bool
	logger *slog.Logger
}

// WithID sets the identifier reported in events and callbacks.
func WithID(id int) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithPollInterval sets how often a paused engine polls for resume.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithFoundSignal shares a flag between engines. Once it is set, an engine
// emits no further candidates and ends without a hit.
func WithFoundSignal(flag *atomic.Bool) Option {
	return func(o *options) {
		o.found = flag
	}
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an idle engine over window of space. check is called for every
// candidate.
func New[S comparable](space Space[S], window Window, check Callback[S], opts ...Option) (*Engine[S], error) {
	if space == nil {
		return nil, validationErr(ErrCodeInvalidArgument, "space", "must not be nil")
	}
	if check == nil {
		return nil, validationErr(ErrCodeInvalidArgument, "callback", "must not be nil")
	}
	w, err := resolveWindow(space, window)
	if err != nil {
		return nil, err
	}

	o := options{id: -1, poll: DefaultPollInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine[S]{
		space:  space,
		check:  check,
		id:     o.id,
		poll:   o.poll,
		found:  o.found,
		logger: o.logger,
		window: w,
		total:  w.Size(),
	}
	e.realPos.Store(w.Start - 1)
	return e, nil
}

func resolveWindow[S comparable](space Space[S], w Window) (Window, error) {
	last := space.Max()
	if w.End <= 0 {
		w.End = last
	}
	if w.Start < 1 {
		return Window{}, validationErr(ErrCodeInvalidWindow, "start", "must be >= 1, got %d", w.Start)
	}
	if w.End > last {
		return Window{}, validationErr(ErrCodeInvalidWindow, "end", "must be <= %d, got %d", last, w.End)
	}
	if w.Start > w.End {
		return Window{}, validationErr(ErrCodeInvalidWindow, "start", "%d is past end %d", w.Start, w.End)
	}
	return w, nil
}

// Subscribe registers an observer. Observers must be registered before Start.
func (e *Engine[S]) Subscribe(obs Observer[S]) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State().active() {
		return ErrAlreadyRunning
	}
	e.observers = append(e.observers, obs)
	return nil
}

// Space returns the space the engine walks.
func (e *Engine[S]) Space() Space[S] { return e.space }

// ID returns the identifier set with WithID, or -1.
func (e *Engine[S]) ID() int { return e.id }

// State returns the current run state.
func (e *Engine[S]) State() RunState { return RunState(e.state.Load()) }

// Running reports whether a generation loop is active, paused or not.
func (e *Engine[S]) Running() bool { return e.State().active() }

// StartPos returns the first position of the window.
func (e *Engine[S]) StartPos() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.Start
}

// EndPos returns the last position of the window.
func (e *Engine[S]) EndPos() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.End
}

// Window returns the current window.
func (e *Engine[S]) Window() Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

// Total returns the number of candidates in the window.
func (e *Engine[S]) Total() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// RealPos returns the position of the last generated candidate, or the
// position before the window when nothing was generated yet.
func (e *Engine[S]) RealPos() int64 { return e.realPos.Load() }

// Generated returns the number of candidates generated since the last
// (re)start of the loop.
func (e *Engine[S]) Generated() int64 { return e.generated.Load() }

// SetStartPos moves the start of the window. A running loop restarts at the
// new position with its next step.
func (e *Engine[S]) SetStartPos(pos int64) error {
	return e.mutateWindow(true, func(w Window) Window {
		w.Start = pos
		return w
	})
}

// SetEndPos moves the end of the window. A running loop keeps going and stops
// at the new end. A non-positive pos means the last position of the space.
func (e *Engine[S]) SetEndPos(pos int64) error {
	return e.mutateWindow(false, func(w Window) Window {
		w.End = pos
		return w
	})
}

// SetWindow replaces the window and, when running, restarts at its start.
func (e *Engine[S]) SetWindow(w Window) error {
	return e.mutateWindow(true, func(Window) Window {
		return w
	})
}

// mutateWindow applies edit under the engine lock. The loop only reads the
// window while holding the same lock, so a running loop never observes a
// half-applied change. An invalid result leaves the window untouched.
func (e *Engine[S]) mutateWindow(restart bool, edit func(Window) Window) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := resolveWindow(e.space, edit(e.window))
	if err != nil {
		return err
	}
	e.window = w
	e.total = w.Size()
	if restart && e.State().active() {
		e.restart = true
	}
	return nil
}

// SetPaused pauses or resumes a running engine. Pausing an engine that is not
// running returns ErrNotRunning. Resuming is always accepted.
func (e *Engine[S]) SetPaused(paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !paused {
		e.paused.Store(false)
		return nil
	}
	if !e.State().active() {
		return ErrNotRunning
	}
	e.paused.Store(true)
	return nil
}

// Paused reports whether a pause is requested.
func (e *Engine[S]) Paused() bool { return e.paused.Load() }

// Stop asks a running loop to stop at its next check. It is a no-op on an
// engine that is not running.
func (e *Engine[S]) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State().active() {
		e.stopped.Store(true)
	}
}

// Start runs the generation loop on the calling goroutine until the window is
// exhausted, the callback reports a hit, the engine is stopped or ctx is done.
//
// A failure resets the engine to idle and is returned; no Error event is
// emitted.
func (e *Engine[S]) Start(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	if err := e.run(ctx); err != nil {
		e.fail(err)
		return err
	}
	return nil
}

// StartEvents is Start with failures delivered as an Error event instead of a
// return value.
func (e *Engine[S]) StartEvents(ctx context.Context) {
	if err := e.begin(); err != nil {
		e.emit(Event[S]{Kind: EventError, Err: err})
		return
	}
	if err := e.run(ctx); err != nil {
		e.fail(err)
		e.emit(Event[S]{Kind: EventError, Err: err, Position: e.RealPos(), Generated: e.Generated(), Total: e.Total()})
	}
}

func (e *Engine[S]) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State().active() {
		return ErrAlreadyRunning
	}
	e.restart = false
	e.total = e.window.Size()
	e.generated.Store(0)
	e.realPos.Store(e.window.Start - 1)
	e.state.Store(int32(StateRunning))
	return nil
}

// settle moves the engine to a resting state and clears the transient flags.
func (e *Engine[S]) settle(state RunState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused.Store(false)
	e.stopped.Store(false)
	e.restart = false
	e.state.Store(int32(state))
}

func (e *Engine[S]) fail(err error) {
	e.settle(StateIdle)
	e.logger.Debug("engine failed", "engine", e.id, "real_pos", e.RealPos(), "error", err)
}

func (e *Engine[S]) emit(ev Event[S]) {
	ev.EngineID = e.id
	for _, obs := range e.observers {
		obs.Observe(ev)
	}
}

func (e *Engine[S]) snapshot(kind EventKind, cur []S) Event[S] {
	return Event[S]{
		Kind:      kind,
		Candidate: slices.Clone(cur),
		Position:  e.RealPos(),
		Generated: e.Generated(),
		Total:     e.Total(),
	}
}

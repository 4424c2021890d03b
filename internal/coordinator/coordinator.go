package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is in progress.
	ErrAlreadyRunning = errors.New("coordinator is already running")

	// ErrNotRunning is returned by Pause and Resume outside a run.
	ErrNotRunning = errors.New("coordinator is not running")
)

// Coordinator partitions a window over parallel engines and aggregates their
// lifecycle into one run.
type Coordinator[S comparable] struct {
	space   engine.Space[S]
	window  engine.Window
	parts   []engine.Window
	check   engine.Callback[S]
	opts    options
	logger  *slog.Logger
	limiter *rate.Limiter
	workers []*worker[S]

	observers       []Observer
	workerObservers []engine.Observer[S]

	found   atomic.Bool
	emitted atomic.Int64

	pause, resume, stop, end, failed, hits *Barrier

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	pausing  bool
	settled  bool
	result   error
	lastErr  error
	finished chan struct{}
}

type worker[S comparable] struct {
	id      int
	engine  *engine.Engine[S]
	done    atomic.Bool
	lastErr error
	retries int
	backoff backoff.BackOff
}

// New builds one engine per part of window. A non-positive window end means
// the last position of space. threads is reduced to the window size when the
// window is smaller.
func New[S comparable](space engine.Space[S], window engine.Window, threads int, check engine.Callback[S], opts ...Option) (*Coordinator[S], error) {
	if space == nil {
		return nil, errors.New("coordinator: nil space")
	}
	if check == nil {
		return nil, errors.New("coordinator: nil callback")
	}
	if window.End <= 0 {
		window.End = space.Max()
	}
	parts, err := Partition(window, threads)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Coordinator[S]{
		space:    space,
		window:   window,
		parts:    parts,
		check:    check,
		opts:     o,
		logger:   o.logger,
		pause:    NewBarrier(),
		resume:   NewBarrier(),
		stop:     NewBarrier(),
		end:      NewBarrier(),
		failed:   NewBarrier(),
		hits:     NewBarrier(),
		finished: make(chan struct{}),
	}
	close(c.finished)
	if o.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.rps), o.burst)
	}

	wrapped := c.wrap(check)
	for i, part := range parts {
		w := &worker[S]{id: i}
		e, err := engine.New(space, part, wrapped,
			engine.WithID(i),
			engine.WithPollInterval(o.poll),
			engine.WithFoundSignal(&c.found),
			engine.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}
		if err := e.Subscribe(engine.ObserverFunc[S](func(ev engine.Event[S]) {
			c.onWorkerEvent(w, ev)
		})); err != nil {
			return nil, err
		}
		w.engine = e
		c.workers = append(c.workers, w)
	}
	return c, nil
}

// wrap applies the rate limit, counts candidates and raises the found flag.
// Candidates generated after the run context is done never reach check.
func (c *Coordinator[S]) wrap(check engine.Callback[S]) engine.Callback[S] {
	return func(g engine.Generated[S]) bool {
		ctx := c.runContext()
		if ctx.Err() != nil {
			return false
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return false
			}
		}
		c.emitted.Add(1)
		if check(g) {
			c.found.Store(true)
			return true
		}
		return false
	}
}

func (c *Coordinator[S]) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Subscribe registers an observer of aggregate events. It must be called
// before Start.
func (c *Coordinator[S]) Subscribe(obs Observer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.observers = append(c.observers, obs)
	return nil
}

// SubscribeWorkers registers an observer of every worker's engine events. It
// must be called before Start.
func (c *Coordinator[S]) SubscribeWorkers(obs engine.Observer[S]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.workerObservers = append(c.workerObservers, obs)
	return nil
}

// Partition returns the window of each worker as assigned at construction.
func (c *Coordinator[S]) Partition() []engine.Window {
	return append([]engine.Window(nil), c.parts...)
}

// Window returns the overall window.
func (c *Coordinator[S]) Window() engine.Window { return c.window }

// Threads returns the effective worker count.
func (c *Coordinator[S]) Threads() int { return len(c.workers) }

// Worker returns the engine of worker i. Moving its window while running
// restarts only that worker.
func (c *Coordinator[S]) Worker(i int) *engine.Engine[S] { return c.workers[i].engine }

// Workers returns every worker engine in partition order.
func (c *Coordinator[S]) Workers() []*engine.Engine[S] {
	out := make([]*engine.Engine[S], len(c.workers))
	for i, w := range c.workers {
		out[i] = w.engine
	}
	return out
}

// Found reports whether some worker reported a hit in the current or last run.
func (c *Coordinator[S]) Found() bool { return c.found.Load() }

// Emitted returns the number of candidates handed to the callback in the
// current or last run.
func (c *Coordinator[S]) Emitted() int64 { return c.emitted.Load() }

// Running reports whether a run is in progress.
func (c *Coordinator[S]) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run starts the workers and waits for them.
func (c *Coordinator[S]) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Wait()
}

// Start launches one goroutine per worker and returns immediately. Every run
// begins from the construction-time partition.
func (c *Coordinator[S]) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	n := len(c.workers)
	for i, w := range c.workers {
		if err := w.engine.SetWindow(c.parts[i]); err != nil {
			c.mu.Unlock()
			return err
		}
		w.done.Store(false)
		w.lastErr = nil
		w.retries = 0
		w.backoff = nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.pausing = false
	c.settled = false
	c.result = nil
	c.lastErr = nil
	c.ctx = runCtx
	c.cancel = cancel
	c.finished = make(chan struct{})
	c.found.Store(false)
	c.emitted.Store(0)
	c.pause.Disarm()
	c.resume.Disarm()
	c.stop.Disarm()
	c.end.Arm(n)
	c.failed.Arm(n)
	c.hits.Arm(n)
	finished := c.finished
	c.mu.Unlock()

	c.logger.Info("coordinator started", "threads", n, "start", c.window.Start, "end", c.window.End)
	c.emit(Event{Kind: EventStart})

	var g errgroup.Group
	for _, w := range c.workers {
		g.Go(func() error {
			c.runWorker(runCtx, w)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		cancel()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(finished)
	}()
	return nil
}

// Wait blocks until every worker goroutine has returned. It returns the last
// worker error when every worker failed.
func (c *Coordinator[S]) Wait() error {
	c.mu.Lock()
	finished := c.finished
	c.mu.Unlock()
	<-finished

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Pause asks every worker to pause. The aggregate Pause event fires once all
// workers have paused or finished. A worker that has not begun yet, or is
// waiting to retry, pauses on its next start.
func (c *Coordinator[S]) Pause() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.pausing = true
	c.resume.Disarm()
	c.pause.Arm(len(c.workers))
	tripped := false
	for _, w := range c.workers {
		if w.done.Load() {
			tripped = c.pause.Credit(w.id) || tripped
			continue
		}
		// Idle engines refuse; they pick the request up from pausing.
		_ = w.engine.SetPaused(true)
	}
	pending := c.pause.Remaining()
	c.mu.Unlock()

	c.logger.Debug("coordinator pausing", "pending", pending)

	if tripped {
		c.emit(Event{Kind: EventPause})
	}
	return nil
}

// Resume releases paused workers. The aggregate Resume event fires once every
// worker has resumed or finished.
func (c *Coordinator[S]) Resume() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.pausing = false
	c.pause.Disarm()
	c.resume.Arm(len(c.workers))
	tripped := false
	for _, w := range c.workers {
		_ = w.engine.SetPaused(false)
		// Engines that never reached their pause check will not report a
		// resume of their own.
		if w.done.Load() || w.engine.State() != engine.StatePaused {
			tripped = c.resume.Credit(w.id) || tripped
		}
	}
	c.mu.Unlock()

	if tripped {
		c.emit(Event{Kind: EventResume})
	}
	return nil
}

// Paused reports whether every worker is held by the current pause request.
func (c *Coordinator[S]) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pausing && c.pause.Tripped()
}

// Stop asks every worker to stop and disables retries for the rest of the run.
// Workers that have not begun yet never generate.
func (c *Coordinator[S]) Stop() {
	c.mu.Lock()
	if !c.running || c.stop.Armed() {
		c.mu.Unlock()
		return
	}
	tripped := c.armStop()
	for _, w := range c.workers {
		if !w.done.Load() {
			w.engine.Stop()
		}
	}
	pending := c.stop.Remaining()
	cancel := c.cancel
	c.mu.Unlock()
	cancel()

	c.logger.Info("coordinator stopping", "pending", pending)
	if tripped {
		c.settle(EventStop)
	}
}

// armStop starts the stop round and credits finished workers. It reports
// whether that tripped the barrier. c.mu must be held.
func (c *Coordinator[S]) armStop() bool {
	if c.stop.Armed() {
		return false
	}
	c.stop.Arm(len(c.workers))
	tripped := false
	for _, w := range c.workers {
		if w.done.Load() {
			tripped = c.stop.Credit(w.id) || tripped
		}
	}
	return tripped
}

func (c *Coordinator[S]) runWorker(ctx context.Context, w *worker[S]) {
	for !c.stop.Armed() && ctx.Err() == nil {
		w.lastErr = nil
		w.engine.StartEvents(ctx)
		if w.lastErr == nil || !c.retry(ctx, w) {
			break
		}
	}
	c.terminate(ctx, w)
}

// retry reports whether the failed worker should run again and, if so, moves
// its window start to the last generated position.
func (c *Coordinator[S]) retry(ctx context.Context, w *worker[S]) bool {
	log := c.logger.With("worker", w.id, "error", w.lastErr)
	if c.stop.Armed() || ctx.Err() != nil || c.opts.onError == nil || !c.opts.onError(w.id, w.lastErr) {
		log.Warn("worker failed")
		return false
	}
	if w.backoff == nil {
		w.backoff = c.opts.retryBackoff()
	}
	delay := w.backoff.NextBackOff()
	if delay == backoff.Stop {
		log.Warn("worker failed, retries exhausted", "retries", w.retries)
		return false
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	from := max(w.engine.RealPos(), w.engine.StartPos())
	if err := w.engine.SetStartPos(from); err != nil {
		log.Warn("worker retry rejected", "from", from, "reason", err)
		return false
	}
	w.retries++
	log.Info("worker retrying", "from", from, "attempt", w.retries)
	return true
}

// terminate credits the barriers a finished worker can no longer signal on
// its own. A worker ending on a done run context counts as stopped.
func (c *Coordinator[S]) terminate(ctx context.Context, w *worker[S]) {
	w.done.Store(true)
	if c.pause.Credit(w.id) {
		c.emit(Event{Kind: EventPause})
	}
	if c.resume.Credit(w.id) {
		c.emit(Event{Kind: EventResume})
	}

	if w.lastErr != nil {
		c.mu.Lock()
		c.lastErr = w.lastErr
		c.mu.Unlock()
		if c.failed.Credit(w.id) {
			c.settle(EventError)
		}
	}
	if ctx.Err() != nil {
		c.mu.Lock()
		tripped := c.armStop()
		c.mu.Unlock()
		if tripped {
			c.settle(EventStop)
		}
	}
	if c.stop.Credit(w.id) {
		c.settle(EventStop)
	}
	if c.end.Credit(w.id) {
		c.settle(EventEnd)
	}
}

// settle emits the terminal aggregate event once per run.
func (c *Coordinator[S]) settle(kind EventKind) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	ev := Event{Kind: kind, Found: c.hits.Count() > 0}
	if kind == EventError {
		ev.Err = c.lastErr
		c.result = c.lastErr
	}
	c.mu.Unlock()

	c.logger.Info("coordinator finished", "event", kind.String(), "found", ev.Found, "emitted", c.emitted.Load())
	c.emit(ev)
}

func (c *Coordinator[S]) onWorkerEvent(w *worker[S], ev engine.Event[S]) {
	switch ev.Kind {
	case engine.EventStart:
		c.mu.Lock()
		if c.pausing {
			_ = w.engine.SetPaused(true)
		}
		c.mu.Unlock()
	case engine.EventPause:
		if c.pause.Credit(w.id) {
			c.emit(Event{Kind: EventPause})
		}
	case engine.EventResume:
		if c.resume.Credit(w.id) {
			c.emit(Event{Kind: EventResume})
		}
	case engine.EventEnd:
		if ev.Found {
			c.hits.Credit(w.id)
		}
	case engine.EventError:
		w.lastErr = ev.Err
	}
	for _, obs := range c.workerObservers {
		obs.Observe(ev)
	}
}

func (c *Coordinator[S]) emit(ev Event) {
	for _, obs := range c.observers {
		obs.Observe(ev)
	}
}

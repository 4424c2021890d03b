package coordinator_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRJAPPS/CBruteLib/internal/coordinator"
	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/testutil"
)

func space(t *testing.T) *engine.SimpleSpace[int] {
	t.Helper()
	s, err := engine.NewSimple([]int{1, 2, 3, 4, 5}, engine.Lengths{Min: 1, Max: 5})
	require.NoError(t, err)
	return s
}

func span(w engine.Window) []int64 {
	out := make([]int64, 0, w.Size())
	for p := w.Start; p <= w.End; p++ {
		out = append(out, p)
	}
	return out
}

func TestCoordinator_CoversWindow(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()

	w := engine.Window{Start: 1, End: 1000}
	c, err := coordinator.New(s, w, 4, col.Callback(nil))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	require.Equal(t, 4, c.Threads())

	require.NoError(t, c.Run(t.Context()))

	assert.Equal(t, span(w), col.Positions())
	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventEnd}, rec.Kinds())
	assert.False(t, rec.Events()[1].Found)
	assert.Equal(t, int64(1000), c.Emitted())
	assert.False(t, c.Running())

	// Each worker walks its own part in increasing order.
	for i, part := range c.Partition() {
		assert.Equal(t, span(part), col.WorkerPositions(i))
		assert.Equal(t, engine.StateEnded, c.Worker(i).State())
	}

	// Candidates agree with the direct mapping.
	for _, v := range col.Visits() {
		want, err := s.CandidateAt(v.Position)
		require.NoError(t, err)
		require.Equal(t, want, v.Candidate)
	}
}

func TestCoordinator_ReducesThreads(t *testing.T) {
	var col testutil.Collector[int]
	c, err := coordinator.New(space(t), engine.Window{Start: 3, End: 5}, 8, col.Callback(nil))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Threads())

	require.NoError(t, c.Run(t.Context()))
	assert.Equal(t, []int64{3, 4, 5}, col.Positions())
}

func TestCoordinator_DefaultEndIsMax(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	c, err := coordinator.New(s, engine.Window{Start: 1}, 3, col.Callback(nil))
	require.NoError(t, err)
	assert.Equal(t, s.Max(), c.Window().End)

	require.NoError(t, c.Run(t.Context()))
	assert.Equal(t, int(s.Max()), col.Len())
}

func TestCoordinator_FoundStopsEveryone(t *testing.T) {
	s := space(t)
	target := []int{4, 4, 4, 4}
	targetPos, err := s.PositionOf(target)
	require.NoError(t, err)

	var col testutil.Collector[int]
	var foundAt atomic.Int64
	rec := testutil.NewRecorder()
	c, err := coordinator.New(s, engine.Window{Start: 1}, 4, col.Callback(func(g engine.Generated[int]) bool {
		time.Sleep(10 * time.Microsecond)
		if slices.Equal(g.Candidate, target) {
			foundAt.Store(col.Now())
			return true
		}
		return false
	}))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	require.NoError(t, c.Run(t.Context()))

	assert.True(t, c.Found())
	assert.Equal(t, 1, rec.Count(coordinator.EventEnd))
	assert.Zero(t, rec.Count(coordinator.EventStop))
	end := rec.Events()[len(rec.Events())-1]
	assert.Equal(t, coordinator.EventEnd, end.Kind)
	assert.True(t, end.Found)

	// Siblings may finish the candidate they were handling when the flag
	// went up, but start no new one.
	after := 0
	for _, v := range col.Visits() {
		if v.Seq > foundAt.Load() {
			after++
		}
	}
	assert.LessOrEqual(t, after, c.Threads()-1)
	assert.Less(t, int64(col.Len()), s.Max())
	assert.Contains(t, col.Positions(), targetPos)

	for _, e := range c.Workers() {
		assert.Equal(t, engine.StateEnded, e.State())
	}
}

func TestCoordinator_PauseResume(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	w := engine.Window{Start: 1, End: 400}
	c, err := coordinator.New(s, w, 3, col.Callback(func(engine.Generated[int]) bool {
		time.Sleep(200 * time.Microsecond)
		return false
	}), coordinator.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	workers := testutil.NewEngineRecorder[int]()
	require.NoError(t, c.SubscribeWorkers(workers))

	assert.ErrorIs(t, c.Pause(), coordinator.ErrNotRunning)

	require.NoError(t, c.Start(context.Background()))
	workers.Wait(t, engine.EventStart, 3)
	require.NoError(t, c.Pause())
	rec.Wait(t, coordinator.EventPause, 1)

	for _, e := range c.Workers() {
		st := e.State()
		assert.True(t, st == engine.StatePaused || st == engine.StateEnded, "state %s", st)
	}
	frozen := col.Len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, col.Len())

	require.NoError(t, c.Resume())
	rec.Wait(t, coordinator.EventResume, 1)
	require.NoError(t, c.Wait())

	assert.Equal(t, span(w), col.Positions())
	assert.Equal(t, []coordinator.EventKind{
		coordinator.EventStart, coordinator.EventPause, coordinator.EventResume, coordinator.EventEnd,
	}, rec.Kinds())
}

func TestCoordinator_Stop(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	c, err := coordinator.New(s, engine.Window{Start: 1}, 4, col.Callback(func(engine.Generated[int]) bool {
		time.Sleep(100 * time.Microsecond)
		return false
	}))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	workers := testutil.NewEngineRecorder[int]()
	require.NoError(t, c.SubscribeWorkers(workers))

	require.NoError(t, c.Start(context.Background()))
	workers.Wait(t, engine.EventStart, 4)
	c.Stop()
	require.NoError(t, c.Wait())

	assert.Equal(t, 1, rec.Count(coordinator.EventStop))
	assert.Zero(t, rec.Count(coordinator.EventEnd))
	assert.Less(t, int64(col.Len()), s.Max())
	for _, e := range c.Workers() {
		assert.Equal(t, engine.StateStopped, e.State())
	}
}

func TestCoordinator_PauseBeforeWorkersBegin(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	w := engine.Window{Start: 1, End: 300}
	c, err := coordinator.New(s, w, 3, col.Callback(func(engine.Generated[int]) bool {
		time.Sleep(200 * time.Microsecond)
		return false
	}), coordinator.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Pause())
	rec.Wait(t, coordinator.EventPause, 1)
	assert.True(t, c.Paused())

	frozen := col.Len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, col.Len(), "candidates generated while paused")
	for _, e := range c.Workers() {
		st := e.State()
		assert.True(t, st == engine.StatePaused || st == engine.StateEnded, "state %s", st)
	}

	require.NoError(t, c.Resume())
	assert.False(t, c.Paused())
	require.NoError(t, c.Wait())

	assert.Equal(t, span(w), col.Positions())
	assert.Equal(t, []coordinator.EventKind{
		coordinator.EventStart, coordinator.EventPause, coordinator.EventResume, coordinator.EventEnd,
	}, rec.Kinds())
}

func TestCoordinator_PauseDuringRetryBackoff(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	var failed atomic.Bool
	rec := testutil.NewRecorder()
	workers := testutil.NewEngineRecorder[int]()

	w := engine.Window{Start: 1, End: 40}
	c, err := coordinator.New(s, w, 1, col.Callback(func(g engine.Generated[int]) bool {
		if g.Position == 5 && failed.CompareAndSwap(false, true) {
			panic("transient")
		}
		return false
	}),
		coordinator.WithPollInterval(5*time.Millisecond),
		coordinator.WithErrorHandler(func(int, error) bool { return true }),
		coordinator.WithBackoff(func() backoff.BackOff { return backoff.NewConstantBackOff(50 * time.Millisecond) }),
	)
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	require.NoError(t, c.SubscribeWorkers(workers))

	require.NoError(t, c.Start(context.Background()))
	workers.Wait(t, engine.EventError, 1)
	require.NoError(t, c.Pause())
	// The worker is waiting out its backoff and has not paused yet.
	assert.Zero(t, rec.Count(coordinator.EventPause))
	assert.False(t, c.Paused())

	rec.Wait(t, coordinator.EventPause, 1)
	assert.Equal(t, engine.StatePaused, c.Worker(0).State())
	frozen := col.Len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, col.Len())

	require.NoError(t, c.Resume())
	require.NoError(t, c.Wait())

	assert.Equal(t, []engine.EventKind{
		engine.EventStart, engine.EventError, engine.EventStart, engine.EventPause, engine.EventResume, engine.EventEnd,
	}, workers.Kinds(0))
	want := slices.Sorted(slices.Values(append(span(w), 5)))
	assert.Equal(t, want, col.Positions())
}

func TestCoordinator_StopBeforeWorkersBegin(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	c, err := coordinator.New(s, engine.Window{Start: 1}, 4, col.Callback(func(engine.Generated[int]) bool {
		time.Sleep(100 * time.Microsecond)
		return false
	}))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))

	require.NoError(t, c.Start(context.Background()))
	c.Stop()
	seen := col.Len()
	require.NoError(t, c.Wait())

	// Only candidates already inside the callback may still land.
	assert.LessOrEqual(t, col.Len()-seen, c.Threads())
	assert.Equal(t, int64(col.Len()), c.Emitted())
	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventStop}, rec.Kinds())
	for _, e := range c.Workers() {
		st := e.State()
		assert.True(t, st == engine.StateStopped || st == engine.StateIdle, "state %s", st)
	}
}

func TestCoordinator_CancelledBeforeStart(t *testing.T) {
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 100}, 3, col.Callback(nil))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.NoError(t, c.Run(ctx))

	assert.Zero(t, col.Len())
	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventStop}, rec.Kinds())
	for _, e := range c.Workers() {
		assert.Equal(t, engine.StateIdle, e.State())
	}
}

func TestCoordinator_ContextCancelStops(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	rec := testutil.NewRecorder()
	c, err := coordinator.New(s, engine.Window{Start: 1}, 4, col.Callback(func(engine.Generated[int]) bool {
		time.Sleep(100 * time.Microsecond)
		return false
	}))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	workers := testutil.NewEngineRecorder[int]()
	require.NoError(t, c.SubscribeWorkers(workers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	workers.Wait(t, engine.EventStart, 4)
	cancel()
	require.NoError(t, c.Wait())

	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventStop}, rec.Kinds())
	assert.False(t, rec.Events()[1].Found)
	assert.Less(t, int64(col.Len()), s.Max())
	for _, e := range c.Workers() {
		assert.Equal(t, engine.StateStopped, e.State())
	}
}

func TestCoordinator_RetryResumesFromLastPosition(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	var failed atomic.Bool
	workers := testutil.NewEngineRecorder[int]()
	rec := testutil.NewRecorder()

	var handled []int
	w := engine.Window{Start: 1, End: 40}
	c, err := coordinator.New(s, w, 2, col.Callback(func(g engine.Generated[int]) bool {
		if g.Position == 7 && failed.CompareAndSwap(false, true) {
			panic("transient")
		}
		return false
	}),
		coordinator.WithErrorHandler(func(worker int, err error) bool {
			handled = append(handled, worker)
			var pe *engine.PanicError
			return errors.As(err, &pe)
		}),
		coordinator.WithBackoff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))
	require.NoError(t, c.SubscribeWorkers(workers))
	require.NoError(t, c.Run(t.Context()))

	assert.Equal(t, []int{0}, handled)
	assert.Equal(t, []engine.EventKind{engine.EventStart, engine.EventError, engine.EventStart, engine.EventEnd}, workers.Kinds(0))
	assert.Equal(t, []engine.EventKind{engine.EventStart, engine.EventEnd}, workers.Kinds(1))
	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventEnd}, rec.Kinds())

	// Position 7 is visited twice: once when it failed and once on retry.
	want := slices.Sorted(slices.Values(append(span(w), 7)))
	assert.Equal(t, want, col.Positions())
	assert.Equal(t, int64(7), c.Worker(0).StartPos())
}

func TestCoordinator_AllWorkersFail(t *testing.T) {
	rec := testutil.NewRecorder()
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 30}, 3, func(engine.Generated[int]) bool {
		panic("always")
	})
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))

	err = c.Run(t.Context())
	var pe *engine.PanicError
	require.True(t, errors.As(err, &pe))

	assert.Equal(t, 1, rec.Count(coordinator.EventError))
	assert.Zero(t, rec.Count(coordinator.EventEnd))
	assert.Error(t, rec.Events()[len(rec.Events())-1].Err)
	for _, e := range c.Workers() {
		assert.Equal(t, engine.StateIdle, e.State())
	}
}

func TestCoordinator_RetriesExhausted(t *testing.T) {
	workers := testutil.NewEngineRecorder[int]()
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 10}, 1, func(engine.Generated[int]) bool {
		panic("always")
	},
		coordinator.WithErrorHandler(func(int, error) bool { return true }),
		coordinator.WithBackoff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		}),
	)
	require.NoError(t, err)
	require.NoError(t, c.SubscribeWorkers(workers))

	assert.Error(t, c.Run(t.Context()))
	assert.Equal(t, 3, workers.Count(engine.EventStart))
	assert.Equal(t, 3, workers.Count(engine.EventError))
}

func TestCoordinator_MixedOutcomeEnds(t *testing.T) {
	rec := testutil.NewRecorder()
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 20}, 2, func(g engine.Generated[int]) bool {
		if g.EngineID == 0 {
			panic("worker 0 only")
		}
		return false
	})
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(rec))

	require.NoError(t, c.Run(t.Context()))
	assert.Equal(t, []coordinator.EventKind{coordinator.EventStart, coordinator.EventEnd}, rec.Kinds())
}

func TestCoordinator_RewindOneWorker(t *testing.T) {
	s := space(t)
	var col testutil.Collector[int]
	workers := testutil.NewEngineRecorder[int]()

	var c *coordinator.Coordinator[int]
	var moved atomic.Bool
	var err error
	c, err = coordinator.New(s, engine.Window{Start: 1, End: 100}, 2, col.Callback(func(g engine.Generated[int]) bool {
		if g.EngineID == 0 && g.Position == 10 && moved.CompareAndSwap(false, true) {
			assert.NoError(t, c.Worker(0).SetStartPos(40))
		}
		return false
	}))
	require.NoError(t, err)
	require.NoError(t, c.SubscribeWorkers(workers))
	require.NoError(t, c.Run(t.Context()))

	assert.Equal(t, append(span(engine.Window{Start: 1, End: 10}), span(engine.Window{Start: 40, End: 50})...), col.WorkerPositions(0))
	assert.Equal(t, span(engine.Window{Start: 51, End: 100}), col.WorkerPositions(1))
	assert.Contains(t, workers.Kinds(0), engine.EventRestart)
	assert.NotContains(t, workers.Kinds(1), engine.EventRestart)
}

func TestCoordinator_RateLimit(t *testing.T) {
	var col testutil.Collector[int]
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 30}, 2, col.Callback(nil),
		coordinator.WithRateLimit(500, 1))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, c.Run(t.Context()))
	// 29 tokens beyond the burst at 500/s.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 30, col.Len())
}

func TestCoordinator_Lifecycle(t *testing.T) {
	c, err := coordinator.New(space(t), engine.Window{Start: 1, End: 2000}, 2, func(engine.Generated[int]) bool {
		time.Sleep(50 * time.Microsecond)
		return false
	})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), coordinator.ErrAlreadyRunning)
	assert.ErrorIs(t, c.Subscribe(testutil.NewRecorder()), coordinator.ErrAlreadyRunning)
	c.Stop()
	require.NoError(t, c.Wait())

	// A second run starts again from the original partition.
	var col testutil.Collector[int]
	c2, err := coordinator.New(space(t), engine.Window{Start: 1, End: 50}, 2, col.Callback(nil))
	require.NoError(t, err)
	require.NoError(t, c2.Run(t.Context()))
	require.NoError(t, c2.Run(t.Context()))
	assert.Equal(t, 100, col.Len())
}

func TestCoordinator_Validation(t *testing.T) {
	_, err := coordinator.New(space(t), engine.Window{Start: 1, End: 10}, 0, func(engine.Generated[int]) bool { return false })
	assert.ErrorIs(t, err, coordinator.ErrNoWorkers)

	_, err = coordinator.New(space(t), engine.Window{Start: 1, End: 1 << 40}, 2, func(engine.Generated[int]) bool { return false })
	assert.True(t, engine.IsValidationError(err))

	_, err = coordinator.New[int](space(t), engine.Window{Start: 1}, 2, nil)
	assert.Error(t, err)
}

package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/MRJAPPS/CBruteLib/internal/coordinator"
	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// WaitTimeout bounds every Wait helper.
const WaitTimeout = 5 * time.Second

// Recorder records aggregate coordinator events.
type Recorder struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []coordinator.Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Observe implements coordinator.Observer.
func (r *Recorder) Observe(ev coordinator.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []coordinator.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]coordinator.Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []coordinator.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]coordinator.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind coordinator.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count(kind)
}

func (r *Recorder) count(kind coordinator.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Wait blocks until at least n events of kind were recorded and fails the
// test after WaitTimeout.
func (r *Recorder) Wait(t testing.TB, kind coordinator.EventKind, n int) {
	t.Helper()
	if !waitCond(&r.mu, r.cond, func() bool { return r.count(kind) >= n }) {
		t.Fatalf("timed out waiting for %d %s events, got %v", n, kind, r.Kinds())
	}
}

// EngineRecorder records engine events from any number of engines.
type EngineRecorder[S comparable] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []engine.Event[S]
}

// NewEngineRecorder returns an empty recorder.
func NewEngineRecorder[S comparable]() *EngineRecorder[S] {
	r := &EngineRecorder[S]{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Observe implements engine.Observer.
func (r *EngineRecorder[S]) Observe(ev engine.Event[S]) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Kinds returns the kinds recorded for one engine, in order.
func (r *EngineRecorder[S]) Kinds(id int) []engine.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []engine.EventKind
	for _, ev := range r.events {
		if ev.EngineID == id {
			out = append(out, ev.Kind)
		}
	}
	return out
}

// Count returns how many events of kind were recorded across engines.
func (r *EngineRecorder[S]) Count(kind engine.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count(kind)
}

func (r *EngineRecorder[S]) count(kind engine.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Wait blocks until at least n events of kind were recorded across engines.
func (r *EngineRecorder[S]) Wait(t testing.TB, kind engine.EventKind, n int) {
	t.Helper()
	if !waitCond(&r.mu, r.cond, func() bool { return r.count(kind) >= n }) {
		t.Fatalf("timed out waiting for %d %s engine events", n, kind)
	}
}

// waitCond waits on cond until ok holds or WaitTimeout passes. ok is called
// with mu held.
func waitCond(mu *sync.Mutex, cond *sync.Cond, ok func() bool) bool {
	deadline := time.Now().Add(WaitTimeout)
	stop := time.AfterFunc(WaitTimeout, cond.Broadcast)
	defer stop.Stop()

	mu.Lock()
	defer mu.Unlock()
	for !ok() {
		if time.Now().After(deadline) {
			return false
		}
		cond.Wait()
	}
	return true
}

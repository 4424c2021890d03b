package engine

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// eventLog records events from an engine.
type eventLog[S comparable] struct {
	mu     sync.Mutex
	events []Event[S]
	ch     chan Event[S]
}

func newEventLog[S comparable]() *eventLog[S] {
	return &eventLog[S]{ch: make(chan Event[S], 64)}
}

func (l *eventLog[S]) Observe(ev Event[S]) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	select {
	case l.ch <- ev:
	default:
	}
}

func (l *eventLog[S]) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog[S]) last() Event[S] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

// collect returns a callback that stores every candidate and its position.
func collect[S comparable](cands *[][]S, positions *[]int64) Callback[S] {
	return func(g Generated[S]) bool {
		*cands = append(*cands, slices.Clone(g.Candidate))
		if positions != nil {
			*positions = append(*positions, g.Position)
		}
		return false
	}
}

// walk enumerates the whole window through an engine.
func walk[S comparable](t *testing.T, space Space[S], w Window) [][]S {
	t.Helper()
	var got [][]S
	e, err := New(space, w, collect(&got, nil))
	require.NoError(t, err)
	require.NoError(t, e.Start(t.Context()))
	return got
}

func digits(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

package testutil

import (
	"slices"
	"sync"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// Visit is one candidate seen by a Collector.
type Visit[S comparable] struct {
	Seq       int64
	Worker    int
	Position  int64
	Candidate []S
}

// Collector records every candidate handed to its callback, from any number
// of engines.
type Collector[S comparable] struct {
	clock  Sequence
	mu     sync.Mutex
	visits []Visit[S]
}

// Callback returns an engine callback that records the candidate and then
// defers to hit. A nil hit never reports a hit.
func (c *Collector[S]) Callback(hit func(g engine.Generated[S]) bool) engine.Callback[S] {
	return func(g engine.Generated[S]) bool {
		v := Visit[S]{
			Seq:       c.clock.Next(),
			Worker:    g.EngineID,
			Position:  g.Position,
			Candidate: slices.Clone(g.Candidate),
		}
		c.mu.Lock()
		c.visits = append(c.visits, v)
		c.mu.Unlock()
		return hit != nil && hit(g)
	}
}

// Visits returns the recorded visits in sequence order.
func (c *Collector[S]) Visits() []Visit[S] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.visits)
	slices.SortFunc(out, func(a, b Visit[S]) int { return int(a.Seq - b.Seq) })
	return out
}

// Positions returns the recorded positions, ascending.
func (c *Collector[S]) Positions() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.visits))
	for i, v := range c.visits {
		out[i] = v.Position
	}
	slices.Sort(out)
	return out
}

// WorkerPositions returns the positions recorded for one worker in the order
// they were generated.
func (c *Collector[S]) WorkerPositions(worker int) []int64 {
	var out []int64
	for _, v := range c.Visits() {
		if v.Worker == worker {
			out = append(out, v.Position)
		}
	}
	return out
}

// Len returns the number of recorded visits.
func (c *Collector[S]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visits)
}

// Now returns the sequence number of the latest visit.
func (c *Collector[S]) Now() int64 {
	return c.clock.Current()
}

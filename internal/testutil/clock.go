package testutil

import "sync/atomic"

// Sequence is a logical clock shared by concurrent observers. Stamping every
// observation with Next gives a total order across goroutines.
//
// Thread-safety: all methods are safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// Next increments and returns the sequence number. The first call returns 1.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last number handed out, or 0.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Reset restarts the sequence at 0.
func (s *Sequence) Reset() {
	s.seq.Store(0)
}

package coordinator

import "sync"

// Barrier is a reusable countdown rendezvous. Once armed for n participants it
// trips when n distinct participants have been credited. Crediting the same
// participant twice in one round counts once.
type Barrier struct {
	mu       sync.Mutex
	size     int
	credited map[int]bool
	armed    bool
	tripped  bool
}

// NewBarrier returns a disarmed barrier.
func NewBarrier() *Barrier {
	return &Barrier{}
}

// Arm starts a new round for n participants, discarding any previous round.
func (b *Barrier) Arm(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = n
	b.credited = make(map[int]bool, n)
	b.armed = true
	b.tripped = false
}

// Disarm abandons the current round. Credits are ignored until the next Arm.
func (b *Barrier) Disarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
}

// Credit records participant id. It returns true only for the credit that
// trips the barrier. Credits on a disarmed or tripped barrier are ignored.
func (b *Barrier) Credit(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed || b.tripped || b.credited[id] {
		return false
	}
	b.credited[id] = true
	if len(b.credited) < b.size {
		return false
	}
	b.tripped = true
	return true
}

// Armed reports whether a round is in progress or has tripped without being
// disarmed.
func (b *Barrier) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Tripped reports whether the current round completed.
func (b *Barrier) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// Count returns the number of participants credited this round.
func (b *Barrier) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.credited)
}

// Remaining returns how many credits the current round still needs.
func (b *Barrier) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed {
		return 0
	}
	return b.size - len(b.credited)
}

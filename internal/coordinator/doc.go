// Package coordinator runs one enumeration window across parallel workers.
//
// The window is split into contiguous parts, one per worker, and each worker
// drives its own engine.Engine over the shared, immutable space. Worker
// lifecycle events are folded into a single run through rendezvous barriers:
// the run is paused once every worker has paused, and it ends once every worker
// has finished. A worker that finished before a barrier was armed counts
// toward it immediately.
//
// A hit reported by any worker sets a shared flag that makes every sibling end
// at its next check without generating further candidates.
//
// Failed workers may be retried from their last generated position when the
// error handler asks for it, with an exponential delay between attempts.
package coordinator

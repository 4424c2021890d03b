// Package subset enumerates fixed-size subsets of an ordered set.
//
// Subsets are produced in lexicographic order of their element indexes, so
// subset i of a set always contains the same elements for the same set and
// size. The permutation engine relies on that to turn a position into a
// subset index.
//
// The number of subsets grows combinatorially. Enumeration therefore runs as a
// bounded unit of work: it executes on its own goroutine and is abandoned when
// its time budget expires. A timed-out call returns ErrTimeout and no partial
// result.
package subset

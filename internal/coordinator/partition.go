package coordinator

import (
	"errors"
	"fmt"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// ErrNoWorkers is returned for a thread count below one.
var ErrNoWorkers = errors.New("thread count must be at least 1")

// Partition splits w into contiguous parts of size/threads positions each; the
// last part also takes the remainder. A window smaller than threads yields one
// part per position.
func Partition(w engine.Window, threads int) ([]engine.Window, error) {
	if threads < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, threads)
	}
	if w.Start < 1 || w.End < w.Start {
		return nil, fmt.Errorf("invalid window [%d, %d]", w.Start, w.End)
	}
	size := w.Size()
	n := int64(threads)
	if n > size {
		n = size
	}
	each := size / n

	parts := make([]engine.Window, n)
	for i := range parts {
		start := w.Start + int64(i)*each
		parts[i] = engine.Window{Start: start, End: start + each - 1}
	}
	parts[n-1].End = w.End
	return parts, nil
}

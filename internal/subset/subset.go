package subset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultTimeout bounds a single enumeration when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// checkEvery is how many subsets are produced between cancellation checks.
const checkEvery = 1024

const maxPrealloc = 1 << 16

// ErrTimeout is matched by every TimeoutError via errors.Is.
var ErrTimeout = errors.New("subset enumeration timed out")

// TimeoutError reports an enumeration that exceeded its budget.
type TimeoutError struct {
	N, K    int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("subset enumeration of C(%d,%d) exceeded %s", e.N, e.K, e.Timeout)
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Enumerator produces subsets under a time budget.
//
// The zero value uses DefaultTimeout.
type Enumerator struct {
	Timeout time.Duration
}

func (e Enumerator) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// Indices returns every k-sized subset of {0, ..., n-1} in lexicographic order.
// Each subset is sorted ascending.
func (e Enumerator) Indices(ctx context.Context, n, k int) ([][]int, error) {
	if n < 0 || k < 0 || k > n {
		return nil, fmt.Errorf("invalid subset size %d of %d elements", k, n)
	}
	if _, ok := Count(n, k); !ok {
		return nil, fmt.Errorf("C(%d,%d) overflows int64", n, k)
	}

	budget := e.timeout()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		subsets [][]int
		err     error
	}
	done := make(chan result, 1)
	go func() {
		subsets, err := enumerate(ctx, n, k)
		done <- result{subsets, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, &TimeoutError{N: n, K: k, Timeout: budget}
		}
		return r.subsets, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{N: n, K: k, Timeout: budget}
		}
		return nil, ctx.Err()
	}
}

// Indices is Enumerator{}.Indices.
func Indices(ctx context.Context, n, k int) ([][]int, error) {
	return Enumerator{}.Indices(ctx, n, k)
}

// enumerate walks combinations with an explicit pointer to the rightmost index
// that can still advance.
func enumerate(ctx context.Context, n, k int) ([][]int, error) {
	total, _ := Count(n, k)
	out := make([][]int, 0, min(total, maxPrealloc))

	cur := make([]int, k)
	for i := range cur {
		cur[i] = i
	}
	for produced := 0; ; produced++ {
		if produced%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, append([]int(nil), cur...))

		// The rightmost index that is below its ceiling n-k+i moves next.
		i := k - 1
		for i >= 0 && cur[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out, nil
		}
		cur[i]++
		for j := i + 1; j < k; j++ {
			cur[j] = cur[j-1] + 1
		}
	}
}

// Count returns C(n, k). ok is false when the value does not fit in an int64.
func Count(n, k int) (c int64, ok bool) {
	if k < 0 || k > n {
		return 0, true
	}
	if k > n-k {
		k = n - k
	}
	c = 1
	for i := 1; i <= k; i++ {
		// c * (n-k+i) / i stays integral at every step.
		m := int64(n - k + i)
		if c > math.MaxInt64/m {
			return 0, false
		}
		c = c * m / int64(i)
	}
	return c, true
}

package engine

import (
	"math"
	"slices"
)

// Lengths bounds the candidate length.
type Lengths struct {
	Min int
	Max int
}

func (l Lengths) validate() error {
	if l.Min < 1 {
		return validationErr(ErrCodeInvalidLengths, "min", "must be >= 1, got %d", l.Min)
	}
	if l.Max < l.Min {
		return validationErr(ErrCodeInvalidLengths, "max", "must be >= min (%d), got %d", l.Min, l.Max)
	}
	return nil
}

// Window is the inclusive position range [Start, End] an engine covers.
// An End <= 0 stands for the last position of the space.
type Window struct {
	Start int64
	End   int64
}

// Size returns the number of positions in the window.
func (w Window) Size() int64 {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// lengthTable maps 1-based positions to candidate lengths.
//
// Excluded lengths own no positions. Consecutive excluded lengths are merged
// into skip ranges and the cumulative offsets jump over each range, so every
// position in [1, max] belongs to a generatable length.
type lengthTable struct {
	lengths  Lengths
	excluded []bool  // indexed by length - Min
	sizes    []int64 // candidates of each length, indexed by length - Min
	offsets  []int64 // generatable candidates before each length
	skips    []Lengths
	max      int64
}

// newLengthTable builds the table. size returns the number of candidates of a
// given length and false when that number overflows.
func newLengthTable(lengths Lengths, excluded []int, size func(length int) (int64, bool)) (*lengthTable, error) {
	if err := lengths.validate(); err != nil {
		return nil, err
	}
	n := lengths.Max - lengths.Min + 1
	t := &lengthTable{
		lengths:  lengths,
		excluded: make([]bool, n),
		sizes:    make([]int64, n),
		offsets:  make([]int64, n),
	}
	for _, l := range excluded {
		if l < lengths.Min || l > lengths.Max {
			return nil, validationErr(ErrCodeInvalidExcluded, "excluded", "length %d is outside [%d, %d]", l, lengths.Min, lengths.Max)
		}
		t.excluded[l-lengths.Min] = true
	}
	t.skips = skipRanges(lengths, t.excluded)

	var total int64
	generatable := 0
	for i := range n {
		l := lengths.Min + i
		t.offsets[i] = total
		if t.excluded[i] {
			continue
		}
		c, ok := size(l)
		if !ok {
			return nil, validationErr(ErrCodeOverflow, "lengths", "candidate count for length %d overflows int64", l)
		}
		t.sizes[i] = c
		if c == 0 {
			continue
		}
		if total > math.MaxInt64-c {
			return nil, validationErr(ErrCodeOverflow, "lengths", "total candidate count overflows int64")
		}
		total += c
		generatable++
	}
	if generatable == 0 {
		return nil, validationErr(ErrCodeInvalidExcluded, "excluded", "no generatable length remains in [%d, %d]", lengths.Min, lengths.Max)
	}
	t.max = total
	return t, nil
}

// skipRanges merges consecutive excluded lengths into closed ranges.
func skipRanges(lengths Lengths, excluded []bool) []Lengths {
	var out []Lengths
	for i := 0; i < len(excluded); i++ {
		if !excluded[i] {
			continue
		}
		j := i
		for j+1 < len(excluded) && excluded[j+1] {
			j++
		}
		out = append(out, Lengths{Min: lengths.Min + i, Max: lengths.Min + j})
		i = j
	}
	return out
}

// locate returns the length owning pos and the number of positions before it.
func (t *lengthTable) locate(pos int64) (length int, offset int64, err error) {
	if pos < 1 || pos > t.max {
		return 0, 0, validationErr(ErrCodeInvalidPosition, "position", "%d is outside [1, %d]", pos, t.max)
	}
	// offsets is non-decreasing; the owner is the last generatable length
	// whose offset is below pos.
	i, _ := slices.BinarySearch(t.offsets, pos)
	for i--; i >= 0; i-- {
		if !t.excluded[i] && t.sizes[i] > 0 && pos <= t.offsets[i]+t.sizes[i] {
			return t.lengths.Min + i, t.offsets[i], nil
		}
	}
	return 0, 0, validationErr(ErrCodeInvalidPosition, "position", "%d has no owning length", pos)
}

// generatable reports whether candidates of length l are produced.
func (t *lengthTable) generatable(l int) bool {
	if l < t.lengths.Min || l > t.lengths.Max {
		return false
	}
	i := l - t.lengths.Min
	return !t.excluded[i] && t.sizes[i] > 0
}

// offset returns the number of positions before the first candidate of length l.
func (t *lengthTable) offset(l int) int64 {
	return t.offsets[l-t.lengths.Min]
}

// next returns the first generatable length above l.
func (t *lengthTable) next(l int) (int, bool) {
	for n := l + 1; n <= t.lengths.Max; n++ {
		if t.generatable(n) {
			return n, true
		}
	}
	return 0, false
}

func (t *lengthTable) excludedLengths() []int {
	var out []int
	for i, ex := range t.excluded {
		if ex {
			out = append(out, t.lengths.Min+i)
		}
	}
	return out
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

package engine

import (
	"context"
	"slices"
	"time"

	"github.com/MRJAPPS/CBruteLib/internal/subset"
)

// PermutationOptions tunes a PermutationSpace.
type PermutationOptions struct {
	// Excluded lists lengths that are never generated.
	Excluded []int

	// SubsetTimeout bounds each subset enumeration. Zero means
	// subset.DefaultTimeout.
	SubsetTimeout time.Duration
}

// PermutationSpace enumerates arrangements without repetition. Candidates of
// length L are grouped by their L-sized subset of the alphabet, subsets in
// lexicographic order of alphabet index, and each group lists the L!
// arrangements of its subset in lexicographic order.
type PermutationSpace[S comparable] struct {
	alphabet []S
	index    map[S]int
	table    *lengthTable
	subsets  subset.Enumerator
	fact     []int64 // fact[k] = k!, up to the maximum length
}

// NewPermutation builds the permutation space of alphabet. The maximum length
// may not exceed the alphabet size.
func NewPermutation[S comparable](alphabet []S, lengths Lengths, opts PermutationOptions) (*PermutationSpace[S], error) {
	index, err := indexAlphabet("alphabet", alphabet)
	if err != nil {
		return nil, err
	}
	if err := lengths.validate(); err != nil {
		return nil, err
	}
	n := len(alphabet)
	if lengths.Max > n {
		return nil, validationErr(ErrCodeInvalidLengths, "max", "must be <= alphabet size %d, got %d", n, lengths.Max)
	}
	table, err := newLengthTable(lengths, opts.Excluded, func(l int) (int64, bool) {
		// C(n, l) * l! = n! / (n-l)!
		c := int64(1)
		for k := n - l + 1; k <= n; k++ {
			var ok bool
			if c, ok = mulInt64(c, int64(k)); !ok {
				return 0, false
			}
		}
		return c, true
	})
	if err != nil {
		return nil, err
	}
	// Every l! divides the size of its length, which already fits.
	fact := make([]int64, lengths.Max+1)
	fact[0] = 1
	for k := 1; k <= lengths.Max; k++ {
		fact[k] = fact[k-1] * int64(k)
	}
	return &PermutationSpace[S]{
		alphabet: append([]S(nil), alphabet...),
		index:    index,
		table:    table,
		subsets:  subset.Enumerator{Timeout: opts.SubsetTimeout},
		fact:     fact,
	}, nil
}

// Lengths implements Space.
func (s *PermutationSpace[S]) Lengths() Lengths { return s.table.lengths }

// Excluded implements Space.
func (s *PermutationSpace[S]) Excluded() []int { return s.table.excludedLengths() }

// SkipRanges implements Space.
func (s *PermutationSpace[S]) SkipRanges() []Lengths { return append([]Lengths(nil), s.table.skips...) }

// Max implements Space.
func (s *PermutationSpace[S]) Max() int64 { return s.table.max }

// CandidateAt implements Space.
func (s *PermutationSpace[S]) CandidateAt(pos int64) ([]S, error) {
	return s.candidateAt(context.Background(), pos)
}

func (s *PermutationSpace[S]) candidateAt(ctx context.Context, pos int64) ([]S, error) {
	l, off, err := s.table.locate(pos)
	if err != nil {
		return nil, err
	}
	subs, err := s.subsets.Indices(ctx, len(s.alphabet), l)
	if err != nil {
		return nil, err
	}
	r := pos - off - 1
	sub := subs[r/s.fact[l]]
	perm := s.unrank(r%s.fact[l], l)
	out := make([]S, l)
	for i, p := range perm {
		out[i] = s.alphabet[sub[p]]
	}
	return out, nil
}

// PositionOf implements Space.
func (s *PermutationSpace[S]) PositionOf(candidate []S) (int64, error) {
	l := len(candidate)
	if !s.table.generatable(l) {
		return 0, lengthError(l, s.table.lengths)
	}
	idx := make([]int, l)
	for i, sym := range candidate {
		d, ok := s.index[sym]
		if !ok {
			return 0, validationErr(ErrCodeInvalidCandidate, "candidate", "symbol %v at %d is not in the alphabet", sym, i)
		}
		idx[i] = d
	}
	sorted := slices.Clone(idx)
	slices.Sort(sorted)
	for i := 1; i < l; i++ {
		if sorted[i] == sorted[i-1] {
			return 0, validationErr(ErrCodeInvalidCandidate, "candidate", "symbol %v repeats", s.alphabet[sorted[i]])
		}
	}

	subs, err := s.subsets.Indices(context.Background(), len(s.alphabet), l)
	if err != nil {
		return 0, err
	}
	si, found := slices.BinarySearchFunc(subs, sorted, func(a, b []int) int {
		return slices.Compare(a, b)
	})
	if !found {
		return 0, &FaultError{Subsystem: "permutation", Code: FaultPermutationSeek, Message: "candidate subset missing from enumeration"}
	}

	// Arrangement of the candidate as indexes into its sorted subset.
	perm := make([]int, l)
	for i, d := range idx {
		perm[i], _ = slices.BinarySearch(sorted, d)
	}
	return s.table.offset(l) + int64(si)*s.fact[l] + s.rank(perm) + 1, nil
}

// unrank decodes a Lehmer code into an arrangement of {0, ..., l-1}.
func (s *PermutationSpace[S]) unrank(r int64, l int) []int {
	pool := make([]int, l)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, 0, l)
	for len(pool) > 0 {
		if len(pool) == 2 {
			// Two left: the parity of the rank picks the order.
			if r%2 == 0 {
				return append(out, pool[0], pool[1])
			}
			return append(out, pool[1], pool[0])
		}
		f := s.fact[len(pool)-1]
		d := r / f
		r %= f
		out = append(out, pool[d])
		pool = slices.Delete(pool, int(d), int(d)+1)
	}
	return out
}

// rank encodes an arrangement of {0, ..., l-1} as its Lehmer code.
func (s *PermutationSpace[S]) rank(perm []int) int64 {
	var r int64
	l := len(perm)
	for i := range l {
		smaller := 0
		for j := i + 1; j < l; j++ {
			if perm[j] < perm[i] {
				smaller++
			}
		}
		r += int64(smaller) * s.fact[l-1-i]
	}
	return r
}

func (s *PermutationSpace[S]) newCursor(ctx context.Context) cursor[S] {
	return &permCursor[S]{space: s, ctx: ctx}
}

// permCursor steps through arrangements of the current subset, then through
// subsets, then through lengths.
type permCursor[S comparable] struct {
	space *PermutationSpace[S]
	ctx   context.Context

	length  int
	subsets [][]int
	si      int
	perm    []int
	buf     []S
}

func (c *permCursor[S]) seek(pos int64) error {
	l, off, err := c.space.table.locate(pos)
	if err != nil {
		return &FaultError{Subsystem: "permutation", Code: FaultPermutationSeek, Message: "seek outside the table", Err: err}
	}
	if err := c.load(l); err != nil {
		return err
	}
	r := pos - off - 1
	c.si = int(r / c.space.fact[l])
	c.perm = c.space.unrank(r%c.space.fact[l], l)
	c.fill()
	return nil
}

func (c *permCursor[S]) load(l int) error {
	subs, err := c.space.subsets.Indices(c.ctx, len(c.space.alphabet), l)
	if err != nil {
		return err
	}
	c.length = l
	c.subsets = subs
	c.si = 0
	c.perm = make([]int, l)
	for i := range c.perm {
		c.perm[i] = i
	}
	c.buf = make([]S, l)
	return nil
}

func (c *permCursor[S]) next() (bool, error) {
	if nextPermutation(c.perm) {
		c.fill()
		return true, nil
	}
	if c.si+1 < len(c.subsets) {
		c.si++
		for i := range c.perm {
			c.perm[i] = i
		}
		c.fill()
		return true, nil
	}
	l, ok := c.space.table.next(c.length)
	if !ok {
		return false, nil
	}
	if err := c.load(l); err != nil {
		return false, err
	}
	c.fill()
	return true, nil
}

func (c *permCursor[S]) fill() {
	sub := c.subsets[c.si]
	for i, p := range c.perm {
		c.buf[i] = c.space.alphabet[sub[p]]
	}
}

func (c *permCursor[S]) candidate() []S {
	return c.buf
}

func (c *permCursor[S]) fault() *FaultError {
	return &FaultError{Subsystem: "permutation", Code: FaultPermutationLoop, Message: "generation loop ran past the last candidate"}
}

// nextPermutation rearranges p into its lexicographic successor and reports
// false, leaving p untouched, when p is already the last arrangement.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	slices.Reverse(p[i+1:])
	return true
}

// PermutationMax returns the candidate count of the permutation space.
func PermutationMax[S comparable](alphabet []S, lengths Lengths, opts PermutationOptions) (int64, error) {
	s, err := NewPermutation(alphabet, lengths, opts)
	if err != nil {
		return 0, err
	}
	return s.Max(), nil
}

// PermutationCandidateAt returns the candidate at pos of the permutation space.
func PermutationCandidateAt[S comparable](pos int64, alphabet []S, lengths Lengths, opts PermutationOptions) ([]S, error) {
	s, err := NewPermutation(alphabet, lengths, opts)
	if err != nil {
		return nil, err
	}
	return s.CandidateAt(pos)
}

// PermutationPositionOf returns the position of candidate in the permutation space.
func PermutationPositionOf[S comparable](candidate []S, alphabet []S, lengths Lengths, opts PermutationOptions) (int64, error) {
	s, err := NewPermutation(alphabet, lengths, opts)
	if err != nil {
		return 0, err
	}
	return s.PositionOf(candidate)
}

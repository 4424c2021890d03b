package engine

import "context"

// SimpleSpace enumerates every sequence over one alphabet, repetition allowed,
// shorter lengths first. Within a length the order is base-|alphabet| counting
// with the first symbol as zero.
type SimpleSpace[S comparable] struct {
	alphabet []S
	index    map[S]int
	table    *lengthTable
}

// NewSimple builds the Cartesian space of alphabet over lengths, without the
// excluded lengths.
func NewSimple[S comparable](alphabet []S, lengths Lengths, excluded ...int) (*SimpleSpace[S], error) {
	index, err := indexAlphabet("alphabet", alphabet)
	if err != nil {
		return nil, err
	}
	base := int64(len(alphabet))
	table, err := newLengthTable(lengths, excluded, func(l int) (int64, bool) {
		return powInt64(base, l)
	})
	if err != nil {
		return nil, err
	}
	return &SimpleSpace[S]{
		alphabet: append([]S(nil), alphabet...),
		index:    index,
		table:    table,
	}, nil
}

// Lengths implements Space.
func (s *SimpleSpace[S]) Lengths() Lengths { return s.table.lengths }

// Excluded implements Space.
func (s *SimpleSpace[S]) Excluded() []int { return s.table.excludedLengths() }

// SkipRanges implements Space.
func (s *SimpleSpace[S]) SkipRanges() []Lengths { return append([]Lengths(nil), s.table.skips...) }

// Max implements Space.
func (s *SimpleSpace[S]) Max() int64 { return s.table.max }

// Alphabet returns a copy of the alphabet.
func (s *SimpleSpace[S]) Alphabet() []S { return append([]S(nil), s.alphabet...) }

// CandidateAt implements Space.
func (s *SimpleSpace[S]) CandidateAt(pos int64) ([]S, error) {
	l, off, err := s.table.locate(pos)
	if err != nil {
		return nil, err
	}
	out := make([]S, l)
	r := pos - off - 1

	// The last position of a length is the last symbol repeated.
	if r == s.table.sizes[l-s.table.lengths.Min]-1 {
		last := s.alphabet[len(s.alphabet)-1]
		for i := range out {
			out[i] = last
		}
		return out, nil
	}

	base := int64(len(s.alphabet))
	for i := l - 1; i >= 0; i-- {
		out[i] = s.alphabet[r%base]
		r /= base
	}
	return out, nil
}

// PositionOf implements Space.
func (s *SimpleSpace[S]) PositionOf(candidate []S) (int64, error) {
	l := len(candidate)
	if !s.table.generatable(l) {
		return 0, lengthError(l, s.table.lengths)
	}
	base := int64(len(s.alphabet))
	var r int64
	for i, sym := range candidate {
		d, ok := s.index[sym]
		if !ok {
			return 0, validationErr(ErrCodeInvalidCandidate, "candidate", "symbol %v at %d is not in the alphabet", sym, i)
		}
		r = r*base + int64(d)
	}
	return s.table.offset(l) + r + 1, nil
}

func (s *SimpleSpace[S]) newCursor(context.Context) cursor[S] {
	return &odometer[S]{
		table:     s.table,
		slots:     s.layout,
		subsystem: "simple",
		seekCode:  FaultSimpleSeek,
		loopCode:  FaultSimpleLoop,
	}
}

func (s *SimpleSpace[S]) layout(l int) [][]S {
	out := make([][]S, l)
	for i := range out {
		out[i] = s.alphabet
	}
	return out
}

// SimpleMax returns the candidate count of the Cartesian space.
func SimpleMax[S comparable](alphabet []S, lengths Lengths, excluded ...int) (int64, error) {
	s, err := NewSimple(alphabet, lengths, excluded...)
	if err != nil {
		return 0, err
	}
	return s.Max(), nil
}

// SimpleCandidateAt returns the candidate at pos of the Cartesian space.
func SimpleCandidateAt[S comparable](pos int64, alphabet []S, lengths Lengths, excluded ...int) ([]S, error) {
	s, err := NewSimple(alphabet, lengths, excluded...)
	if err != nil {
		return nil, err
	}
	return s.CandidateAt(pos)
}

// SimplePositionOf returns the position of candidate in the Cartesian space.
func SimplePositionOf[S comparable](candidate []S, alphabet []S, lengths Lengths, excluded ...int) (int64, error) {
	s, err := NewSimple(alphabet, lengths, excluded...)
	if err != nil {
		return 0, err
	}
	return s.PositionOf(candidate)
}

func powInt64(base int64, exp int) (int64, bool) {
	r := int64(1)
	for range exp {
		var ok bool
		if r, ok = mulInt64(r, base); !ok {
			return 0, false
		}
	}
	return r, true
}

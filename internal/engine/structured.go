package engine

import (
	"context"
	"fmt"
)

// PositionInfo overrides the alphabet of one candidate slot.
//
// A Slot >= 0 counts from the first symbol, a negative Slot from the last one
// (-1 is the last symbol). An override whose slot falls outside a candidate
// does not apply at that length.
type PositionInfo[S comparable] struct {
	Slot     int
	Alphabet []S
}

// resolve returns the slot index the info addresses in a candidate of length l,
// or -1 when it addresses none.
func (p PositionInfo[S]) resolve(l int) int {
	if p.Slot >= 0 {
		if p.Slot < l {
			return p.Slot
		}
		return -1
	}
	if i := l + p.Slot; i >= 0 {
		return i
	}
	return -1
}

// StructuredOptions tunes a StructuredSpace.
type StructuredOptions struct {
	// Excluded lists lengths that are never generated.
	Excluded []int

	// TolerateAmbiguity accepts overrides that address the same slot at some
	// length. The first matching override wins.
	TolerateAmbiguity bool
}

// StructuredSpace enumerates candidates whose slots draw from per-slot
// alphabets. Every slot uses the default alphabet unless a PositionInfo
// resolves to it.
type StructuredSpace[S comparable] struct {
	alphabet []S
	infos    []PositionInfo[S]
	table    *lengthTable

	// Per length (indexed by length - Min): the slot alphabets and, for each
	// slot, the symbol index.
	layouts [][][]S
	indexes [][]map[S]int
}

// NewStructured builds a space over the default alphabet with the given slot
// overrides.
func NewStructured[S comparable](alphabet []S, lengths Lengths, infos []PositionInfo[S], opts StructuredOptions) (*StructuredSpace[S], error) {
	defIndex, err := indexAlphabet("alphabet", alphabet)
	if err != nil {
		return nil, err
	}
	if err := lengths.validate(); err != nil {
		return nil, err
	}

	s := &StructuredSpace[S]{
		alphabet: append([]S(nil), alphabet...),
		infos:    make([]PositionInfo[S], len(infos)),
	}
	infoIndex := make([]map[S]int, len(infos))
	seen := make(map[int]int, len(infos))
	for i, info := range infos {
		if j, dup := seen[info.Slot]; dup {
			return nil, validationErr(ErrCodeInvalidSlots, "infos", "entries %d and %d both address slot %d", j, i, info.Slot)
		}
		seen[info.Slot] = i
		idx, err := indexAlphabet(fmt.Sprintf("infos[%d].alphabet", i), info.Alphabet)
		if err != nil {
			return nil, err
		}
		infoIndex[i] = idx
		s.infos[i] = PositionInfo[S]{Slot: info.Slot, Alphabet: append([]S(nil), info.Alphabet...)}
	}
	if !opts.TolerateAmbiguity {
		if err := CheckAmbiguity(infos, lengths); err != nil {
			return nil, err
		}
	}

	n := lengths.Max - lengths.Min + 1
	s.layouts = make([][][]S, n)
	s.indexes = make([][]map[S]int, n)
	for k := range n {
		l := lengths.Min + k
		slots := make([][]S, l)
		index := make([]map[S]int, l)
		for i := range slots {
			slots[i], index[i] = s.alphabet, defIndex
		}
		// Walk backwards so the first matching override wins.
		for i := len(s.infos) - 1; i >= 0; i-- {
			if slot := s.infos[i].resolve(l); slot >= 0 {
				slots[slot], index[slot] = s.infos[i].Alphabet, infoIndex[i]
			}
		}
		s.layouts[k], s.indexes[k] = slots, index
	}

	s.table, err = newLengthTable(lengths, opts.Excluded, func(l int) (int64, bool) {
		c := int64(1)
		for _, a := range s.layouts[l-lengths.Min] {
			var ok bool
			if c, ok = mulInt64(c, int64(len(a))); !ok {
				return 0, false
			}
		}
		return c, true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CheckAmbiguity reports the first length in lengths at which two infos
// resolve to the same slot.
func CheckAmbiguity[S comparable](infos []PositionInfo[S], lengths Lengths) error {
	for l := lengths.Min; l <= lengths.Max; l++ {
		owner := make(map[int]int, len(infos))
		for i, info := range infos {
			slot := info.resolve(l)
			if slot < 0 {
				continue
			}
			if j, taken := owner[slot]; taken {
				return validationErr(ErrCodeAmbiguousSlots, "infos",
					"entries %d (slot %d) and %d (slot %d) both resolve to slot %d at length %d",
					j, infos[j].Slot, i, info.Slot, slot, l)
			}
			owner[slot] = i
		}
	}
	return nil
}

// Lengths implements Space.
func (s *StructuredSpace[S]) Lengths() Lengths { return s.table.lengths }

// Excluded implements Space.
func (s *StructuredSpace[S]) Excluded() []int { return s.table.excludedLengths() }

// SkipRanges implements Space.
func (s *StructuredSpace[S]) SkipRanges() []Lengths { return append([]Lengths(nil), s.table.skips...) }

// Max implements Space.
func (s *StructuredSpace[S]) Max() int64 { return s.table.max }

// SlotAlphabets returns the alphabet of each slot for candidates of length l.
func (s *StructuredSpace[S]) SlotAlphabets(l int) ([][]S, error) {
	if l < s.table.lengths.Min || l > s.table.lengths.Max {
		return nil, lengthError(l, s.table.lengths)
	}
	out := make([][]S, l)
	for i, a := range s.layout(l) {
		out[i] = append([]S(nil), a...)
	}
	return out, nil
}

// CandidateAt implements Space.
func (s *StructuredSpace[S]) CandidateAt(pos int64) ([]S, error) {
	l, off, err := s.table.locate(pos)
	if err != nil {
		return nil, err
	}
	slots := s.layout(l)
	digits := make([]int, l)
	decodeMixed(pos-off-1, slots, digits)
	out := make([]S, l)
	for i, d := range digits {
		out[i] = slots[i][d]
	}
	return out, nil
}

// PositionOf implements Space.
func (s *StructuredSpace[S]) PositionOf(candidate []S) (int64, error) {
	l := len(candidate)
	if !s.table.generatable(l) {
		return 0, lengthError(l, s.table.lengths)
	}
	index := s.indexes[l-s.table.lengths.Min]
	digits := make([]int, l)
	for i, sym := range candidate {
		d, ok := index[i][sym]
		if !ok {
			return 0, validationErr(ErrCodeInvalidCandidate, "candidate", "symbol %v is not allowed at slot %d", sym, i)
		}
		digits[i] = d
	}
	return s.table.offset(l) + encodeMixed(digits, s.layout(l)) + 1, nil
}

func (s *StructuredSpace[S]) layout(l int) [][]S {
	return s.layouts[l-s.table.lengths.Min]
}

func (s *StructuredSpace[S]) newCursor(context.Context) cursor[S] {
	return &odometer[S]{
		table:     s.table,
		slots:     s.layout,
		subsystem: "structured",
		seekCode:  FaultStructuredSeek,
		loopCode:  FaultStructuredLoop,
	}
}

// StructuredMax returns the candidate count of the structured space.
func StructuredMax[S comparable](alphabet []S, lengths Lengths, infos []PositionInfo[S], opts StructuredOptions) (int64, error) {
	s, err := NewStructured(alphabet, lengths, infos, opts)
	if err != nil {
		return 0, err
	}
	return s.Max(), nil
}

// StructuredCandidateAt returns the candidate at pos of the structured space.
func StructuredCandidateAt[S comparable](pos int64, alphabet []S, lengths Lengths, infos []PositionInfo[S], opts StructuredOptions) ([]S, error) {
	s, err := NewStructured(alphabet, lengths, infos, opts)
	if err != nil {
		return nil, err
	}
	return s.CandidateAt(pos)
}

// StructuredPositionOf returns the position of candidate in the structured space.
func StructuredPositionOf[S comparable](candidate []S, alphabet []S, lengths Lengths, infos []PositionInfo[S], opts StructuredOptions) (int64, error) {
	s, err := NewStructured(alphabet, lengths, infos, opts)
	if err != nil {
		return 0, err
	}
	return s.PositionOf(candidate)
}

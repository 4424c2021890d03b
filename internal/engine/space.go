package engine

import (
	"context"
	"fmt"
	"strings"
)

// Space is an immutable, totally ordered set of candidates with an exact
// bijection between positions in [1, Max] and candidates.
//
// Spaces hold no run state and may be shared by any number of engines.
type Space[S comparable] interface {
	// Lengths returns the candidate length bounds.
	Lengths() Lengths

	// Excluded returns the lengths that are never generated, ascending.
	Excluded() []int

	// SkipRanges returns the excluded lengths merged into closed ranges.
	SkipRanges() []Lengths

	// Max returns the number of candidates.
	Max() int64

	// CandidateAt returns the candidate at pos.
	CandidateAt(pos int64) ([]S, error)

	// PositionOf returns the position of candidate.
	PositionOf(candidate []S) (int64, error)

	newCursor(ctx context.Context) cursor[S]
}

// cursor walks a space forward from a seek position without recomputing the
// position mapping for every step.
type cursor[S comparable] interface {
	seek(pos int64) error

	// next advances to the following candidate. It returns false when the
	// space is exhausted.
	next() (bool, error)

	// candidate returns the current candidate. The slice is reused by next.
	candidate() []S

	// fault builds the error reported when next runs dry inside a window.
	fault() *FaultError
}

// indexAlphabet validates an alphabet and returns the index of each symbol.
func indexAlphabet[S comparable](field string, alphabet []S) (map[S]int, error) {
	if len(alphabet) == 0 {
		return nil, validationErr(ErrCodeInvalidAlphabet, field, "must not be empty")
	}
	index := make(map[S]int, len(alphabet))
	for i, s := range alphabet {
		if any(s) == nil {
			return nil, validationErr(ErrCodeInvalidAlphabet, field, "symbol %d is null", i)
		}
		if j, dup := index[s]; dup {
			return nil, validationErr(ErrCodeInvalidAlphabet, field, "symbol %v repeats at %d and %d", s, j, i)
		}
		index[s] = i
	}
	return index, nil
}

// Format renders a candidate by joining the display form of its symbols.
func Format[S comparable](candidate []S, sep string) string {
	var b strings.Builder
	for i, s := range candidate {
		if i > 0 {
			b.WriteString(sep)
		}
		fmt.Fprint(&b, s)
	}
	return b.String()
}

func lengthError(l int, lengths Lengths) error {
	if l < lengths.Min || l > lengths.Max {
		return validationErr(ErrCodeInvalidCandidate, "candidate", "length %d is outside [%d, %d]", l, lengths.Min, lengths.Max)
	}
	return validationErr(ErrCodeInvalidCandidate, "candidate", "length %d is excluded", l)
}

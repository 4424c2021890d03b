package harness

import (
	"fmt"
	"slices"
	"strings"
)

// contextEntries is how many listing entries an AssertionError shows.
const contextEntries = 5

// AssertionError is returned when an assertion fails.
// It includes the ends of the listing to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Listing  []Entry // Full listing for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Listing) == 0 {
		return buf.String()
	}
	fmt.Fprintf(&buf, "\nListing (%d candidates):\n", len(e.Listing))
	head := e.Listing
	var tail []Entry
	if len(head) > 2*contextEntries {
		head, tail = e.Listing[:contextEntries], e.Listing[len(e.Listing)-contextEntries:]
	}
	for _, en := range head {
		fmt.Fprintf(&buf, "  [%d] %s\n", en.Position, en.Candidate)
	}
	if tail != nil {
		fmt.Fprintf(&buf, "  ...\n")
		for _, en := range tail {
			fmt.Fprintf(&buf, "  [%d] %s\n", en.Position, en.Candidate)
		}
	}
	return buf.String()
}

func assertCount(listing []Entry, a Assertion) error {
	if int64(len(listing)) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d candidates", a.Count),
		Actual:   fmt.Sprintf("%d candidates", len(listing)),
		Listing:  listing,
	}
}

func assertEnd(listing []Entry, a Assertion, last bool) error {
	kind := AssertFirst
	if last {
		kind = AssertLast
	}
	if len(listing) == 0 {
		return &AssertionError{Type: kind, Expected: a.Candidate, Actual: "empty listing"}
	}
	got := listing[0]
	if last {
		got = listing[len(listing)-1]
	}
	if got.Candidate == a.Candidate {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: a.Candidate,
		Actual:   fmt.Sprintf("%s at position %d", got.Candidate, got.Position),
		Listing:  listing,
	}
}

func assertContains(listing []Entry, a Assertion) error {
	var at []int64
	for _, e := range listing {
		if e.Candidate == a.Candidate {
			at = append(at, e.Position)
		}
	}
	switch {
	case len(at) == 0:
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("candidate %s", a.Candidate),
			Actual:   "not found in listing",
			Listing:  listing,
		}
	case a.Position > 0 && !slices.Contains(at, a.Position):
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("candidate %s at position %d", a.Candidate, a.Position),
			Actual:   fmt.Sprintf("found at positions %v", at),
			Listing:  listing,
		}
	}
	return nil
}

func assertAbsentLengths(listing []Entry, a Assertion) error {
	for _, e := range listing {
		if slices.Contains(a.Lengths, e.Length) {
			return &AssertionError{
				Type:     AssertAbsentLengths,
				Expected: fmt.Sprintf("no candidate of length %v", a.Lengths),
				Actual:   fmt.Sprintf("%s at position %d has length %d", e.Candidate, e.Position, e.Length),
				Listing:  listing,
			}
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions against the listing of a result and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCount:
			err = assertCount(result.Listing, a)
		case AssertFirst:
			err = assertEnd(result.Listing, a, false)
		case AssertLast:
			err = assertEnd(result.Listing, a, true)
		case AssertContains:
			err = assertContains(result.Listing, a)
		case AssertAbsentLengths:
			err = assertAbsentLengths(result.Listing, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

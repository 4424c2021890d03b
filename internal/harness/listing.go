package harness

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/testutil"
)

// listing converts collected visits into entries ordered by position.
func listing(visits []testutil.Visit[string], sep string) []Entry {
	out := make([]Entry, len(visits))
	for i, v := range visits {
		out[i] = Entry{
			Position:  v.Position,
			Worker:    v.Worker,
			Length:    len(v.Candidate),
			Candidate: engine.Format(v.Candidate, sep),
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

// FormatListing renders one "position<TAB>candidate" line per entry. The
// output does not depend on the worker that produced an entry.
func FormatListing(entries []Entry) []byte {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d\t%s\n", e.Position, e.Candidate)
	}
	return []byte(b.String())
}

// Package engine enumerates candidates over symbol alphabets.
//
// A Space is an immutable ordering of candidates with an exact bijection
// between 1-based positions and candidates:
//
//   - SimpleSpace: every sequence over one alphabet, repetition allowed.
//   - StructuredSpace: per-slot alphabets, addressed from either end of the
//     candidate, over a default alphabet.
//   - PermutationSpace: arrangements without repetition, grouped by subset.
//
// Shorter candidates come first. Excluded lengths own no positions, so
// positions 1 through Max are exactly the generatable candidates.
//
// An Engine walks one window of a space. It seeks to the window start through
// the position mapping and then advances incrementally, calling the Callback
// for every candidate. Start runs the loop on the calling goroutine; Stop,
// SetPaused and the window setters are cooperative and take effect at the
// loop's next per-candidate check.
//
//	space, _ := engine.NewSimple([]rune("abc"), engine.Lengths{Min: 1, Max: 4})
//	e, _ := engine.New(space, engine.Window{Start: 1}, func(g engine.Generated[rune]) bool {
//		return string(g.Candidate) == "cab"
//	})
//	err := e.Start(ctx)
package engine

// Package harness runs enumeration scenarios and checks their candidate
// listings.
//
// A scenario is a YAML file naming a space (the same definition a job uses), a
// window, a thread count and a list of assertions:
//
//	name: two-letter words
//	description: every candidate of length 1 and 2 over a,b
//	space:
//	  alphabet: a,b
//	  max: 2
//	threads: 3
//	assertions:
//	  - type: count
//	    count: 6
//	  - type: last
//	    candidate: bb
//
// Run enumerates the whole window through a coordinator, so scenarios also
// exercise partitioning: the listing is sorted by position afterwards and must
// not depend on the thread count. Listings can be compared against golden
// files with RunWithGolden.
package harness

// Package alphabet parses the alphabet expressions accepted by jobs, harness
// scenarios and the command line.
//
// An expression is a comma-separated list of items:
//
//	a,b,c          literal symbols
//	a-z            an inclusive rune range
//	0-9, 01-12     an inclusive integer range, zero padded to the width of
//	               the lower bound when it has a leading zero
//	:lower         a preset (:lower, :upper, :digits, :printable)
//	@words.txt     one symbol per non-empty line of a file
//
// A literal comma is written as \, and a literal backslash as \\. An item
// containing any escape is taken literally, so a\-z is the symbol "a-z".
//
// Every symbol is normalised to NFC, and the resulting alphabet must not
// contain duplicates.
package alphabet

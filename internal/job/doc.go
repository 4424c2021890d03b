// Package job loads enumeration jobs from YAML or CUE files.
//
// Every job is unified with the embedded #Job schema before it is decoded, so
// defaults (mode simple, window [1, Max], one thread, three retries) are filled
// in and unknown fields are rejected. A loaded job builds the space it
// describes, its window, and a callback that matches the configured targets.
package job

// Package tail reads the gateway log incrementally.
//
// A Cursor remembers how many bytes of the file have been consumed and, on
// each Poll, returns only the complete lines appended since then. A file that
// shrinks or is replaced by a different file is reported as rotated and the
// cursor restarts from the new baseline; bytes written before the rotation are
// never replayed.
//
// Recent serves the backlog query: the last N non-blank lines of the file in
// chronological order, read with a ring buffer so memory is bounded by N.
package tail

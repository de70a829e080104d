// Package transcript parses per-chunk model responses into words and stitches
// them into one transcript on the timeline of the original recording.
// A chunk whose response cannot be parsed is dropped and reported as a fault;
// the remaining chunks are kept.
package transcript

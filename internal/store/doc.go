// Package store caches complete transcripts in SQLite, keyed by the blake3
// hash of the uploaded recording, so re-uploading the same file skips the
// transcription model entirely.
package store

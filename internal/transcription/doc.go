// Package transcription is the boundary to the external speech-to-text model.
// A Transcriber turns one encoded chunk into the model's raw word-timestamp
// response; parsing and stitching happen in the transcript package.
//
// Two backends are provided: a generic multipart HTTP endpoint and OpenAI's
// audio transcription API. Both bound concurrency with a semaphore, retry
// rate-limited, server-side and network failures with exponential backoff, and
// keep request statistics.
package transcription

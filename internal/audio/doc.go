// Package audio holds the sample-level pipeline: decoded PCM buffers, fixed-duration
// chunking for the transcription model, clip rendering from ordered time ranges and
// encoding to and from canonical 16-bit RIFF/WAVE containers.
package audio

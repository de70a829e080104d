package audio

import "errors"

var (
	// ErrInvalidConfiguration is returned when a chunking parameter cannot
	// produce at least one sample per chunk.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidBuffer is returned for buffers with no channels, a non-positive
	// sample rate or channels of different lengths.
	ErrInvalidBuffer = errors.New("invalid buffer")

	// ErrEmptySelection is returned when a clip is requested without any
	// segment that covers audio.
	ErrEmptySelection = errors.New("empty selection")

	// ErrInvalidWAV is returned when uploaded bytes are not a 16-bit linear PCM WAVE file.
	ErrInvalidWAV = errors.New("invalid WAV data")
)

package audio

import (
	"fmt"
	"math"
)

// Chunk is a contiguous slice of a recording sent to the transcription model
// as one request, plus where it starts in the recording.
type Chunk struct {
	Index         int           `json:"index"`
	StartSample   int           `json:"start_sample"`
	OffsetSeconds float64       `json:"offset_seconds"`
	Buffer        *SampleBuffer `json:"-"`
}

// Duration returns the chunk length in seconds
func (c Chunk) Duration() float64 {
	if c.Buffer == nil {
		return 0
	}
	return c.Buffer.Duration()
}

// EndSeconds returns the position in the recording where the chunk ends
func (c Chunk) EndSeconds() float64 {
	return c.OffsetSeconds + c.Duration()
}

// String returns a human-readable representation for logging
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %.3fs-%.3fs", c.Index, c.OffsetSeconds, c.EndSeconds())
}

// ChunkSamples returns the number of samples per chunk for a maximum chunk
// duration in seconds at the given sample rate.
func ChunkSamples(maxDuration float64, sampleRate int) (int, error) {
	if math.IsNaN(maxDuration) || math.IsInf(maxDuration, 0) {
		return 0, fmt.Errorf("%w: max chunk duration %v is not finite", ErrInvalidConfiguration, maxDuration)
	}

	n := math.Floor(maxDuration * float64(sampleRate))
	if n < 1 {
		return 0, fmt.Errorf("%w: max chunk duration %.6fs at %d Hz yields less than one sample",
			ErrInvalidConfiguration, maxDuration, sampleRate)
	}

	if n > math.MaxInt32 {
		n = math.MaxInt32
	}

	return int(n), nil
}

// SplitBuffer splits buf into consecutive chunks of at most maxDuration seconds.
// The last chunk holds the remainder, so concatenating the chunk buffers in order
// reproduces buf exactly. An empty buffer yields no chunks.
func SplitBuffer(buf *SampleBuffer, maxDuration float64) ([]Chunk, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("split buffer: %w", err)
	}

	chunkSamples, err := ChunkSamples(maxDuration, buf.SampleRate)
	if err != nil {
		return nil, err
	}

	total := buf.Len()
	if total == 0 {
		return []Chunk{}, nil
	}

	chunks := make([]Chunk, 0, (total+chunkSamples-1)/chunkSamples)
	for start := 0; start < total; start += chunkSamples {
		end := start + min(chunkSamples, total-start)

		slice, err := buf.Slice(start, end)
		if err != nil {
			return nil, fmt.Errorf("split buffer: chunk %d: %w", len(chunks), err)
		}

		chunks = append(chunks, Chunk{
			Index:         len(chunks),
			StartSample:   start,
			OffsetSeconds: float64(start) / float64(buf.SampleRate),
			Buffer:        slice,
		})
	}

	return chunks, nil
}

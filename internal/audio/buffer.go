package audio

import (
	"fmt"
)

// SampleBuffer holds decoded multi-channel PCM audio.
// Channels is indexed [channel][sample] and every channel has the same length.
// Samples are floats nominally in [-1.0, 1.0].
//
// Buffers are treated as values: nothing in this package writes into a buffer
// after it has been built, every transformation allocates a new one.
type SampleBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// BufferInfo summarises a buffer for logging and API responses
type BufferInfo struct {
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
	Samples         int     `json:"samples"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// NewSampleBuffer copies channels into a new validated buffer
func NewSampleBuffer(sampleRate int, channels [][]float32) (*SampleBuffer, error) {
	b := &SampleBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, len(channels)),
	}
	for i, ch := range channels {
		b.Channels[i] = append([]float32(nil), ch...)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// NewSilentBuffer allocates a zero-filled buffer
func NewSilentBuffer(sampleRate, numChannels, length int) (*SampleBuffer, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidBuffer, length)
	}

	b := &SampleBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, numChannels),
	}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, length)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// Validate checks the structural invariants of the buffer
func (b *SampleBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}

	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidBuffer, b.SampleRate)
	}

	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrInvalidBuffer)
	}

	length := len(b.Channels[0])
	for i, ch := range b.Channels[1:] {
		if len(ch) != length {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrInvalidBuffer, i+1, len(ch), length)
		}
	}

	return nil
}

// NumChannels returns the channel count
func (b *SampleBuffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel
func (b *SampleBuffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds
func (b *SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Info returns a summary of the buffer
func (b *SampleBuffer) Info() BufferInfo {
	return BufferInfo{
		SampleRate:      b.SampleRate,
		Channels:        b.NumChannels(),
		Samples:         b.Len(),
		DurationSeconds: b.Duration(),
	}
}

// Slice copies the sample range [start, end) of every channel into a new buffer
func (b *SampleBuffer) Slice(start, end int) (*SampleBuffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if start < 0 || end > b.Len() || start > end {
		return nil, fmt.Errorf("%w: slice [%d, %d) outside buffer of %d samples",
			ErrInvalidBuffer, start, end, b.Len())
	}

	out := &SampleBuffer{
		SampleRate: b.SampleRate,
		Channels:   make([][]float32, len(b.Channels)),
	}
	for i, ch := range b.Channels {
		out.Channels[i] = append(make([]float32, 0, end-start), ch[start:end]...)
	}

	return out, nil
}

// Concat joins buffers end to end. All buffers must share sample rate and channel count.
func Concat(buffers ...*SampleBuffer) (*SampleBuffer, error) {
	if len(buffers) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrInvalidBuffer)
	}

	first := buffers[0]
	total := 0
	for i, b := range buffers {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if b.SampleRate != first.SampleRate || b.NumChannels() != first.NumChannels() {
			return nil, fmt.Errorf("%w: buffer %d is %d Hz x %d channels, expected %d Hz x %d channels",
				ErrInvalidBuffer, i, b.SampleRate, b.NumChannels(), first.SampleRate, first.NumChannels())
		}
		total += b.Len()
	}

	out := &SampleBuffer{
		SampleRate: first.SampleRate,
		Channels:   make([][]float32, first.NumChannels()),
	}
	for ch := range out.Channels {
		data := make([]float32, 0, total)
		for _, b := range buffers {
			data = append(data, b.Channels[ch]...)
		}
		out.Channels[ch] = data
	}

	return out, nil
}

package audio

import (
	"fmt"
	"math"
)

// TimeRange is a (start, end) interval in seconds into a recording
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Clamp limits the range to [0, limit]
func (r TimeRange) Clamp(limit float64) TimeRange {
	return TimeRange{
		Start: max(0, min(limit, r.Start)),
		End:   max(0, min(limit, r.End)),
	}
}

// span is one segment resolved to sample indices
type span struct {
	src   int
	count int
}

// resolveSpans clamps every segment to the buffer and converts it to sample
// indices. Segments that end up empty are dropped.
func resolveSpans(original *SampleBuffer, segments []TimeRange) []span {
	rate := float64(original.SampleRate)
	length := original.Len()
	duration := original.Duration()

	spans := make([]span, 0, len(segments))
	for _, seg := range segments {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			continue
		}

		r := seg.Clamp(duration)
		if r.End <= r.Start {
			continue
		}

		src := int(math.Round(r.Start * rate))
		count := int(math.Round(r.Duration() * rate))
		count = min(count, length-src)
		if count <= 0 {
			continue
		}

		spans = append(spans, span{src: src, count: count})
	}

	return spans
}

// RenderClip builds a new buffer by splicing the given ranges of original
// together in list order. Ranges are clamped to the recording; ranges that
// cover no audio after clamping are skipped. The output has the channel count
// and sample rate of original and owns its storage.
func RenderClip(original *SampleBuffer, segments []TimeRange) (*SampleBuffer, error) {
	if err := original.Validate(); err != nil {
		return nil, fmt.Errorf("render clip: %w", err)
	}

	spans := resolveSpans(original, segments)
	if len(spans) == 0 {
		return nil, fmt.Errorf("render clip: %w: %d segments, none covers audio", ErrEmptySelection, len(segments))
	}

	total := 0
	for _, s := range spans {
		total += s.count
	}

	out := &SampleBuffer{
		SampleRate: original.SampleRate,
		Channels:   make([][]float32, original.NumChannels()),
	}
	for ch := range out.Channels {
		data := make([]float32, total)
		pos := 0
		for _, s := range spans {
			pos += copy(data[pos:pos+s.count], original.Channels[ch][s.src:s.src+s.count])
		}
		out.Channels[ch] = data
	}

	return out, nil
}

// PadToDuration returns buf extended with trailing silence so that it lasts at
// least minDuration seconds. buf is returned unchanged if it is already long enough.
func PadToDuration(buf *SampleBuffer, minDuration float64) (*SampleBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("pad buffer: %w", err)
	}

	want := int(math.Ceil(minDuration * float64(buf.SampleRate)))
	if want <= buf.Len() {
		return buf, nil
	}

	silence, err := NewSilentBuffer(buf.SampleRate, buf.NumChannels(), want-buf.Len())
	if err != nil {
		return nil, fmt.Errorf("pad buffer: %w", err)
	}

	return Concat(buf, silence)
}

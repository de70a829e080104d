package audio

import (
	"errors"
	"testing"
)

func TestNewSampleBuffer(t *testing.T) {
	src := [][]float32{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}}

	buf, err := NewSampleBuffer(8000, src)
	if err != nil {
		t.Fatalf("NewSampleBuffer failed: %v", err)
	}

	if buf.NumChannels() != 2 {
		t.Errorf("Expected 2 channels, got %d", buf.NumChannels())
	}

	if buf.Len() != 3 {
		t.Errorf("Expected 3 samples, got %d", buf.Len())
	}

	src[0][0] = 0.9
	if buf.Channels[0][0] != 0.1 {
		t.Error("NewSampleBuffer did not copy its input")
	}

	info := buf.Info()
	if info.SampleRate != 8000 || info.Channels != 2 || info.Samples != 3 {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestSampleBufferValidate(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels [][]float32
		wantErr  bool
	}{
		{"valid mono", 8000, [][]float32{{0, 0}}, false},
		{"valid empty", 8000, [][]float32{{}, {}}, false},
		{"no channels", 8000, nil, true},
		{"zero rate", 0, [][]float32{{0}}, true},
		{"negative rate", -8000, [][]float32{{0}}, true},
		{"mismatched", 8000, [][]float32{{0, 0}, {0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampleBuffer(tt.rate, tt.channels)
			if tt.wantErr && !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Expected ErrInvalidBuffer, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSampleBufferSlice(t *testing.T) {
	buf := rampBuffer(8000, 2, 100)

	part, err := buf.Slice(10, 20)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}

	if part.Len() != 10 {
		t.Fatalf("Expected 10 samples, got %d", part.Len())
	}

	for ch := range part.Channels {
		for i, s := range part.Channels[ch] {
			if s != buf.Channels[ch][10+i] {
				t.Errorf("Channel %d sample %d: expected %f, got %f", ch, i, buf.Channels[ch][10+i], s)
			}
		}
	}

	for _, r := range [][2]int{{-1, 5}, {5, 101}, {20, 10}} {
		if _, err := buf.Slice(r[0], r[1]); !errors.Is(err, ErrInvalidBuffer) {
			t.Errorf("Slice(%d, %d): expected ErrInvalidBuffer, got %v", r[0], r[1], err)
		}
	}
}

func TestConcatFormatMismatch(t *testing.T) {
	a := rampBuffer(8000, 1, 10)
	b := rampBuffer(16000, 1, 10)
	c := rampBuffer(8000, 2, 10)

	if _, err := Concat(a, b); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer for rate mismatch, got %v", err)
	}

	if _, err := Concat(a, c); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer for channel mismatch, got %v", err)
	}

	if _, err := Concat(); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer for no buffers, got %v", err)
	}
}

func TestNewSilentBuffer(t *testing.T) {
	buf, err := NewSilentBuffer(8000, 2, 40)
	if err != nil {
		t.Fatalf("NewSilentBuffer failed: %v", err)
	}

	if buf.Duration() != 0.005 {
		t.Errorf("Expected duration 0.005, got %f", buf.Duration())
	}

	for ch := range buf.Channels {
		for _, s := range buf.Channels[ch] {
			if s != 0 {
				t.Fatalf("Expected silence, got %f", s)
			}
		}
	}

	if _, err := NewSilentBuffer(8000, 1, -1); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer for negative length, got %v", err)
	}
}

// equalBuffers reports whether two buffers have the same format and identical samples
func equalBuffers(b, other *SampleBuffer) bool {
	if b == nil || other == nil {
		return b == other
	}

	if b.SampleRate != other.SampleRate || len(b.Channels) != len(other.Channels) {
		return false
	}

	for ch := range b.Channels {
		if len(b.Channels[ch]) != len(other.Channels[ch]) {
			return false
		}
		for i, s := range b.Channels[ch] {
			if other.Channels[ch][i] != s {
				return false
			}
		}
	}

	return true
}

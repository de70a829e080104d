package transcript

import (
	"errors"
	"testing"
)

func TestParseWords(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Word
	}{
		{
			name:    "bare array",
			payload: `[{"word":"hello","startTime":0.1,"endTime":0.5},{"word":"world","startTime":0.6,"endTime":1.2}]`,
			want:    []Word{{"hello", 0.1, 0.5}, {"world", 0.6, 1.2}},
		},
		{
			name:    "words envelope",
			payload: `{"words":[{"word":"hi","startTime":0,"endTime":0.25}]}`,
			want:    []Word{{"hi", 0, 0.25}},
		},
		{
			name:    "exponent notation",
			payload: `[{"word":"x","startTime":1.5e0,"endTime":2E0}]`,
			want:    []Word{{"x", 1.5, 2}},
		},
		{
			name:    "zero length word",
			payload: `[{"word":"a","startTime":3,"endTime":3}]`,
			want:    []Word{{"a", 3, 3}},
		},
		{
			name:    "empty array",
			payload: ` [] `,
			want:    []Word{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWords([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseWords failed: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d words, got %d", len(tt.want), len(got))
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Word %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseWordsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ``},
		{"not json", `transcription failed`},
		{"truncated", `[{"word":"a","startTime":0,`},
		{"scalar", `42`},
		{"object without words", `{"text":"hello"}`},
		{"missing word", `[{"startTime":0,"endTime":1}]`},
		{"missing start", `[{"word":"a","endTime":1}]`},
		{"missing end", `[{"word":"a","startTime":0}]`},
		{"null end", `[{"word":"a","startTime":0,"endTime":null}]`},
		{"non-numeric start", `[{"word":"a","startTime":"soon","endTime":1}]`},
		{"quoted timestamps", `[{"word":"hi","startTime":"0.5","endTime":"1.0"}]`},
		{"quoted end", `[{"word":"hi","startTime":0.5,"endTime":"1.0"}]`},
		{"object start", `[{"word":"a","startTime":{"s":1},"endTime":2}]`},
		{"boolean end", `[{"word":"a","startTime":0,"endTime":true}]`},
		{"end before start", `[{"word":"a","startTime":2,"endTime":1}]`},
		{"negative start", `[{"word":"a","startTime":-0.5,"endTime":1}]`},
		{"out of order", `[{"word":"b","startTime":2,"endTime":3},{"word":"a","startTime":1,"endTime":1.5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := ParseWords([]byte(tt.payload))
			if !errors.Is(err, ErrMalformedTranscript) {
				t.Errorf("Expected ErrMalformedTranscript, got %v", err)
			}
			if words != nil {
				t.Errorf("Expected no words, got %+v", words)
			}
		})
	}
}

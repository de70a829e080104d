package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/skypro1111/wordclip-service/internal/audio"
)

// ErrMalformedTranscript is returned when a chunk's model response cannot be
// turned into well-formed words.
var ErrMalformedTranscript = errors.New("malformed transcript")

// Word is one transcribed word with timestamps in seconds
type Word struct {
	Text      string  `json:"word"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Range returns the word's time range
func (w Word) Range() audio.TimeRange {
	return audio.TimeRange{Start: w.StartTime, End: w.EndTime}
}

// Shift returns the word moved by offset seconds
func (w Word) Shift(offset float64) Word {
	return Word{
		Text:      w.Text,
		StartTime: w.StartTime + offset,
		EndTime:   w.EndTime + offset,
	}
}

// wireWord is a word as the model sends it. Timestamps stay raw so that
// only JSON numbers are accepted.
type wireWord struct {
	Word      *string         `json:"word"`
	StartTime json.RawMessage `json:"startTime"`
	EndTime   json.RawMessage `json:"endTime"`
}

type wireEnvelope struct {
	Words *[]json.RawMessage `json:"words"`
}

// ParseWords parses one chunk's model response. The payload is either a JSON
// array of {word, startTime, endTime} objects or an object carrying that array
// under "words". Timestamps stay relative to the chunk.
func ParseWords(payload []byte) ([]Word, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedTranscript)
	}

	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
		}
	case '{':
		var env wireEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
		}
		if env.Words == nil {
			return nil, fmt.Errorf("%w: response has no words field", ErrMalformedTranscript)
		}
		items = *env.Words
	default:
		return nil, fmt.Errorf("%w: expected JSON array or object, got %q", ErrMalformedTranscript, trimmed[0])
	}

	words := make([]Word, 0, len(items))
	for i, item := range items {
		w, err := parseWord(item)
		if err != nil {
			return nil, fmt.Errorf("%w: word %d: %v", ErrMalformedTranscript, i, err)
		}

		if len(words) > 0 && w.StartTime < words[len(words)-1].StartTime {
			return nil, fmt.Errorf("%w: word %d starts at %.3fs, before word %d at %.3fs",
				ErrMalformedTranscript, i, w.StartTime, i-1, words[len(words)-1].StartTime)
		}

		words = append(words, w)
	}

	return words, nil
}

func parseWord(item json.RawMessage) (Word, error) {
	var ww wireWord
	if err := json.Unmarshal(item, &ww); err != nil {
		return Word{}, err
	}

	if ww.Word == nil {
		return Word{}, errors.New("missing word")
	}

	start, err := parseSeconds("startTime", ww.StartTime)
	if err != nil {
		return Word{}, err
	}

	end, err := parseSeconds("endTime", ww.EndTime)
	if err != nil {
		return Word{}, err
	}

	switch {
	case start.IsNegative():
		return Word{}, fmt.Errorf("negative startTime %s", start)
	case end.LessThan(start):
		return Word{}, fmt.Errorf("endTime %s before startTime %s", end, start)
	}

	return Word{
		Text:      *ww.Word,
		StartTime: start.InexactFloat64(),
		EndTime:   end.InexactFloat64(),
	}, nil
}

// parseSeconds decodes a timestamp that must be a JSON number
func parseSeconds(field string, raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("missing %s", field)
	}

	if raw[0] == '"' {
		return decimal.Decimal{}, fmt.Errorf("%s must be a number, got string %s", field, raw)
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a number, got %s", field, raw)
	}
	return d, nil
}

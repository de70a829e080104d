// Package phrase keeps the user's ordered word selection and turns it into the
// time ranges the clip renderer cuts from the recording.
package phrase

import (
	"errors"
	"fmt"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

// ErrIndexOutOfRange is returned when a position does not exist in the phrase
var ErrIndexOutOfRange = errors.New("index out of range")

// Composer is an ordered list of selected words. Order is insertion order and
// need not be chronological; the same word may appear more than once.
// A Composer is not safe for concurrent use.
type Composer struct {
	words []transcript.Word
}

// NewComposer creates an empty phrase
func NewComposer() *Composer {
	return &Composer{}
}

// Append adds a word at the end of the phrase
func (c *Composer) Append(w transcript.Word) {
	c.words = append(c.words, w)
}

// Remove deletes the word at position i, shifting later words down.
// The phrase is unchanged when i is not a current position.
func (c *Composer) Remove(i int) error {
	if i < 0 || i >= len(c.words) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.words))
	}

	c.words = append(c.words[:i], c.words[i+1:]...)
	return nil
}

// Clear empties the phrase
func (c *Composer) Clear() {
	c.words = nil
}

// Len returns the number of selected words
func (c *Composer) Len() int {
	return len(c.words)
}

// Words returns a copy of the selection
func (c *Composer) Words() []transcript.Word {
	out := make([]transcript.Word, len(c.words))
	copy(out, c.words)
	return out
}

// ToSegments maps the selection to time ranges in selection order. Words with
// no positive duration are left out.
func (c *Composer) ToSegments() []audio.TimeRange {
	segments := make([]audio.TimeRange, 0, len(c.words))
	for _, w := range c.words {
		if w.EndTime <= w.StartTime {
			continue
		}
		segments = append(segments, w.Range())
	}
	return segments
}

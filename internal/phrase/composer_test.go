package phrase

import (
	"errors"
	"testing"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

var (
	hello = transcript.Word{Text: "hello", StartTime: 0, EndTime: 1}
	world = transcript.Word{Text: "world", StartTime: 2, EndTime: 3}
	again = transcript.Word{Text: "again", StartTime: 4, EndTime: 4.5}
)

func TestComposerAppendKeepsOrderAndDuplicates(t *testing.T) {
	c := NewComposer()
	c.Append(world)
	c.Append(hello)
	c.Append(world)

	if c.Len() != 3 {
		t.Fatalf("Expected 3 words, got %d", c.Len())
	}

	want := []audio.TimeRange{{Start: 2, End: 3}, {Start: 0, End: 1}, {Start: 2, End: 3}}
	got := c.ToSegments()
	if len(got) != len(want) {
		t.Fatalf("Expected %d segments, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Segment %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestComposerRemove(t *testing.T) {
	c := NewComposer()
	c.Append(hello)
	c.Append(world)
	c.Append(again)

	if err := c.Remove(1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	words := c.Words()
	if len(words) != 2 || words[0] != hello || words[1] != again {
		t.Errorf("Expected [hello again], got %+v", words)
	}
}

func TestComposerRemoveOutOfRange(t *testing.T) {
	c := NewComposer()
	c.Append(hello)
	c.Append(world)

	for _, idx := range []int{-1, 2, 100} {
		if err := c.Remove(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Remove(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}

	words := c.Words()
	if len(words) != 2 || words[0] != hello || words[1] != world {
		t.Errorf("Expected phrase unchanged, got %+v", words)
	}

	empty := NewComposer()
	if err := empty.Remove(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange on empty phrase, got %v", err)
	}
}

func TestComposerToSegmentsDropsEmptyWords(t *testing.T) {
	c := NewComposer()
	c.Append(transcript.Word{Text: "blip", StartTime: 1, EndTime: 1})
	c.Append(hello)
	c.Append(transcript.Word{Text: "bad", StartTime: 3, EndTime: 2})

	segments := c.ToSegments()
	if len(segments) != 1 || segments[0] != hello.Range() {
		t.Errorf("Expected only hello's range, got %+v", segments)
	}

	if c.Len() != 3 {
		t.Errorf("Expected dropped words to stay in the phrase, got %d words", c.Len())
	}
}

func TestComposerClear(t *testing.T) {
	c := NewComposer()
	c.Append(hello)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty phrase, got %d words", c.Len())
	}

	if segs := c.ToSegments(); len(segs) != 0 {
		t.Errorf("Expected no segments, got %+v", segs)
	}
}

func TestComposerWordsIsCopy(t *testing.T) {
	c := NewComposer()
	c.Append(hello)

	words := c.Words()
	words[0].Text = "changed"

	if c.Words()[0].Text != "hello" {
		t.Error("Words shares storage with the composer")
	}
}

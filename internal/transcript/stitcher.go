package transcript

import (
	"errors"
	"fmt"
	"sort"
)

// startTolerance is how far past its chunk's end a word may start. Such
// words are pulled back to the chunk's end.
const startTolerance = 0.05

// ChunkResult is the outcome of transcribing one chunk: either the model's raw
// response or the error that prevented getting one. A zero DurationSeconds
// disables the bounds check on word start times.
type ChunkResult struct {
	Index           int
	OffsetSeconds   float64
	DurationSeconds float64
	Payload         []byte
	Err             error
}

// ChunkFault records a chunk whose words are missing from a transcript
type ChunkFault struct {
	Index         int     `json:"index"`
	OffsetSeconds float64 `json:"offset_seconds"`
	Message       string  `json:"error"`
	Err           error   `json:"-"`
}

func (f ChunkFault) Error() string {
	return fmt.Sprintf("chunk %d at %.3fs: %v", f.Index, f.OffsetSeconds, f.Err)
}

func (f ChunkFault) Unwrap() error {
	return f.Err
}

// Result is a stitched transcript. Faults lists the chunks that contributed
// no words; a result with faults is partial.
type Result struct {
	Words       []Word       `json:"words"`
	Faults      []ChunkFault `json:"faults,omitempty"`
	ChunksTotal int          `json:"chunks_total"`
}

// Partial reports whether any chunk failed
func (r *Result) Partial() bool {
	return len(r.Faults) > 0
}

// Err joins all chunk faults, or returns nil for a complete transcript
func (r *Result) Err() error {
	if len(r.Faults) == 0 {
		return nil
	}

	errs := make([]error, len(r.Faults))
	for i, f := range r.Faults {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// boundStarts rejects words starting after the chunk ends. Starts within
// startTolerance of the end are clamped to it, so the next chunk's words
// never start earlier.
func boundStarts(words []Word, duration float64) error {
	for i := range words {
		if words[i].StartTime > duration+startTolerance {
			return fmt.Errorf("%w: word %d starts at %.3fs, after the chunk ends at %.3fs",
				ErrMalformedTranscript, i, words[i].StartTime, duration)
		}
		if words[i].StartTime > duration {
			words[i].StartTime = duration
		}
	}
	return nil
}

// Stitch merges per-chunk results into one transcript on the recording's
// timeline. Results are processed by chunk index regardless of the order in
// which they are passed. Each chunk's words are shifted by its offset; a chunk
// with an error, a malformed payload or a word starting past the chunk's end is
// skipped and recorded as a fault.
func Stitch(results []ChunkResult) *Result {
	ordered := make([]ChunkResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	res := &Result{
		Words:       make([]Word, 0),
		ChunksTotal: len(ordered),
	}

	for _, cr := range ordered {
		err := cr.Err
		var words []Word
		if err == nil {
			words, err = ParseWords(cr.Payload)
		}
		if err == nil && cr.DurationSeconds > 0 {
			err = boundStarts(words, cr.DurationSeconds)
		}

		if err != nil {
			res.Faults = append(res.Faults, ChunkFault{
				Index:         cr.Index,
				OffsetSeconds: cr.OffsetSeconds,
				Message:       err.Error(),
				Err:           err,
			})
			continue
		}

		for _, w := range words {
			res.Words = append(res.Words, w.Shift(cr.OffsetSeconds))
		}
	}

	return res
}

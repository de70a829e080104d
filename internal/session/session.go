package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/phrase"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

// Session is one user's recording, transcript and phrase
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	// Current recording, replaced as a whole by each completed upload
	recordingName string
	hash          string
	buffer        *audio.SampleBuffer
	result        *transcript.Result
	cached        bool
	uploadedAt    time.Time

	composer *phrase.Composer

	// generation increases with every upload started; only the newest may commit
	generation      uint64
	uploadsInFlight int
	removed         bool

	manager *Manager

	mu sync.RWMutex
}

// Clip is a rendered phrase
type Clip struct {
	Filename string
	Data     []byte
	Duration float64
	Segments int
}

// SessionInfo represents session information for monitoring and APIs
type SessionInfo struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Age          time.Duration `json:"age"`

	RecordingName     string    `json:"recording_name,omitempty"`
	RecordingHash     string    `json:"recording_hash,omitempty"`
	SampleRate        int       `json:"sample_rate,omitempty"`
	Channels          int       `json:"channels,omitempty"`
	RecordingDuration float64   `json:"recording_duration"`
	UploadedAt        time.Time `json:"uploaded_at,omitempty"`
	Uploading         bool      `json:"uploading"`

	WordCount    int  `json:"word_count"`
	ChunksTotal  int  `json:"chunks_total"`
	ChunkFaults  int  `json:"chunk_faults"`
	Partial      bool `json:"partial"`
	Cached       bool `json:"cached"`
	PhraseLength int  `json:"phrase_length"`
}

func (s *Session) touch() {
	s.LastActivity = time.Now()
}

// Touch marks the session as active
func (s *Session) Touch() {
	s.mu.Lock()
	s.touch()
	s.mu.Unlock()
}

// beginUpload registers an upload and returns its generation
func (s *Session) beginUpload() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.uploadsInFlight++
	s.touch()
	return s.generation
}

func (s *Session) endUpload() {
	s.mu.Lock()
	s.uploadsInFlight--
	s.mu.Unlock()
}

// commit installs a finished upload unless a newer one has started. The
// phrase is cleared since it referred to the previous recording.
func (s *Session) commit(generation uint64, name, hash string, buf *audio.SampleBuffer, res *transcript.Result, cached bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed || generation != s.generation {
		return false
	}

	s.recordingName = name
	s.hash = hash
	s.buffer = buf
	s.result = res
	s.cached = cached
	s.uploadedAt = time.Now()
	s.composer.Clear()
	s.touch()
	return true
}

func (s *Session) invalidate() {
	s.mu.Lock()
	s.removed = true
	s.generation++
	s.mu.Unlock()
}

// Transcript returns the current transcript, or ErrNoRecording
func (s *Session) Transcript() (*transcript.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if s.result == nil {
		return nil, ErrNoRecording
	}
	return s.result, nil
}

// AppendWord adds the transcript word at index to the phrase
func (s *Session) AppendWord(index int) (transcript.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if s.result == nil {
		return transcript.Word{}, ErrNoRecording
	}

	if index < 0 || index >= len(s.result.Words) {
		return transcript.Word{}, fmt.Errorf("%w: transcript word %d not in [0, %d)",
			phrase.ErrIndexOutOfRange, index, len(s.result.Words))
	}

	w := s.result.Words[index]
	s.composer.Append(w)
	return w, nil
}

// AppendCustomWord adds an explicit word to the phrase. Its range need not
// come from the transcript; out-of-range times are clamped at render time.
func (s *Session) AppendCustomWord(w transcript.Word) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.composer.Append(w)
}

// RemoveWord deletes the phrase entry at position i
func (s *Session) RemoveWord(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	return s.composer.Remove(i)
}

// ClearPhrase empties the phrase
func (s *Session) ClearPhrase() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.composer.Clear()
}

// Phrase returns a copy of the phrase
func (s *Session) Phrase() []transcript.Word {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.composer.Words()
}

// RenderClip cuts the phrase out of the recording and encodes it as WAV
func (s *Session) RenderClip() (*Clip, error) {
	s.mu.Lock()
	s.touch()
	buf := s.buffer
	segments := s.composer.ToSegments()
	s.mu.Unlock()

	m := s.manager
	if buf == nil {
		m.metrics.RecordClipError()
		return nil, ErrNoRecording
	}

	rendered, err := audio.RenderClip(buf, segments)
	if err != nil {
		m.metrics.RecordClipError()
		return nil, fmt.Errorf("failed to render clip: %w", err)
	}

	rendered, err = audio.PadToDuration(rendered, m.config.MinClipDuration)
	if err != nil {
		m.metrics.RecordClipError()
		return nil, fmt.Errorf("failed to pad clip: %w", err)
	}

	data, err := audio.EncodeWAV(rendered)
	if err != nil {
		m.metrics.RecordClipError()
		return nil, fmt.Errorf("failed to encode clip: %w", err)
	}

	clip := &Clip{
		Filename: fmt.Sprintf("clip_%s.wav", uuid.NewString()),
		Data:     data,
		Duration: rendered.Duration(),
		Segments: len(segments),
	}

	m.metrics.RecordClipRendered(clip.Duration)
	m.logger.Info("Clip rendered",
		slog.String("session_id", s.ID),
		slog.Int("segments", clip.Segments),
		slog.Float64("duration", clip.Duration),
		slog.Int("bytes", len(data)),
	)

	return clip, nil
}

// Recording re-encodes the current recording as WAV for playback. The bytes
// match the upload's samples, not necessarily its original container.
func (s *Session) Recording() (string, []byte, error) {
	s.mu.Lock()
	s.touch()
	name, buf := s.recordingName, s.buffer
	s.mu.Unlock()

	if buf == nil {
		return "", nil, ErrNoRecording
	}

	data, err := audio.EncodeWAV(buf)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode recording: %w", err)
	}
	return name, data, nil
}

// Info returns session information
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := SessionInfo{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
		Age:           time.Since(s.CreatedAt),
		RecordingName: s.recordingName,
		RecordingHash: s.hash,
		UploadedAt:    s.uploadedAt,
		Uploading:     s.uploadsInFlight > 0,
		Cached:        s.cached,
		PhraseLength:  s.composer.Len(),
	}

	if s.buffer != nil {
		info.SampleRate = s.buffer.SampleRate
		info.Channels = s.buffer.NumChannels()
		info.RecordingDuration = s.buffer.Duration()
	}

	if s.result != nil {
		info.WordCount = len(s.result.Words)
		info.ChunksTotal = s.result.ChunksTotal
		info.ChunkFaults = len(s.result.Faults)
		info.Partial = s.result.Partial()
	}

	return info
}

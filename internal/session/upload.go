package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/store"
	"github.com/skypro1111/wordclip-service/internal/transcript"
	"github.com/skypro1111/wordclip-service/internal/transcription"
)

// UploadResult describes a recording after transcription
type UploadResult struct {
	SessionID       string                  `json:"session_id"`
	Name            string                  `json:"name"`
	Hash            string                  `json:"hash"`
	SampleRate      int                     `json:"sample_rate"`
	Channels        int                     `json:"channels"`
	DurationSeconds float64                 `json:"duration_seconds"`
	ChunksTotal     int                     `json:"chunks_total"`
	Words           []transcript.Word       `json:"words"`
	Faults          []transcript.ChunkFault `json:"faults,omitempty"`
	Partial         bool                    `json:"partial"`
	Cached          bool                    `json:"cached"`
}

// Upload decodes a WAV recording, transcribes it and makes it the session's
// current recording. Chunks are transcribed concurrently; a failed chunk
// leaves a gap in the transcript and is reported in Faults. The session is
// untouched when ctx is cancelled, and ErrUploadSuperseded is returned when a
// newer upload to the same session started meanwhile.
func (m *Manager) Upload(ctx context.Context, sessionID, name string, data []byte) (*UploadResult, error) {
	session, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		m.metrics.RecordUploadError()
		return nil, fmt.Errorf("failed to decode recording: %w", err)
	}

	hash, err := store.HashRecording(bytes.NewReader(data))
	if err != nil {
		m.metrics.RecordUploadError()
		return nil, err
	}

	m.metrics.RecordUpload(len(data), buf.Duration())

	generation := session.beginUpload()
	defer session.endUpload()

	logger := m.logger.With(
		slog.String("session_id", sessionID),
		slog.String("recording", name),
		slog.String("hash", hash),
	)
	logger.Info("Recording uploaded",
		slog.Int("sample_rate", buf.SampleRate),
		slog.Int("channels", buf.NumChannels()),
		slog.Float64("duration", buf.Duration()),
		slog.Uint64("generation", generation),
	)

	res, cached := m.lookupCache(ctx, hash, logger)
	if res == nil {
		res, err = m.transcribe(ctx, sessionID, buf, logger)
		if err != nil {
			m.metrics.RecordUploadError()
			return nil, err
		}

		if !res.Partial() {
			m.saveCache(ctx, store.Recording{
				Hash:            hash,
				Name:            name,
				SampleRate:      buf.SampleRate,
				Channels:        buf.NumChannels(),
				DurationSeconds: buf.Duration(),
			}, res.Words, logger)
		}
	}

	if !session.commit(generation, name, hash, buf, res, cached) {
		logger.Info("Discarding superseded upload", slog.Uint64("generation", generation))
		return nil, ErrUploadSuperseded
	}

	return &UploadResult{
		SessionID:       sessionID,
		Name:            name,
		Hash:            hash,
		SampleRate:      buf.SampleRate,
		Channels:        buf.NumChannels(),
		DurationSeconds: buf.Duration(),
		ChunksTotal:     res.ChunksTotal,
		Words:           res.Words,
		Faults:          res.Faults,
		Partial:         res.Partial(),
		Cached:          cached,
	}, nil
}

func (m *Manager) lookupCache(ctx context.Context, hash string, logger *slog.Logger) (*transcript.Result, bool) {
	if m.cache == nil {
		return nil, false
	}

	_, words, err := m.cache.GetTranscript(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("Transcript cache lookup failed", slog.String("error", err.Error()))
		}
		m.metrics.RecordCacheLookup(false)
		return nil, false
	}

	m.metrics.RecordCacheLookup(true)
	logger.Info("Transcript served from cache", slog.Int("words", len(words)))
	return &transcript.Result{Words: words}, true
}

func (m *Manager) saveCache(ctx context.Context, rec store.Recording, words []transcript.Word, logger *slog.Logger) {
	if m.cache == nil {
		return
	}

	if err := m.cache.SaveTranscript(ctx, rec, words); err != nil {
		logger.Warn("Failed to cache transcript", slog.String("error", err.Error()))
	}
}

// transcribe splits buf, sends every chunk to the model at once and stitches
// the answers in chunk order
func (m *Manager) transcribe(ctx context.Context, sessionID string, buf *audio.SampleBuffer, logger *slog.Logger) (*transcript.Result, error) {
	chunks, err := audio.SplitBuffer(buf, m.config.ChunkMaxDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to split recording: %w", err)
	}

	results := make([]transcript.ChunkResult, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk audio.Chunk) {
			defer wg.Done()
			results[i] = m.transcribeChunk(ctx, sessionID, chunk, logger)
		}(i, chunk)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Info("Transcription abandoned", slog.String("reason", err.Error()))
		return nil, fmt.Errorf("transcription abandoned: %w", err)
	}

	res := transcript.Stitch(results)
	m.metrics.RecordTranscriptStitched(len(res.Words), len(res.Faults))

	if res.Partial() {
		logger.Warn("Transcript is partial",
			slog.Int("chunks_total", res.ChunksTotal),
			slog.Int("chunks_failed", len(res.Faults)),
			slog.String("error", res.Err().Error()),
		)
	} else {
		logger.Info("Transcript stitched",
			slog.Int("chunks_total", res.ChunksTotal),
			slog.Int("words", len(res.Words)),
		)
	}

	return res, nil
}

func (m *Manager) transcribeChunk(ctx context.Context, sessionID string, chunk audio.Chunk, logger *slog.Logger) transcript.ChunkResult {
	result := transcript.ChunkResult{
		Index:           chunk.Index,
		OffsetSeconds:   chunk.OffsetSeconds,
		DurationSeconds: chunk.Duration(),
	}

	wav, err := audio.EncodeWAV(chunk.Buffer)
	if err != nil {
		result.Err = fmt.Errorf("failed to encode chunk: %w", err)
		return result
	}
	m.metrics.RecordChunkGenerated(chunk.Duration(), len(wav))

	request := transcription.NewRequest(sessionID, chunk, wav)
	m.metrics.RecordTranscriptionRequest()

	start := time.Now()
	resp, err := m.transcriber.Transcribe(ctx, request)
	elapsed := time.Since(start)

	if err != nil {
		m.metrics.RecordTranscriptionFailure(elapsed.Seconds())
		if ctx.Err() == nil {
			logger.Warn("Chunk transcription failed",
				slog.Int("chunk_index", chunk.Index),
				slog.Float64("offset", chunk.OffsetSeconds),
				slog.String("request_id", request.RequestID),
				slog.String("error", err.Error()),
			)
		}
		result.Err = err
		return result
	}

	m.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
	logger.Debug("Chunk transcribed",
		slog.Int("chunk_index", chunk.Index),
		slog.String("request_id", request.RequestID),
		slog.Duration("elapsed", elapsed),
		slog.Int("bytes", len(resp.Payload)),
	)

	result.Payload = resp.Payload
	return result
}

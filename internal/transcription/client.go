package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/wordclip-service/internal/audio"
)

const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Transcriber sends one chunk to the speech-to-text model
type Transcriber interface {
	Transcribe(ctx context.Context, request *Request) (*Response, error)
	GetStats() ClientStats
	Close() error
}

// Config contains transcription client configuration
type Config struct {
	Backend        string
	Endpoint       string
	APIKey         string
	Model          string
	Language       string
	Timeout        time.Duration
	MaxRetries     int
	MaxConcurrent  int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Request is one chunk submitted for transcription
type Request struct {
	SessionID       string    `json:"session_id"`
	ChunkIndex      int       `json:"chunk_index"`
	OffsetSeconds   float64   `json:"offset_seconds"`
	DurationSeconds float64   `json:"duration_seconds"`
	SampleRate      int       `json:"sample_rate"`
	AudioData       []byte    `json:"-"`
	MimeType        string    `json:"mime_type"`
	Language        string    `json:"language,omitempty"`
	Model           string    `json:"model,omitempty"`
	Prompt          string    `json:"prompt,omitempty"`
	RequestID       string    `json:"request_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewRequest builds the request for an encoded chunk
func NewRequest(sessionID string, chunk audio.Chunk, wav []byte) *Request {
	return &Request{
		SessionID:       sessionID,
		ChunkIndex:      chunk.Index,
		OffsetSeconds:   chunk.OffsetSeconds,
		DurationSeconds: chunk.Duration(),
		SampleRate:      chunk.Buffer.SampleRate,
		AudioData:       wav,
		MimeType:        audio.WAVMimeType,
		RequestID:       uuid.NewString(),
		Timestamp:       time.Now(),
	}
}

// Filename is the name the chunk is uploaded under
func (r *Request) Filename() string {
	return fmt.Sprintf("chunk_%04d.wav", r.ChunkIndex)
}

// Response carries the model's word list for one chunk, untouched. Timestamps
// are relative to the chunk.
type Response struct {
	RequestID  string          `json:"request_id"`
	ChunkIndex int             `json:"chunk_index"`
	Payload    json.RawMessage `json:"payload"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// StatusError is a non-2xx answer from the transcription endpoint
type StatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the request may succeed when repeated
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewTranscriber creates the client for cfg.Backend
func NewTranscriber(cfg Config) (Transcriber, error) {
	switch cfg.Backend {
	case "", BackendHTTP:
		return NewHTTPClient(cfg)
	case BackendOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
	}
}

func applyDefaults(cfg Config) Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}

	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	return cfg
}

// limiter holds what both backends share: the concurrency semaphore, the
// retry loop and the statistics.
type limiter struct {
	config    Config
	semaphore chan struct{}
	stats     clientStats
}

func newLimiter(cfg Config) *limiter {
	return &limiter{
		config:    cfg,
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// run executes attempt under the semaphore, retrying temporary failures
func (l *limiter) run(ctx context.Context, request *Request, attempt func(context.Context, *Request) (json.RawMessage, error)) (*Response, error) {
	select {
	case l.semaphore <- struct{}{}:
		defer func() { <-l.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	l.stats.incrementTotalRequests()

	var lastErr error
	tries := 0

	for i := 0; i <= l.config.MaxRetries; i++ {
		if i > 0 {
			l.stats.incrementTotalRetries()

			select {
			case <-time.After(l.backoff(i)):
			case <-ctx.Done():
				l.stats.incrementFailedRequests()
				return nil, ctx.Err()
			}
		}

		tries++
		payload, err := attempt(ctx, request)
		if err == nil {
			elapsed := time.Since(startTime)
			l.stats.incrementSuccessRequests()
			l.stats.updateAvgResponseTime(elapsed)
			return &Response{
				RequestID:  request.RequestID,
				ChunkIndex: request.ChunkIndex,
				Payload:    payload,
				Elapsed:    elapsed,
			}, nil
		}

		lastErr = err

		if ctx.Err() != nil || !isRetryableError(err) {
			break
		}
	}

	l.stats.incrementFailedRequests()
	return nil, fmt.Errorf("transcription of chunk %d failed after %d attempts: %w", request.ChunkIndex, tries, lastErr)
}

func (l *limiter) backoff(attempt int) time.Duration {
	d := time.Duration(float64(l.config.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if d > l.config.MaxBackoff {
		d = l.config.MaxBackoff
	}
	return d
}

// GetStats returns current client statistics
func (l *limiter) GetStats() ClientStats {
	return l.stats.snapshot(len(l.semaphore))
}

// Close waits for in-flight requests to finish
func (l *limiter) Close() error {
	for i := 0; i < l.config.MaxConcurrent; i++ {
		l.semaphore <- struct{}{}
	}

	return nil
}

// isRetryableError reports whether a failed attempt is worth repeating:
// rate limiting, server errors, timeouts and connection failures.
func isRetryableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

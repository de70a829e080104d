package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:       endpoint,
		APIKey:         "test-key",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		MaxConcurrent:  2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func testRequest(t *testing.T) *Request {
	t.Helper()

	buf, err := audio.NewSampleBuffer(8000, [][]float32{make([]float32, 800)})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	chunk := audio.Chunk{Index: 3, StartSample: 24000, OffsetSeconds: 3, Buffer: buf}
	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		t.Fatalf("Failed to encode chunk: %v", err)
	}

	return NewRequest("session-1", chunk, wav)
}

func TestNewRequest(t *testing.T) {
	req := testRequest(t)

	if req.ChunkIndex != 3 || req.OffsetSeconds != 3 {
		t.Errorf("Expected chunk 3 at 3s, got %d at %f", req.ChunkIndex, req.OffsetSeconds)
	}

	if req.DurationSeconds != 0.1 {
		t.Errorf("Expected duration 0.1s, got %f", req.DurationSeconds)
	}

	if req.MimeType != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", req.MimeType)
	}

	if req.RequestID == "" {
		t.Error("Expected a request id")
	}

	if req.Filename() != "chunk_0003.wav" {
		t.Errorf("Expected chunk_0003.wav, got %s", req.Filename())
	}
}

func TestHTTPClientSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("Expected audio file field: %v", err)
			http.Error(w, "missing audio", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Filename != "chunk_0003.wav" {
			t.Errorf("Expected chunk_0003.wav, got %s", header.Filename)
		}

		if header.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("Expected audio/wav part, got %s", header.Header.Get("Content-Type"))
		}

		data, _ := io.ReadAll(file)
		if err := audio.ValidateWAV(data); err != nil {
			t.Errorf("Uploaded chunk is not valid WAV: %v", err)
		}

		if r.FormValue("chunk_index") != "3" {
			t.Errorf("Expected chunk_index 3, got %q", r.FormValue("chunk_index"))
		}

		if r.FormValue("offset") != "3.000" {
			t.Errorf("Expected offset 3.000, got %q", r.FormValue("offset"))
		}

		if r.FormValue("language") != "en" {
			t.Errorf("Expected language en, got %q", r.FormValue("language"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"word":"hi","startTime":0,"endTime":0.1}]`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Language = "en"
	client, err := NewHTTPClient(cfg)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	resp, err := client.Transcribe(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if resp.ChunkIndex != 3 {
		t.Errorf("Expected chunk 3, got %d", resp.ChunkIndex)
	}

	words, err := transcript.ParseWords(resp.Payload)
	if err != nil {
		t.Fatalf("Payload did not parse: %v", err)
	}

	if len(words) != 1 || words[0].Text != "hi" {
		t.Errorf("Unexpected words %+v", words)
	}
}

func TestHTTPClientRetriesTemporaryFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			http.Error(w, "busy", http.StatusServiceUnavailable)
		case 2:
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if _, err := client.Transcribe(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}

	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 || stats.TotalRetries != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unsupported audio", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewHTTPClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	_, err = client.Transcribe(context.Background(), testRequest(t))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}

	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", statusErr.StatusCode)
	}

	if !strings.Contains(statusErr.Body, "unsupported audio") {
		t.Errorf("Expected body in error, got %q", statusErr.Body)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}

	if stats := client.GetStats(); stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestHTTPClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewHTTPClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if _, err := client.Transcribe(context.Background(), testRequest(t)); err == nil {
		t.Fatal("Expected an error")
	}

	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestHTTPClientHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewHTTPClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Transcribe(ctx, testRequest(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestNewTranscriber(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default backend", Config{Endpoint: "http://localhost:9"}, false},
		{"http backend", Config{Backend: BackendHTTP, Endpoint: "http://localhost:9"}, false},
		{"http without endpoint", Config{Backend: BackendHTTP}, true},
		{"openai backend", Config{Backend: BackendOpenAI, APIKey: "sk-test"}, false},
		{"openai without key", Config{Backend: BackendOpenAI}, true},
		{"unknown backend", Config{Backend: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTranscriber(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && tr == nil {
				t.Error("Expected a transcriber")
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &StatusError{StatusCode: 429}, true},
		{"500", &StatusError{StatusCode: 500}, true},
		{"404", &StatusError{StatusCode: 404}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("bad input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

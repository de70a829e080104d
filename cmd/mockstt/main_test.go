package main

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

func TestMockWordsFitDuration(t *testing.T) {
	s := &mockServer{spacing: 0.6}

	words := s.words(2.0)
	if len(words) != 3 {
		t.Fatalf("Expected 3 words, got %d", len(words))
	}

	for i, w := range words {
		if w.EndTime > 2.0 || w.EndTime <= w.StartTime {
			t.Errorf("Word %d has invalid range %+v", i, w)
		}
	}
}

func TestMockTranscribe(t *testing.T) {
	s := &mockServer{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		spacing:   0.5,
		failEvery: 2,
	}

	buf, err := audio.NewSilentBuffer(100, 1, 300)
	if err != nil {
		t.Fatalf("NewSilentBuffer failed: %v", err)
	}
	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	post := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("audio", "chunk_0000.wav")
		part.Write(wav)
		mw.WriteField("chunk_index", "0")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/transcribe", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		s.handleTranscribe(rec, req)
		return rec
	}

	rec := post()
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	words, err := transcript.ParseWords(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Response is not a valid transcript: %v", err)
	}
	if len(words) != 6 {
		t.Errorf("Expected 6 words for 3 seconds, got %d", len(words))
	}

	if rec := post(); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected simulated failure on second request, got %d", rec.Code)
	}
}

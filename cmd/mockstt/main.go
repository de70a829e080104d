// Command mockstt is a local stand-in for the transcription endpoint. It
// answers every uploaded chunk with evenly spaced placeholder words covering
// the chunk's duration, which is enough to exercise stitching and clipping
// without a real model.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/transcript"
)

type mockServer struct {
	logger    *slog.Logger
	delay     time.Duration
	spacing   float64
	failEvery int64
	requests  atomic.Int64
}

// words places one word every spacing seconds, each lasting 2/3 of the slot
func (s *mockServer) words(duration float64) []transcript.Word {
	words := make([]transcript.Word, 0, int(duration/s.spacing)+1)
	for i := 0; ; i++ {
		start := float64(i) * s.spacing
		end := start + s.spacing*2/3
		if end > duration {
			break
		}
		words = append(words, transcript.Word{
			Text:      fmt.Sprintf("word%d", i),
			StartTime: start,
			EndTime:   end,
		})
	}
	return words
}

func (s *mockServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	n := s.requests.Add(1)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	info, err := audio.GetWAVInfo(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger := s.logger.With(
		slog.String("request_id", r.FormValue("request_id")),
		slog.String("session_id", r.FormValue("session_id")),
		slog.String("chunk_index", r.FormValue("chunk_index")),
	)

	logger.Info("Transcription request received",
		slog.String("filename", header.Filename),
		slog.Int("audio_size", len(data)),
		slog.Float64("duration", info.Duration),
		slog.String("offset", r.FormValue("offset")),
		slog.String("language", r.FormValue("language")),
	)

	time.Sleep(s.delay)

	if s.failEvery > 0 && n%s.failEvery == 0 {
		logger.Warn("Simulating upstream failure")
		http.Error(w, "simulated failure", http.StatusServiceUnavailable)
		return
	}

	words := s.words(info.Duration)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"words": words})

	logger.Info("Transcription response sent", slog.Int("words", len(words)))
}

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	delay := flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per chunk")
	spacing := flag.Float64("spacing", 0.6, "Seconds between word starts")
	failEvery := flag.Int64("fail-every", 0, "Answer every Nth request with 503 (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *spacing <= 0 {
		logger.Error("spacing must be positive", slog.Float64("spacing", *spacing))
		os.Exit(1)
	}

	s := &mockServer{
		logger:    logger,
		delay:     *delay,
		spacing:   *spacing,
		failEvery: *failEvery,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)

	logger.Info("Mock transcription server starting",
		slog.String("address", *addr),
		slog.String("endpoint", fmt.Sprintf("http://localhost%s/transcribe", *addr)),
	)

	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

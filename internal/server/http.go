package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/wordclip-service/internal/config"
	"github.com/skypro1111/wordclip-service/internal/metrics"
	"github.com/skypro1111/wordclip-service/internal/session"
)

const (
	serviceName    = "wordclip-service"
	serviceVersion = "1.0.0"
)

// TranscriptStore is the transcript cache as seen by the API
type TranscriptStore interface {
	Count(ctx context.Context) (int, error)
	DeleteTranscript(ctx context.Context, hash string) error
}

// HTTPServer provides the HTTP API
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	sessionMgr *session.Manager
	cache      TranscriptStore
	metrics    *metrics.Metrics
	mdns       *Advertiser

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server. cache may be nil when the
// transcript cache is disabled.
func NewHTTPServer(logger *slog.Logger, appConfig *config.Config, sessionMgr *session.Manager,
	cache TranscriptStore, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		sessionMgr: sessionMgr,
		cache:      cache,
		metrics:    m,
		startTime:  time.Now(),
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.HTTP.Address, appConfig.HTTP.Port),
		Handler:      h.Handler(),
		ReadTimeout:  appConfig.HTTP.GetReadTimeout(),
		WriteTimeout: appConfig.HTTP.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the API routes
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	h.setupRoutes(mux)
	return mux
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Sessions
	mux.HandleFunc("POST /sessions", h.withMetrics("/sessions", h.handleCreateSession))
	mux.HandleFunc("GET /sessions", h.withMetrics("/sessions", h.handleListSessions))
	mux.HandleFunc("GET /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleSessionDetail))
	mux.HandleFunc("DELETE /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleDeleteSession))

	// Recording and transcript
	mux.HandleFunc("POST /sessions/{id}/recording", h.withMetrics("/sessions/{id}/recording", h.handleUpload))
	mux.HandleFunc("GET /sessions/{id}/recording", h.withMetrics("/sessions/{id}/recording", h.handleRecording))
	mux.HandleFunc("GET /sessions/{id}/transcript", h.withMetrics("/sessions/{id}/transcript", h.handleTranscript))

	// Phrase editing
	mux.HandleFunc("GET /sessions/{id}/phrase", h.withMetrics("/sessions/{id}/phrase", h.handleGetPhrase))
	mux.HandleFunc("POST /sessions/{id}/phrase", h.withMetrics("/sessions/{id}/phrase", h.handleAppendPhrase))
	mux.HandleFunc("DELETE /sessions/{id}/phrase", h.withMetrics("/sessions/{id}/phrase", h.handleClearPhrase))
	mux.HandleFunc("DELETE /sessions/{id}/phrase/{index}", h.withMetrics("/sessions/{id}/phrase/{index}", h.handleRemovePhrase))

	// Clip rendering
	mux.HandleFunc("GET /sessions/{id}/clip", h.withMetrics("/sessions/{id}/clip", h.handleClip))
	mux.HandleFunc("POST /sessions/{id}/clip", h.withMetrics("/sessions/{id}/clip", h.handleClip))

	// Transcript cache
	mux.HandleFunc("DELETE /transcripts/{hash}", h.withMetrics("/transcripts/{hash}", h.handleDeleteTranscript))

	// Monitoring
	mux.HandleFunc("GET /health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("GET /config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("GET /stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("GET /stats/transcription", h.withMetrics("/stats/transcription", h.handleTranscriptionStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("GET /{$}", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server and, if configured, advertises it over mDNS
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	if h.config.HTTP.MDNS.Enabled {
		adv, err := Advertise(h.config.HTTP.MDNS, h.config.HTTP.Port, h.logger)
		if err != nil {
			// The API is still reachable by address
			h.logger.Warn("mDNS advertisement failed", slog.String("error", err.Error()))
		} else {
			h.mdns = adv
		}
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	if h.mdns != nil {
		h.mdns.Shutdown()
	}

	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	transcriptionStats := h.sessionMgr.GetTranscriptionStats()

	storage := map[string]interface{}{"status": "disabled"}
	if h.cache != nil {
		count, err := h.cache.Count(r.Context())
		if err != nil {
			storage = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			storage = map[string]interface{}{"status": "running", "cached_recordings": count}
		}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"session_manager": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.sessionMgr.GetActiveSessionCount(),
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"backend":         h.config.Transcription.Backend,
				"total_requests":  transcriptionStats.TotalRequests,
				"success_rate":    transcriptionStats.SuccessRate,
				"active_requests": transcriptionStats.ActiveRequests,
			},
			"storage": storage,
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Redacted())
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionMgr.GetAllSessions()

	var words, phraseWords, partial, uploading int
	for _, s := range sessions {
		info := s.Info()
		words += info.WordCount
		phraseWords += info.PhraseLength
		if info.Partial {
			partial++
		}
		if info.Uploading {
			uploading++
		}
	}

	stats := map[string]interface{}{
		"uptime":        time.Since(h.startTime).String(),
		"timestamp":     time.Now().UTC(),
		"transcription": h.sessionMgr.GetTranscriptionStats(),
		"sessions": map[string]interface{}{
			"active_count":        len(sessions),
			"uploading":           uploading,
			"partial_transcripts": partial,
			"transcript_words":    words,
			"phrase_words":        phraseWords,
		},
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleTranscriptionStats implements the /stats/transcription endpoint
func (h *HTTPServer) handleTranscriptionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionMgr.GetTranscriptionStats())
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	apiDoc := map[string]interface{}{
		"service": "Word Clip Service",
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":                                "API documentation",
			"POST /sessions":                       "Create an editing session",
			"GET /sessions":                        "List sessions",
			"GET /sessions/{id}":                   "Get session information",
			"DELETE /sessions/{id}":                "Delete a session",
			"POST /sessions/{id}/recording":        "Upload a 16-bit PCM WAV recording and transcribe it",
			"GET /sessions/{id}/recording":         "Download the current recording as audio/wav",
			"DELETE /transcripts/{hash}":           "Drop a cached transcript by recording hash",
			"GET /sessions/{id}/transcript":        "Get the word-level transcript",
			"GET /sessions/{id}/phrase":            "Get the selected words",
			"POST /sessions/{id}/phrase":           "Append a transcript word by index, or an explicit word",
			"DELETE /sessions/{id}/phrase":         "Clear the phrase",
			"DELETE /sessions/{id}/phrase/{index}": "Remove one phrase entry",
			"GET|POST /sessions/{id}/clip":         "Render the phrase as audio/wav",
			"GET /health":                          "Service health check",
			"GET /config":                          "Get service configuration",
			"GET /stats":                           "Get service statistics",
			"GET /stats/transcription":             "Get transcription statistics",
			"GET /metrics":                         "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}

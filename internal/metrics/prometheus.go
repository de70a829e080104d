package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the word clip service
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsRemoved prometheus.Counter
	SessionLifetime prometheus.Histogram

	// Upload metrics
	Uploads           prometheus.Counter
	UploadErrors      prometheus.Counter
	UploadSize        prometheus.Histogram
	RecordingDuration prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter

	// Audio chunking metrics
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Stitching metrics
	TranscriptsStitched prometheus.Counter
	PartialTranscripts  prometheus.Counter
	ChunkFaults         prometheus.Counter
	WordsTranscribed    prometheus.Counter

	// Clip metrics
	ClipsRendered prometheus.Counter
	ClipErrors    prometheus.Counter
	ClipDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Session metrics
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wordclip_active_sessions",
			Help: "Current number of editing sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_sessions_removed_total",
			Help: "Total number of sessions removed or expired",
		}),
		SessionLifetime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_session_lifetime_seconds",
			Help:    "Lifetime of sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}),

		// Upload metrics
		Uploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_uploads_total",
			Help: "Total number of recordings uploaded",
		}),
		UploadErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_upload_errors_total",
			Help: "Total number of uploads rejected or failed",
		}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_upload_size_bytes",
			Help:    "Size of uploaded recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB to ~32MB
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_recording_duration_seconds",
			Help:    "Duration of uploaded recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcript_cache_hits_total",
			Help: "Uploads answered from the transcript cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcript_cache_misses_total",
			Help: "Uploads that had to be transcribed",
		}),

		// Audio chunking metrics
		ChunksGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_audio_chunks_generated_total",
			Help: "Total number of audio chunks generated",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_chunk_duration_seconds",
			Help:    "Duration of generated audio chunks",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_chunk_size_bytes",
			Help:    "Size of encoded audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Transcription metrics
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcription_requests_total",
			Help: "Total number of chunks sent for transcription",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1.5 minutes
		}),

		// Stitching metrics
		TranscriptsStitched: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_transcripts_stitched_total",
			Help: "Total number of transcripts assembled from chunks",
		}),
		PartialTranscripts: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_partial_transcripts_total",
			Help: "Transcripts missing at least one chunk",
		}),
		ChunkFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_chunk_faults_total",
			Help: "Chunks that contributed no words to their transcript",
		}),
		WordsTranscribed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_words_transcribed_total",
			Help: "Total number of words in stitched transcripts",
		}),

		// Clip metrics
		ClipsRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_clips_rendered_total",
			Help: "Total number of clips rendered",
		}),
		ClipErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "wordclip_clip_errors_total",
			Help: "Clip requests that produced no audio",
		}),
		ClipDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordclip_clip_duration_seconds",
			Help:    "Duration of rendered clips",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wordclip_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordclip_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wordclip_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// SetActiveSessions sets the current number of sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionRemoved increments the sessions removed counter and records lifetime
func (m *Metrics) RecordSessionRemoved(lifetimeSeconds float64) {
	m.SessionsRemoved.Inc()
	m.SessionLifetime.Observe(lifetimeSeconds)
}

// RecordUpload records an accepted recording
func (m *Metrics) RecordUpload(sizeBytes int, durationSeconds float64) {
	m.Uploads.Inc()
	m.UploadSize.Observe(float64(sizeBytes))
	m.RecordingDuration.Observe(durationSeconds)
}

// RecordUploadError increments the upload errors counter
func (m *Metrics) RecordUploadError() {
	m.UploadErrors.Inc()
}

// RecordCacheLookup records a transcript cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordChunkGenerated records an encoded audio chunk
func (m *Metrics) RecordChunkGenerated(durationSeconds float64, sizeBytes int) {
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptStitched records an assembled transcript
func (m *Metrics) RecordTranscriptStitched(words, faults int) {
	m.TranscriptsStitched.Inc()
	m.WordsTranscribed.Add(float64(words))
	if faults > 0 {
		m.PartialTranscripts.Inc()
		m.ChunkFaults.Add(float64(faults))
	}
}

// RecordClipRendered records a rendered clip
func (m *Metrics) RecordClipRendered(durationSeconds float64) {
	m.ClipsRendered.Inc()
	m.ClipDuration.Observe(durationSeconds)
}

// RecordClipError increments the clip errors counter
func (m *Metrics) RecordClipError() {
	m.ClipErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

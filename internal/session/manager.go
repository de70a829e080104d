package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/wordclip-service/internal/audio"
	"github.com/skypro1111/wordclip-service/internal/metrics"
	"github.com/skypro1111/wordclip-service/internal/phrase"
	"github.com/skypro1111/wordclip-service/internal/store"
	"github.com/skypro1111/wordclip-service/internal/transcript"
	"github.com/skypro1111/wordclip-service/internal/transcription"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrNoRecording      = errors.New("no recording uploaded")
	ErrUploadSuperseded = errors.New("upload superseded by a newer upload")
)

// TranscriptCache keeps complete transcripts keyed by recording hash
type TranscriptCache interface {
	GetTranscript(ctx context.Context, hash string) (store.Recording, []transcript.Word, error)
	SaveTranscript(ctx context.Context, rec store.Recording, words []transcript.Word) error
}

// Config contains configuration for the session manager
type Config struct {
	ChunkMaxDuration float64       // seconds
	MinClipDuration  float64       // seconds, 0 disables padding
	Timeout          time.Duration // idle time before a session is removed
	CleanupInterval  time.Duration
	MaxSessions      int // 0 means unlimited
}

// Manager manages all editing sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	config   Config

	transcriber transcription.Transcriber
	cache       TranscriptCache
	metrics     *metrics.Metrics

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager. cache may be nil to disable the
// transcript cache.
func NewManager(logger *slog.Logger, config Config, transcriber transcription.Transcriber, cache TranscriptCache, m *metrics.Metrics) (*Manager, error) {
	if math.IsNaN(config.ChunkMaxDuration) || math.IsInf(config.ChunkMaxDuration, 0) || config.ChunkMaxDuration <= 0 {
		return nil, fmt.Errorf("%w: chunk max duration %v", audio.ErrInvalidConfiguration, config.ChunkMaxDuration)
	}

	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}

	if m == nil {
		return nil, fmt.Errorf("metrics cannot be nil")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Minute
	}

	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions:    make(map[string]*Session),
		logger:      logger,
		config:      config,
		transcriber: transcriber,
		cache:       cache,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
		cleanup:     make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession creates an empty session
func (m *Manager) CreateSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.config.MaxSessions)
	}

	now := time.Now()
	session := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		composer:     phrase.NewComposer(),
		manager:      m,
	}
	m.sessions[session.ID] = session

	m.metrics.RecordSessionCreated()
	m.metrics.SetActiveSessions(len(m.sessions))

	m.logger.Info("Created new session",
		slog.String("session_id", session.ID),
		slog.Int("active_sessions", len(m.sessions)),
	)

	return session, nil
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// lookup is GetSession with an error for unknown ids
func (m *Manager) lookup(id string) (*Session, error) {
	session, exists := m.GetSession(id)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// GetActiveSessionCount returns the number of sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all sessions (for monitoring)
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// RemoveSession removes a session. An upload still running for it finishes
// but its result is dropped.
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return false
	}

	delete(m.sessions, id)
	session.invalidate()

	lifetime := time.Since(session.CreatedAt)
	m.metrics.RecordSessionRemoved(lifetime.Seconds())
	m.metrics.SetActiveSessions(len(m.sessions))

	m.logger.Info("Session removed",
		slog.String("session_id", id),
		slog.Duration("lifetime", lifetime),
	)

	return true
}

// Stop gracefully stops the session manager
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	// Cancel context to stop cleanup routine and in-flight uploads
	m.cancel()
	<-m.cleanup

	if err := m.transcriber.Close(); err != nil {
		m.logger.Warn("Error closing transcription client", slog.String("error", err.Error()))
	}

	activeCount := m.GetActiveSessionCount()
	stats := m.transcriber.GetStats()

	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", activeCount),
		slog.Uint64("total_transcription_requests", stats.TotalRequests),
		slog.Uint64("successful_transcriptions", stats.SuccessRequests),
		slog.Float64("transcription_success_rate", stats.SuccessRate),
	)
}

// GetTranscriptionStats returns current transcription client statistics
func (m *Manager) GetTranscriptionStats() transcription.ClientStats {
	return m.transcriber.GetStats()
}

// startCleanupRoutine runs in a separate goroutine to clean up expired sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.config.Timeout),
		slog.Duration("check_interval", m.config.CleanupInterval),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions removes sessions that have been inactive for too long.
// Sessions with an upload in flight are kept.
func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expiredSessions := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		session.mu.RLock()
		idle := now.Sub(session.LastActivity)
		busy := session.uploadsInFlight > 0
		session.mu.RUnlock()

		if idle > m.config.Timeout && !busy {
			expiredSessions = append(expiredSessions, id)
		}
	}
	m.mu.RUnlock()

	if len(expiredSessions) > 0 {
		m.logger.Info("Cleaning up expired sessions",
			slog.Int("expired_count", len(expiredSessions)),
		)

		for _, id := range expiredSessions {
			m.RemoveSession(id)
		}
	}
}

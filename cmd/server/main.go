package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/wordclip-service/internal/config"
	"github.com/skypro1111/wordclip-service/internal/metrics"
	"github.com/skypro1111/wordclip-service/internal/server"
	"github.com/skypro1111/wordclip-service/internal/session"
	"github.com/skypro1111/wordclip-service/internal/store"
	"github.com/skypro1111/wordclip-service/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "wordclip-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := initLogger(cfg.Logging)
	defer closeLog()

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.Int64("max_upload_size", cfg.HTTP.MaxUploadSize),
		slog.Bool("mdns_enabled", cfg.HTTP.MDNS.Enabled),
		slog.Duration("chunk_max_duration", cfg.Audio.GetChunkMaxDuration()),
		slog.Float64("min_clip_duration", cfg.Audio.MinClipDuration),
		slog.String("transcription_backend", cfg.Transcription.Backend),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.Bool("storage_enabled", cfg.Storage.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)
	logger.Info("Prometheus metrics initialized")

	// Initialize transcription backend
	transcriber, err := transcription.NewTranscriber(transcription.Config{
		Backend:       cfg.Transcription.Backend,
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		Language:      cfg.Transcription.Language,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Open transcript cache (if enabled)
	var cache *store.SQLiteStore
	var sessionCache session.TranscriptCache
	var cacheStore server.TranscriptStore
	if cfg.Storage.Enabled {
		cache, err = store.Open(cfg.Storage.Path)
		if err != nil {
			logger.Error("Failed to open transcript cache", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cache.Close()

		sessionCache = cache
		cacheStore = cache
		logger.Info("Transcript cache opened", slog.String("path", cfg.Storage.Path))
	}

	// Initialize session manager
	sessionMgr, err := session.NewManager(logger, session.Config{
		ChunkMaxDuration: cfg.Audio.ChunkMaxDuration,
		MinClipDuration:  cfg.Audio.MinClipDuration,
		Timeout:          cfg.Session.GetTimeoutDuration(),
		CleanupInterval:  cfg.Session.GetCleanupInterval(),
		MaxSessions:      cfg.Session.MaxSessions,
	}, transcriber, sessionCache, appMetrics)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Session.GetTimeoutDuration()),
		slog.Int("max_sessions", cfg.Session.MaxSessions),
	)

	// Initialize and start HTTP API server
	httpServer := server.NewHTTPServer(logger, cfg, sessionMgr, cacheStore, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Service started successfully, waiting for signals...")

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop session manager (cancel uploads, cleanup sessions, close transcriber)
	sessionMgr.Stop()

	logger.Info("Service stopped")
}

// initLogger builds the structured logger from the logging section. The
// returned func closes the log file, if one was opened.
func initLogger(cfg config.LoggingConfig) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	output, closeOutput := openLogOutput(cfg.Output)

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts)), closeOutput
	}
	return slog.New(slog.NewTextHandler(output, opts)), closeOutput
}

// openLogOutput resolves stdout, stderr or a file path opened for append
func openLogOutput(target string) (io.Writer, func()) {
	switch target {
	case "", "stdout":
		return os.Stdout, func() {}
	case "stderr":
		return os.Stderr, func() {}
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", target, err)
		return os.Stdout, func() {}
	}
	return file, func() { file.Close() }
}

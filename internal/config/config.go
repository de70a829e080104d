package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file. Secrets are expected here
// rather than in the YAML.
const (
	EnvTranscriptionAPIKey   = "WORDCLIP_TRANSCRIPTION_API_KEY"
	EnvOpenAIAPIKey          = "OPENAI_API_KEY"
	EnvTranscriptionEndpoint = "WORDCLIP_TRANSCRIPTION_ENDPOINT"
	EnvStoragePath           = "WORDCLIP_STORAGE_PATH"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Storage       StorageConfig       `yaml:"storage"`
	Session       SessionConfig       `yaml:"session"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port          int        `yaml:"port"`
	Address       string     `yaml:"address"`
	MaxUploadSize int64      `yaml:"max_upload_size"` // bytes
	ReadTimeout   int        `yaml:"read_timeout"`    // seconds
	WriteTimeout  int        `yaml:"write_timeout"`   // seconds
	MDNS          MDNSConfig `yaml:"mdns"`
}

// MDNSConfig controls advertising the API on the local network
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// AudioConfig contains audio processing parameters
type AudioConfig struct {
	ChunkMaxDuration float64 `yaml:"chunk_max_duration"` // seconds
	MinClipDuration  float64 `yaml:"min_clip_duration"`  // seconds, 0 disables padding
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Backend            string  `yaml:"backend"` // "http" or "openai"
	Endpoint           string  `yaml:"endpoint"`
	APIKey             string  `yaml:"api_key"`
	Model              string  `yaml:"model"`
	Language           string  `yaml:"language"`
	Timeout            int     `yaml:"timeout"` // seconds
	MaxRetries         int     `yaml:"max_retries"`
	MaxConcurrent      int     `yaml:"max_concurrent"`
	MaxRequestDuration float64 `yaml:"max_request_duration"` // seconds of audio the model accepts per request
}

// StorageConfig contains transcript cache configuration
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SessionConfig contains session lifecycle configuration
type SessionConfig struct {
	Timeout         int `yaml:"timeout"`          // seconds
	CleanupInterval int `yaml:"cleanup_interval"` // seconds
	MaxSessions     int `yaml:"max_sessions"`     // 0 means unlimited
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. A .env file next to it is
// loaded into the environment first; variables already set are kept.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

// ApplyEnv overrides file values with the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvTranscriptionEndpoint); v != "" {
		c.Transcription.Endpoint = v
	}

	if v := os.Getenv(EnvTranscriptionAPIKey); v != "" {
		c.Transcription.APIKey = v
	} else if v := os.Getenv(EnvOpenAIAPIKey); v != "" && c.Transcription.Backend == "openai" {
		c.Transcription.APIKey = v
	}

	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Audio.Validate(c.Transcription.MaxRequestDuration); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty")
	}

	if h.MaxUploadSize < 1024 {
		return fmt.Errorf("max_upload_size must be at least 1024 bytes, got %d", h.MaxUploadSize)
	}

	if h.ReadTimeout < 0 || h.WriteTimeout < 0 {
		return fmt.Errorf("read_timeout and write_timeout cannot be negative")
	}

	return nil
}

// Validate validates audio configuration against the model's per-request limit
func (a *AudioConfig) Validate(maxRequestDuration float64) error {
	if math.IsNaN(a.ChunkMaxDuration) || a.ChunkMaxDuration <= 0 {
		return fmt.Errorf("chunk_max_duration must be positive, got %f", a.ChunkMaxDuration)
	}

	if a.ChunkMaxDuration > maxRequestDuration {
		return fmt.Errorf("chunk_max_duration (%f) must not exceed transcription max_request_duration (%f)",
			a.ChunkMaxDuration, maxRequestDuration)
	}

	if math.IsNaN(a.MinClipDuration) || a.MinClipDuration < 0 {
		return fmt.Errorf("min_clip_duration cannot be negative, got %f", a.MinClipDuration)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	switch t.Backend {
	case "http":
		if t.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for the http backend")
		}
	case "openai":
		if t.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty for the openai backend")
		}
	default:
		return fmt.Errorf("backend must be 'http' or 'openai', got '%s'", t.Backend)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	if math.IsNaN(t.MaxRequestDuration) || t.MaxRequestDuration <= 0 {
		return fmt.Errorf("max_request_duration must be positive, got %f", t.MaxRequestDuration)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Enabled && s.Path == "" {
		return fmt.Errorf("path cannot be empty when storage is enabled")
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", s.CleanupInterval)
	}

	if s.MaxSessions < 0 {
		return fmt.Errorf("max_sessions cannot be negative, got %d", s.MaxSessions)
	}

	return nil
}

// Validate validates logging configuration. Any output other than stdout or
// stderr is treated as a file path.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetChunkMaxDuration returns the maximum chunk duration as a time.Duration
func (a *AudioConfig) GetChunkMaxDuration() time.Duration {
	return time.Duration(a.ChunkMaxDuration * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the session idle timeout as a time.Duration
func (s *SessionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetCleanupInterval returns the cleanup interval as a time.Duration
func (s *SessionConfig) GetCleanupInterval() time.Duration {
	return time.Duration(s.CleanupInterval) * time.Second
}

// Redacted returns a copy safe to expose over the API
func (c Config) Redacted() Config {
	if c.Transcription.APIKey != "" {
		c.Transcription.APIKey = "***"
	}
	return c
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:          8080,
			Address:       "0.0.0.0",
			MaxUploadSize: 100 << 20,
			ReadTimeout:   60,
			WriteTimeout:  300,
		},
		Audio: AudioConfig{
			ChunkMaxDuration: 9,
			MinClipDuration:  0,
		},
		Transcription: TranscriptionConfig{
			Backend:            "http",
			Endpoint:           "https://api.example.com/transcribe",
			APIKey:             "test-key",
			Timeout:            30,
			MaxRetries:         3,
			MaxConcurrent:      4,
			MaxRequestDuration: 10,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "./data/transcripts.db",
		},
		Session: SessionConfig{
			Timeout:         1800,
			CleanupInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid configuration",
			modify: func(c *Config) {},
		},
		{
			name:   "chunk equal to model limit",
			modify: func(c *Config) { c.Audio.ChunkMaxDuration = 10 },
		},
		{
			name:     "chunk longer than model limit",
			modify:   func(c *Config) { c.Audio.ChunkMaxDuration = 12 },
			errorMsg: "must not exceed transcription max_request_duration",
		},
		{
			name:     "zero chunk duration",
			modify:   func(c *Config) { c.Audio.ChunkMaxDuration = 0 },
			errorMsg: "chunk_max_duration must be positive",
		},
		{
			name:     "negative min clip duration",
			modify:   func(c *Config) { c.Audio.MinClipDuration = -1 },
			errorMsg: "min_clip_duration cannot be negative",
		},
		{
			name:     "invalid http port",
			modify:   func(c *Config) { c.HTTP.Port = 70000 },
			errorMsg: "http port must be between 1 and 65535",
		},
		{
			name:     "tiny upload limit",
			modify:   func(c *Config) { c.HTTP.MaxUploadSize = 10 },
			errorMsg: "max_upload_size must be at least 1024 bytes",
		},
		{
			name:     "unknown backend",
			modify:   func(c *Config) { c.Transcription.Backend = "grpc" },
			errorMsg: "backend must be 'http' or 'openai'",
		},
		{
			name:     "http backend without endpoint",
			modify:   func(c *Config) { c.Transcription.Endpoint = "" },
			errorMsg: "endpoint cannot be empty",
		},
		{
			name: "openai backend without key",
			modify: func(c *Config) {
				c.Transcription.Backend = "openai"
				c.Transcription.APIKey = ""
			},
			errorMsg: "api_key cannot be empty",
		},
		{
			name:     "zero concurrency",
			modify:   func(c *Config) { c.Transcription.MaxConcurrent = 0 },
			errorMsg: "max_concurrent must be at least 1",
		},
		{
			name:     "storage without path",
			modify:   func(c *Config) { c.Storage.Path = "" },
			errorMsg: "path cannot be empty when storage is enabled",
		},
		{
			name:     "zero session timeout",
			modify:   func(c *Config) { c.Session.Timeout = 0 },
			errorMsg: "timeout must be at least 1 second",
		},
		{
			name:     "invalid log level",
			modify:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)

			err := config.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("Expected error containing '%s' but got none", tt.errorMsg)
			} else if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

const validYAML = `
http:
  port: 8080
  address: "0.0.0.0"
  max_upload_size: 104857600
  read_timeout: 60
  write_timeout: 300
  mdns:
    enabled: false
audio:
  chunk_max_duration: 9.0
  min_clip_duration: 0.5
transcription:
  backend: "http"
  endpoint: "https://api.example.com/transcribe"
  timeout: 30
  max_retries: 3
  max_concurrent: 4
  max_request_duration: 10.0
storage:
  enabled: false
session:
  timeout: 1800
  cleanup_interval: 30
logging:
  level: "info"
  format: "json"
  output: "stdout"
`

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name       string
		configYAML string
		errorMsg   string
	}{
		{
			name:       "valid config file",
			configYAML: validYAML,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
http:
  port: not_a_number
`,
			errorMsg: "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
http:
  port: 8080
`,
			errorMsg: "http address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.errorMsg != "" {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}

			if config.Audio.ChunkMaxDuration != 9 || config.Audio.MinClipDuration != 0.5 {
				t.Errorf("Unexpected audio config %+v", config.Audio)
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvTranscriptionEndpoint, "http://stt.internal:9000/words")
	t.Setenv(EnvTranscriptionAPIKey, "from-env")
	t.Setenv(EnvStoragePath, "/var/lib/wordclip/cache.db")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Transcription.Endpoint != "http://stt.internal:9000/words" {
		t.Errorf("Expected endpoint from environment, got %s", config.Transcription.Endpoint)
	}

	if config.Transcription.APIKey != "from-env" {
		t.Errorf("Expected api key from environment, got %s", config.Transcription.APIKey)
	}

	if config.Storage.Path != "/var/lib/wordclip/cache.db" {
		t.Errorf("Expected storage path from environment, got %s", config.Storage.Path)
	}
}

func TestConfigLoadsDotEnv(t *testing.T) {
	os.Unsetenv(EnvTranscriptionAPIKey)
	t.Cleanup(func() { os.Unsetenv(EnvTranscriptionAPIKey) })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvTranscriptionAPIKey+"=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Transcription.APIKey != "from-dotenv" {
		t.Errorf("Expected api key from .env, got %q", config.Transcription.APIKey)
	}
}

func TestRedacted(t *testing.T) {
	config := validConfig()
	redacted := config.Redacted()

	if redacted.Transcription.APIKey != "***" {
		t.Errorf("Expected redacted key, got %s", redacted.Transcription.APIKey)
	}

	if config.Transcription.APIKey != "test-key" {
		t.Error("Redacted modified the original")
	}
}

func TestDurationHelpers(t *testing.T) {
	audio := AudioConfig{ChunkMaxDuration: 9.5}
	if audio.GetChunkMaxDuration() != 9500*time.Millisecond {
		t.Errorf("Expected 9.5 seconds, got %v", audio.GetChunkMaxDuration())
	}

	transcription := TranscriptionConfig{Timeout: 30}
	if transcription.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", transcription.GetTimeoutDuration())
	}

	session := SessionConfig{Timeout: 1800, CleanupInterval: 30}
	if session.GetTimeoutDuration() != 30*time.Minute {
		t.Errorf("Expected 30 minutes, got %v", session.GetTimeoutDuration())
	}
	if session.GetCleanupInterval() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", session.GetCleanupInterval())
	}

	http := HTTPConfig{ReadTimeout: 60, WriteTimeout: 300}
	if http.GetReadTimeout() != time.Minute || http.GetWriteTimeout() != 5*time.Minute {
		t.Errorf("Unexpected HTTP timeouts %v / %v", http.GetReadTimeout(), http.GetWriteTimeout())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{"valid json to stdout", LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, true},
		{"valid text to stderr", LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, true},
		{"file output", LoggingConfig{Level: "warn", Format: "json", Output: "/var/log/wordclip.log"}, true},
		{"invalid log level", LoggingConfig{Level: "trace", Format: "json", Output: "stdout"}, false},
		{"invalid format", LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}

package common

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_MODE", "GENAI_BASE_URL", "GENAI_API_KEY", "API_KEY",
		"GENAI_GEN_MODEL_NAME", "GENAI_EDIT_MODEL_NAME", "GENAI_IMAGE_FORMAT",
		"GENAI_TIMEOUT_SECONDS", "UPLOAD_MAX_BYTES", "OSS_BUCKET",
		"SESSION_IDLE_TIMEOUT", "COOKIE_SECURE", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GENAI_API_KEY", "test-key")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() error = %v", err)
	}
	if cfg.AppMode != ModeWeb {
		t.Fatalf("AppMode = %q, want %q", cfg.AppMode, ModeWeb)
	}
	if cfg.GenAIGenModelName != "imagen-4.0-generate-001" {
		t.Fatalf("GenAIGenModelName = %q", cfg.GenAIGenModelName)
	}
	if cfg.GenAIEditModelName != "gemini-2.5-flash-image" {
		t.Fatalf("GenAIEditModelName = %q", cfg.GenAIEditModelName)
	}
	if cfg.UploadMaxBytes != 4*1024*1024 {
		t.Fatalf("UploadMaxBytes = %d, want 4 MiB", cfg.UploadMaxBytes)
	}
	if cfg.GenAITimeout() != 0 {
		t.Fatalf("GenAITimeout() = %v, want 0", cfg.GenAITimeout())
	}
	if cfg.SessionIdleTimeout != time.Hour {
		t.Fatalf("SessionIdleTimeout = %v, want 1h", cfg.SessionIdleTimeout)
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("ArchiveEnabled() = true, want false")
	}
	if got := cfg.GetServerAddr(); got != "0.0.0.0:8080" {
		t.Fatalf("GetServerAddr() = %q", got)
	}
}

func TestConfigFromEnvLegacyAPIKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("API_KEY", "legacy-key")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() error = %v", err)
	}
	if cfg.GenAIAPIKey != "legacy-key" {
		t.Fatalf("GenAIAPIKey = %q, want legacy-key", cfg.GenAIAPIKey)
	}
}

func TestConfigFromEnvMCPLogsToStderr(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GENAI_API_KEY", "test-key")
	t.Setenv("APP_MODE", "MCP")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() error = %v", err)
	}
	if cfg.AppMode != ModeMCP || cfg.LogOutput != "stderr" {
		t.Fatalf("AppMode = %q LogOutput = %q, want mcp/stderr", cfg.AppMode, cfg.LogOutput)
	}
}

func TestConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing credential",
			env:     map[string]string{},
			wantErr: "GENAI_API_KEY is required",
		},
		{
			name:    "unknown mode",
			env:     map[string]string{"GENAI_API_KEY": "k", "APP_MODE": "grpc"},
			wantErr: "unsupported APP_MODE",
		},
		{
			name:    "url format without bucket",
			env:     map[string]string{"GENAI_API_KEY": "k", "GENAI_IMAGE_FORMAT": "url"},
			wantErr: "OSS_BUCKET is required",
		},
		{
			name:    "unknown image format",
			env:     map[string]string{"GENAI_API_KEY": "k", "GENAI_IMAGE_FORMAT": "webp"},
			wantErr: "unsupported GENAI_IMAGE_FORMAT",
		},
		{
			name:    "non-positive upload limit",
			env:     map[string]string{"GENAI_API_KEY": "k", "UPLOAD_MAX_BYTES": "-1"},
			wantErr: "UPLOAD_MAX_BYTES must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := configFromEnv()
			if err == nil {
				t.Fatalf("configFromEnv() error = nil, want %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("configFromEnv() error = %q, want %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("getEnvDuration() = %v, want 90s", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("getEnvDuration() fallback = %v, want 1s", got)
	}
}

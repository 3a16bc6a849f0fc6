package logging

import (
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer SetLogger(nil)

	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Basic secret-token")
	h.Set("X-nl-user-id", "12345")

	got := RedactHeaders(h)

	if got["Authorization"] != "<redacted>" {
		t.Errorf("Authorization = %q, want <redacted>", got["Authorization"])
	}
	if got["X-Nl-User-Id"] != "12345" {
		t.Errorf("X-Nl-User-Id = %q, want 12345", got["X-Nl-User-Id"])
	}
}

func TestLogHTTPRequestRedactsToken(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	h := http.Header{}
	h.Set("Authorization", "Basic secret-token")
	LogHTTPRequest("GET", "https://example.test/v2/mobile/user.1", h)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	headers, ok := entries[0].ContextMap()["headers"].(map[string]string)
	if !ok {
		t.Fatalf("headers field has type %T", entries[0].ContextMap()["headers"])
	}
	if headers["Authorization"] != "<redacted>" {
		t.Errorf("logged Authorization = %q, want <redacted>", headers["Authorization"])
	}
}

func TestLogHTTPResponseLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogHTTPResponse("POST", "/v2/put/shared.A", 409, 0, 0)
	LogHTTPResponse("GET", "/v2/mobile/user.1", 200, 10, 0)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("409 logged at %v, want warn", entries[0].Level)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("200 logged at %v, want debug", entries[1].Level)
	}
}

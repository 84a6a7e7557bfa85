package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/usermgmt/usersvc/config"
)

func TestNewWithWriterLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"upper case", "WARN", zerolog.WarnLevel},
		{"garbage falls back to info", "loud", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewWithWriter(config.LogConfig{Level: tt.level}, &bytes.Buffer{})
			if got := logger.GetLevel(); got != tt.want {
				t.Fatalf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LogConfig{Level: "info"}, &buf)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"User not found"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/user/99", strings.NewReader(`{"password":"secret"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected warn level for 404, got %v", entry["level"])
	}
	if entry["path"] != "/user/99" || entry["method"] != "GET" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["status"].(float64) != http.StatusNotFound {
		t.Fatalf("unexpected status: %v", entry["status"])
	}
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("request body leaked into logs: %s", buf.String())
	}
}

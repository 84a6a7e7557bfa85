package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/usermgmt/usersvc/config"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ServerPort: 18080,
		Database:   config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "users.db")},
		BcryptCost: bcrypt.MinCost,
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://app.example"}},
		Events:     config.EventsConfig{Backend: config.EventsBackendNone, Channel: "user-events"},
	}
}

func TestNewServesRoutes(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/users", "", http.StatusOK},
		{http.MethodPost, "/users", `{"name":"Ann","email":"ann@x.com","password":"abcdef"}`, http.StatusCreated},
		{http.MethodGet, "/user/1", "", http.StatusOK},
		{http.MethodPost, "/login", `{"email":"ann@x.com","password":"wrong"}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("%s %s: status %d, want %d (body %s)", tt.method, tt.path, rec.Code, tt.status, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("%s %s: expected JSON response", tt.method, tt.path)
		}
	}
}

func TestNewAppliesCORS(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestNewRejectsUnknownEventsBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.Backend = "carrier-pigeon"

	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown events backend")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServerPort = 18181
	srv, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		ping   func(context.Context) error
		status int
		want   string
	}{
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"database down", func(context.Context) error { return errors.New("closed") }, http.StatusServiceUnavailable, "unavailable"},
		{"no pinger", nil, http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Healthz(tt.ping)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeBody[map[string]string](t, rec)["status"]; got != tt.want {
				t.Fatalf("status field = %q, want %q", got, tt.want)
			}
		})
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		checker  HealthChecker
		status   int
		database string
	}{
		{"database up", pingFunc(func(ctx context.Context) error { return nil }), http.StatusOK, "up"},
		{"database down", pingFunc(func(ctx context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, "down"},
		{"no checker", nil, http.StatusOK, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checker)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body healthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Database != tt.database {
				t.Errorf("database = %q, want %q", body.Database, tt.database)
			}
		})
	}
}

func TestHealthHandler_PingHasDeadline(t *testing.T) {
	checker := pingFunc(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("ping context should carry a deadline")
		}
		return nil
	})

	w := httptest.NewRecorder()
	NewHealthHandler(checker)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
}

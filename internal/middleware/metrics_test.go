package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/notekeeper/internal/metrics"
)

type recordingCollector struct {
	metrics.Nop
	statuses  []int
	latencies []time.Duration
}

func (c *recordingCollector) RecordHTTPStatus(code int) {
	c.statuses = append(c.statuses, code)
}

func (c *recordingCollector) RecordRequestLatency(d time.Duration) {
	c.latencies = append(c.latencies, d)
}

func TestMetricsMiddleware_RecordsStatusAndLatency(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"explicit status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }, http.StatusCreated},
		{"implicit 200", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) }, http.StatusOK},
		{"no write", func(w http.ResponseWriter, r *http.Request) {}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCollector{}
			NewMetricsMiddleware(c)(tt.handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if len(c.statuses) != 1 || c.statuses[0] != tt.want {
				t.Errorf("statuses = %v, want [%d]", c.statuses, tt.want)
			}
			if len(c.latencies) != 1 || c.latencies[0] < 0 {
				t.Errorf("latencies = %v", c.latencies)
			}
		})
	}
}

func TestMetricsMiddleware_SharesRecorderWithLogging(t *testing.T) {
	c := &recordingCollector{}
	inner := NewMetricsMiddleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler := NewLoggingMiddleware(discardLogger())(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(c.statuses) != 1 || c.statuses[0] != http.StatusNotFound {
		t.Errorf("statuses = %v, want [404]", c.statuses)
	}
}

// Recoveryの内側でpanicしたリクエストも500として計上される。
func TestMetricsMiddleware_PanicBehindRecovery_Records500(t *testing.T) {
	c := &recordingCollector{}
	handler := NewRecoveryMiddleware(discardLogger())(
		NewMetricsMiddleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("response status = %d, want 500", w.Code)
	}
	if len(c.statuses) != 1 || c.statuses[0] != http.StatusInternalServerError {
		t.Errorf("statuses = %v, want [500]", c.statuses)
	}
	if len(c.latencies) != 1 {
		t.Errorf("latencies = %v, want one sample", c.latencies)
	}
}

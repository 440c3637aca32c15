package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/notekeeper/internal/metrics"
)

// mockClearer はResetTokenClearerのモック実装。
type mockClearer struct {
	mu      sync.Mutex
	calls   int
	lastNow time.Time
	cleared int64
	err     error
}

func (m *mockClearer) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastNow = now
	return m.cleared, m.err
}

func (m *mockClearer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type recordingMetrics struct {
	metrics.Nop
	mu      sync.Mutex
	cleared []int64
}

func (r *recordingMetrics) RecordResetTokensCleared(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, n)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func findLogField(t *testing.T, buf *bytes.Buffer, key string) (any, bool) {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestCleanupJob_Run_PassesCurrentTime(t *testing.T) {
	var buf bytes.Buffer
	clearer := &mockClearer{}
	job := NewCleanupJob(clearer, newTestLogger(&buf), nil)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !clearer.lastNow.Equal(fixed) {
		t.Errorf("now = %v, want %v", clearer.lastNow, fixed)
	}
}

func TestCleanupJob_Run_RecordsClearedCount(t *testing.T) {
	var buf bytes.Buffer
	rec := &recordingMetrics{}
	job := NewCleanupJob(&mockClearer{cleared: 42}, newTestLogger(&buf), rec)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if len(rec.cleared) != 1 || rec.cleared[0] != 42 {
		t.Errorf("metrics cleared = %v, want [42]", rec.cleared)
	}
	v, ok := findLogField(t, &buf, "cleared_count")
	if !ok || v != float64(42) {
		t.Errorf("cleared_count log = %v, want 42; log: %s", v, buf.String())
	}
}

func TestCleanupJob_Run_NothingToClearIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockClearer{cleared: 0}, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
}

func TestCleanupJob_Run_StoreError(t *testing.T) {
	var buf bytes.Buffer
	rec := &recordingMetrics{}
	job := NewCleanupJob(&mockClearer{err: errors.New("connection refused")}, newTestLogger(&buf), rec)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap cause: %v", err)
	}
	if len(rec.cleared) != 0 {
		t.Errorf("metrics should not be recorded on failure: %v", rec.cleared)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected ERROR log, got: %s", buf.String())
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	clearer := &mockClearer{}
	job := NewCleanupJob(clearer, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 20*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for clearer.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 runs, got %d", clearer.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestCleanupJob_Start_KeepsRetryingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	clearer := &mockClearer{err: errors.New("connection refused")}
	job := NewCleanupJob(clearer, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		// 再試行の遅延はintervalを上限とするため、短いintervalでも打ち切られない
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for clearer.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated retries, got %d runs", clearer.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

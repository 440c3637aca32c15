package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const requestLogContextKey contextKey = "request_log"

// requestLog は内側のミドルウェアが判明させた情報をアクセスログへ渡すための入れ物。
type requestLog struct {
	mu     sync.Mutex
	userID string
}

func setLogUserID(ctx context.Context, userID string) {
	if rl, ok := ctx.Value(requestLogContextKey).(*requestLog); ok {
		rl.mu.Lock()
		rl.userID = userID
		rl.mu.Unlock()
	}
}

func (rl *requestLog) user() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.userID
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

// finalStatus はクライアントに返るステータスコードを返す。
// 書き込み前にpanicした場合は外側のRecoveryが500を返すため500とする。
func (sr *statusRecorder) finalStatus(completed bool) int {
	if !completed && !sr.written {
		return http.StatusInternalServerError
	}
	return sr.statusCode
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
// 内側でpanicした場合もログを出力し、panicはそのまま外側へ伝播させる。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			rl := &requestLog{}
			completed := false

			defer func() {
				status := rec.finalStatus(completed)
				args := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
				}
				if userID := rl.user(); userID != "" {
					args = append(args, slog.String("user_id", userID))
				}

				level := slog.LevelInfo
				if status >= 500 {
					level = slog.LevelError
				} else if status >= 400 {
					level = slog.LevelWarn
				}

				logger.Log(r.Context(), level, "http_request", args...)
			}()

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogContextKey, rl)))
			completed = true
		})
	}
}

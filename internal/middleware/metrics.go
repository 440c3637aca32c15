package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/notekeeper/internal/metrics"
)

// NewMetricsMiddleware はレスポンスのステータスコードとレイテンシを記録するミドルウェアを返す。
// panicで終わったリクエストは500として記録する。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			completed := false

			defer func() {
				collector.RecordHTTPStatus(rec.finalStatus(completed))
				collector.RecordRequestLatency(time.Since(start))
			}()

			next.ServeHTTP(rec, r)
			completed = true
		})
	}
}

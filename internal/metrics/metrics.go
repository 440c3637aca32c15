// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証フロー種別
const (
	FlowSignup         = "signup"
	FlowLogin          = "login"
	FlowGoogle         = "google"
	FlowForgotPassword = "forgot_password"
)

// 認証結果
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(flow, outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordResetTokensCleared(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts   *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	resetCleared   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeeper_auth_attempts_total",
			Help: "認証フロー別・結果別の試行回数",
		}, []string{"flow", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeeper_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notekeeper_request_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		resetCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notekeeper_reset_tokens_cleared_total",
			Help: "期限切れで削除されたパスワードリセットトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.httpStatus,
		c.requestLatency,
		c.resetCleared,
	)

	return c
}

// RecordAuthAttempt は認証試行を記録する。
func (c *Collector) RecordAuthAttempt(flow, outcome string) {
	c.authAttempts.WithLabelValues(flow, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordResetTokensCleared は削除したリセットトークン数を記録する。
func (c *Collector) RecordResetTokensCleared(count int64) {
	c.resetCleared.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordAuthAttempt(string, string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordResetTokensCleared(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

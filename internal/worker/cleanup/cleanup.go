// Package cleanup は期限切れパスワードリセットトークンの定期削除ジョブを提供する。
// 期限を過ぎたトークンは検証時にも無効として扱われるが、
// 漏洩時の影響を抑えるためDBからも定期的に消去する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/notekeeper/internal/metrics"
)

// ResetTokenClearer は期限切れリセットトークンの削除を抽象化するインターフェース。
type ResetTokenClearer interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は期限切れリセットトークンの削除ジョブ。
// 冪等な削除処理のため、何度実行しても結果は変わらない。
type CleanupJob struct {
	users   ResetTokenClearer
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewCleanupJob(users ResetTokenClearer, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		users:   users,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}
}

// Run は期限切れのリセットトークンを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	cleared, err := j.users.ClearExpiredResetTokens(ctx, j.now())
	if err != nil {
		j.logger.Error("reset token cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}

	j.metrics.RecordResetTokensCleared(cleared)
	j.logger.Info("reset token cleanup completed",
		slog.Int64("cleared_count", cleared),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降interval間隔でRunを繰り返す。
// 失敗が続く間は短い間隔から指数的に延ばして再試行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.logger.Info("cleanup scheduler started", slog.Duration("interval", interval))

	failures := 0
	for {
		if err := j.Run(ctx); err != nil {
			failures++
		} else {
			failures = 0
		}

		delay := nextDelay(failures, interval)
		if failures > 0 {
			j.logger.Warn("cleanup retry scheduled",
				slog.Int("consecutive_failures", failures),
				slog.Duration("delay", delay),
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("cleanup scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

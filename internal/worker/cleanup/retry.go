package cleanup

import "time"

// initialRetryDelay は失敗直後の再試行までの遅延。
const initialRetryDelay = 30 * time.Second

// nextDelay は連続失敗回数に応じて次回実行までの遅延を返す。
// 失敗が無ければinterval、失敗時は初回30秒から2倍ずつ増やしintervalを上限とする。
func nextDelay(consecutiveFailures int, interval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return interval
	}
	delay := initialRetryDelay
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= interval {
			return interval
		}
	}
	if delay > interval {
		return interval
	}
	return delay
}

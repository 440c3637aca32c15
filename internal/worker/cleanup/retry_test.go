package cleanup

import (
	"testing"
	"time"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		failures int
		interval time.Duration
		want     time.Duration
	}{
		{0, time.Hour, time.Hour},
		{1, time.Hour, 30 * time.Second},
		{2, time.Hour, time.Minute},
		{3, time.Hour, 2 * time.Minute},
		{10, time.Hour, time.Hour},
		{1, 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := nextDelay(tt.failures, tt.interval); got != tt.want {
			t.Errorf("nextDelay(%d, %v) = %v, want %v", tt.failures, tt.interval, got, tt.want)
		}
	}
}

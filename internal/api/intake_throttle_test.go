package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntakeThrottleLimitsPerWindow(t *testing.T) {
	currentTime := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	throttle := newIntakeThrottle(time.Minute, 2)
	throttle.now = func() time.Time { return currentTime }

	require.False(t, throttle.isRateLimited("10.0.0.1"))
	require.False(t, throttle.isRateLimited("10.0.0.1"))
	require.True(t, throttle.isRateLimited("10.0.0.1"))
	require.False(t, throttle.isRateLimited("10.0.0.2"))

	currentTime = currentTime.Add(time.Minute)
	require.False(t, throttle.isRateLimited("10.0.0.1"))
}

func TestIntakeThrottleDisabled(t *testing.T) {
	throttle := newIntakeThrottle(0, 0)
	require.Equal(t, DefaultIntakeRateWindow, throttle.window)
	for attempt := 0; attempt < 50; attempt++ {
		require.False(t, throttle.isRateLimited("10.0.0.1"))
	}

	var missing *intakeThrottle
	require.False(t, missing.isRateLimited("10.0.0.1"))
}

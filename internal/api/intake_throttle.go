package api

import (
	"sync"
	"time"
)

const (
	// DefaultIntakeRateWindow is the length of one throttle window.
	DefaultIntakeRateWindow = 30 * time.Second
	// DefaultIntakeRateLimit is the number of submissions one IP may make per window.
	DefaultIntakeRateLimit = 6
)

// intakeThrottle counts submissions per client IP in fixed windows.
type intakeThrottle struct {
	window        time.Duration
	maxPerWindow  int
	countersByIP  map[string]int
	currentBucket int64
	countersMutex sync.Mutex
	now           func() time.Time
}

func newIntakeThrottle(window time.Duration, maxPerWindow int) *intakeThrottle {
	if window <= 0 {
		window = DefaultIntakeRateWindow
	}
	return &intakeThrottle{
		window:       window,
		maxPerWindow: maxPerWindow,
		countersByIP: make(map[string]int),
		now:          time.Now,
	}
}

// isRateLimited records a request from ip and reports whether it exceeds the
// window's allowance. A non-positive allowance disables throttling.
func (throttle *intakeThrottle) isRateLimited(ip string) bool {
	if throttle == nil || throttle.maxPerWindow <= 0 {
		return false
	}
	bucket := throttle.now().UnixNano() / int64(throttle.window)

	throttle.countersMutex.Lock()
	defer throttle.countersMutex.Unlock()

	if bucket != throttle.currentBucket {
		throttle.countersByIP = make(map[string]int)
		throttle.currentBucket = bucket
	}
	throttle.countersByIP[ip]++
	return throttle.countersByIP[ip] > throttle.maxPerWindow
}

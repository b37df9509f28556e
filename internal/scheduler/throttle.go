package scheduler

import "time"

// DefaultThrottleInterval is the minimum time between text refreshes of
// one key.
const DefaultThrottleInterval = time.Second

// Throttle rate-limits text refreshes per key. A refresh is allowed when
// the key has no record or the interval has elapsed since the last allowed
// one. The decision time is recorded when a refresh is allowed, not when it
// is rendered.
type Throttle struct {
	interval time.Duration
	last     map[Key]time.Time
}

// NewThrottle creates a Throttle with the given interval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	return &Throttle{
		interval: interval,
		last:     make(map[Key]time.Time),
	}
}

// Allow reports whether k may refresh at now, recording now when it may.
func (t *Throttle) Allow(k Key, now time.Time) bool {
	if last, ok := t.last[k]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[k] = now
	return true
}

// Last returns the time of k's last allowed refresh.
func (t *Throttle) Last(k Key) (time.Time, bool) {
	last, ok := t.last[k]
	return last, ok
}

// Forget drops k's record so its next refresh is allowed.
func (t *Throttle) Forget(k Key) {
	delete(t.last, k)
}

// Interval returns the configured interval.
func (t *Throttle) Interval() time.Duration { return t.interval }

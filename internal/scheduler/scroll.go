package scheduler

import "time"

// DefaultScrollPause is how long scrolling must stop before updates resume.
const DefaultScrollPause = 100 * time.Millisecond

// ScrollSuppressor tracks whether the user is scrolling. Each scroll marks
// it active; it goes inactive once no scroll has been seen for the pause
// interval. Timers cannot be cancelled, so a single settle check is kept
// pending and re-armed for the remaining time when a later scroll moved
// the deadline.
type ScrollSuppressor struct {
	pause  time.Duration
	active bool
	last   time.Time

	timer *ScrollTimerID
	next  ScrollTimerID
}

// NewScrollSuppressor creates an inactive suppressor.
func NewScrollSuppressor(pause time.Duration) *ScrollSuppressor {
	if pause <= 0 {
		pause = DefaultScrollPause
	}
	return &ScrollSuppressor{pause: pause}
}

// Active reports whether updates are suppressed.
func (s *ScrollSuppressor) Active() bool { return s.active }

// Scrolled records a scroll at now. It returns a check to schedule when
// none is pending.
func (s *ScrollSuppressor) Scrolled(now time.Time) (ScheduleScrollCheck, bool) {
	s.active = true
	s.last = now

	if s.timer != nil {
		return ScheduleScrollCheck{}, false
	}
	s.next++
	id := s.next
	s.timer = &id
	return ScheduleScrollCheck{Timer: id, Delay: s.pause}, true
}

// Settle handles the check for timer firing at now. It deactivates the
// suppressor when the pause has elapsed since the last scroll, or returns
// a re-armed check for the remaining time.
func (s *ScrollSuppressor) Settle(timer ScrollTimerID, now time.Time) (ScheduleScrollCheck, bool) {
	if s.timer == nil || *s.timer != timer {
		return ScheduleScrollCheck{}, false
	}

	quiet := now.Sub(s.last)
	if quiet >= s.pause {
		s.active = false
		s.timer = nil
		return ScheduleScrollCheck{}, false
	}
	return ScheduleScrollCheck{Timer: timer, Delay: s.pause - quiet}, true
}

// Reset deactivates the suppressor and drops any pending check.
func (s *ScrollSuppressor) Reset() {
	s.active = false
	s.timer = nil
}

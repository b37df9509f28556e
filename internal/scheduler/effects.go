package scheduler

import (
	"time"

	"github.com/gpuhot/gpuhot/internal/conn"
)

// FrameID identifies a requested frame.
type FrameID uint64

// ScrollTimerID identifies a scroll settle check.
type ScrollTimerID uint64

// Effect is work Dispatch asks the caller to perform. The scheduler never
// starts goroutines or timers itself.
type Effect interface {
	isEffect()
}

// Dial opens socket Conn. The transport reports back with SocketOpened or
// SocketClosed carrying the same Conn.
type Dial struct {
	Conn    conn.ID
	Attempt int
}

// CloseSocket closes socket Conn.
type CloseSocket struct {
	Conn conn.ID
}

// RequestFrame asks for a FrameTick carrying Frame at the next frame.
type RequestFrame struct {
	Frame FrameID
}

// ScheduleRetry asks for a RetryTick carrying Timer after Delay.
type ScheduleRetry struct {
	Timer conn.TimerID
	Delay time.Duration
}

// ScheduleScrollCheck asks for a ScrollSettled carrying Timer after Delay.
type ScheduleScrollCheck struct {
	Timer ScrollTimerID
	Delay time.Duration
}

func (Dial) isEffect()                {}
func (CloseSocket) isEffect()         {}
func (RequestFrame) isEffect()        {}
func (ScheduleRetry) isEffect()       {}
func (ScheduleScrollCheck) isEffect() {}

func fromConnActions(actions []conn.Action) []Effect {
	if len(actions) == 0 {
		return nil
	}
	effects := make([]Effect, 0, len(actions))
	for _, a := range actions {
		switch a := a.(type) {
		case conn.Dial:
			effects = append(effects, Dial{Conn: a.Conn, Attempt: a.Attempt})
		case conn.ScheduleRetry:
			effects = append(effects, ScheduleRetry{Timer: a.Timer, Delay: a.Delay})
		case conn.CloseSocket:
			effects = append(effects, CloseSocket{Conn: a.Conn})
		}
	}
	return effects
}

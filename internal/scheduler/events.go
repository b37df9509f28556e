package scheduler

import (
	"time"

	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// Event is an input to Scheduler.Dispatch. Events that carry a time use
// it as "now"; a zero time falls back to the scheduler's clock.
type Event interface {
	isEvent()
}

// SocketOpened reports a completed handshake.
type SocketOpened struct {
	Conn conn.ID
	At   time.Time
}

// SocketClosed reports that a socket ended or failed to connect.
type SocketClosed struct {
	Conn conn.ID
	Err  error
	At   time.Time
}

// SocketError reports a transport error. A SocketClosed follows.
type SocketError struct {
	Conn conn.ID
	Err  error
}

// MessageReceived carries one raw telemetry message.
type MessageReceived struct {
	Conn conn.ID
	Data []byte
	At   time.Time
}

// SnapshotReceived injects one already-decoded GPU snapshot.
type SnapshotReceived struct {
	Entity telemetry.EntityUpdate
	At     time.Time
}

// FrameTick is the frame requested by a RequestFrame effect.
type FrameTick struct {
	Frame FrameID
	At    time.Time
}

// RetryTick is the retry timer firing.
type RetryTick struct {
	Timer conn.TimerID
	At    time.Time
}

// Scrolled reports one user scroll.
type Scrolled struct {
	At time.Time
}

// ScrollSettled is the scroll settle check requested by ScheduleScrollCheck.
type ScrollSettled struct {
	Timer ScrollTimerID
	At    time.Time
}

// VisibilityRegained reports the view becoming visible again.
type VisibilityRegained struct{}

// FocusGained reports the view regaining input focus.
type FocusGained struct{}

// ManualRetry is the user asking to reconnect.
type ManualRetry struct{}

func (SocketOpened) isEvent()       {}
func (SocketClosed) isEvent()       {}
func (SocketError) isEvent()        {}
func (MessageReceived) isEvent()    {}
func (SnapshotReceived) isEvent()   {}
func (FrameTick) isEvent()          {}
func (RetryTick) isEvent()          {}
func (Scrolled) isEvent()           {}
func (ScrollSettled) isEvent()      {}
func (VisibilityRegained) isEvent() {}
func (FocusGained) isEvent()        {}
func (ManualRetry) isEvent()        {}

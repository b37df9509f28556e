// Package conn implements the reconnect policy for the telemetry socket.
//
// Manager is a pure state machine: it receives socket lifecycle events and
// timer ticks and answers with actions (dial, schedule a retry tick, close).
// It owns no goroutines or timers, so callers decide how actions run and
// tests can drive it step by step.
package conn

// State is the connection state shown to the user.
type State int

const (
	// Disconnected is the initial state and the state after Stop.
	Disconnected State = iota
	// Connecting means the first dial, or a dial forced by focus/resume,
	// is in flight.
	Connecting
	// Connected means a socket is open.
	Connected
	// Reconnecting means the socket closed and automatic retries are running.
	Reconnecting
	// GivenUp means the retry budget is exhausted. Only a resume or a
	// manual retry dials again.
	GivenUp
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case GivenUp:
		return "given up"
	default:
		return "unknown"
	}
}

package conn

import (
	"time"

	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
)

// Defaults match the telemetry dashboard's historical behavior.
const (
	DefaultDelay       = 2 * time.Second
	DefaultMaxAttempts = 10
)

// Policy configures fixed-interval reconnection.
type Policy struct {
	Delay       time.Duration
	MaxAttempts int
}

// ID identifies one socket. Each dial gets a new ID so events from an
// abandoned socket can be told apart from the current one.
type ID uint64

// TimerID identifies one retry timer. Dropping the handle cancels it:
// a tick carrying an old TimerID is ignored.
type TimerID uint64

// Action is something the caller must do on the Manager's behalf.
type Action interface {
	isAction()
}

// Dial asks the caller to open socket Conn.
type Dial struct {
	Conn    ID
	Attempt int
}

// ScheduleRetry asks the caller to deliver RetryTick(Timer) after Delay.
type ScheduleRetry struct {
	Timer TimerID
	Delay time.Duration
}

// CloseSocket asks the caller to close socket Conn.
type CloseSocket struct {
	Conn ID
}

func (Dial) isAction()          {}
func (ScheduleRetry) isAction() {}
func (CloseSocket) isAction()   {}

type phase int

const (
	phaseIdle phase = iota
	phaseDialing
	phaseOpen
)

// Manager decides when to dial. See the package doc.
type Manager struct {
	policy   Policy
	log      logger.Logger
	onChange func(from, to State, err error)

	state    State
	attempts int
	phase    phase
	current  ID
	nextConn ID

	// retry is the optional handle of the running retry timer.
	retry     *TimerID
	nextTimer TimerID
	stopped   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// OnStateChange registers a callback for every state transition. err is
// set when the transition is to GivenUp.
func OnStateChange(fn func(from, to State, err error)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(p Policy, opts ...Option) *Manager {
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	m := &Manager{
		policy: p,
		log:    logger.NewEnvLogger("[conn]"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State { return m.state }

// Attempts returns the number of automatic retries since the last open.
func (m *Manager) Attempts() int { return m.attempts }

// RetryPending reports whether a retry timer handle is held.
func (m *Manager) RetryPending() bool { return m.retry != nil }

// Current returns the ID of the socket being dialed or open, or 0.
func (m *Manager) Current() ID {
	if m.phase == phaseIdle {
		return 0
	}
	return m.current
}

// Policy returns the effective policy.
func (m *Manager) Policy() Policy { return m.policy }

// Start makes the first connection attempt.
func (m *Manager) Start() []Action {
	if m.stopped {
		return nil
	}
	m.setState(Connecting, nil)
	return m.dial()
}

// Opened handles a successful handshake on socket id.
func (m *Manager) Opened(id ID) []Action {
	if m.stopped {
		return []Action{CloseSocket{Conn: id}}
	}
	if id != m.current || m.phase != phaseDialing {
		m.log.Debug("ignoring open from stale socket %d", id)
		return nil
	}
	m.phase = phaseOpen
	m.attempts = 0
	m.retry = nil
	m.log.Info("connected")
	m.setState(Connected, nil)
	return nil
}

// Errored records a transport error. Recovery is driven by the close that
// follows, so no action is taken here.
func (m *Manager) Errored(id ID, err error) {
	if id != m.current {
		return
	}
	m.log.Warn("socket %d error: %v", id, err)
}

// Closed handles the end of socket id, whether it was open or still
// dialing. It starts the retry timer if none is running.
func (m *Manager) Closed(id ID, err error) []Action {
	if m.stopped || id != m.current || m.phase == phaseIdle {
		return nil
	}
	if err != nil {
		m.log.Debug("socket %d closed: %v", id, err)
	}
	m.phase = phaseIdle

	if m.state == GivenUp {
		return nil
	}
	m.setState(Reconnecting, nil)
	return m.startRetry()
}

// RetryTick handles the retry timer firing. Ticks from a cancelled timer
// are ignored.
func (m *Manager) RetryTick(timer TimerID) []Action {
	if m.stopped || m.retry == nil || *m.retry != timer {
		return nil
	}

	if m.attempts >= m.policy.MaxAttempts {
		m.retry = nil
		err := errors.NewRetryExhausted(m.attempts)
		m.log.Error("%s", errors.Summary(err))
		m.setState(GivenUp, err)
		return nil
	}

	var actions []Action
	if m.phase == phaseIdle {
		m.attempts++
		m.log.Info("reconnect attempt %d/%d", m.attempts, m.policy.MaxAttempts)
		actions = append(actions, m.dial()...)
	}
	actions = append(actions, ScheduleRetry{Timer: timer, Delay: m.policy.Delay})
	return actions
}

// Resume handles the view becoming visible or focused again. If not
// connected it skips any remaining backoff and dials immediately.
func (m *Manager) Resume() []Action {
	if m.stopped || m.phase == phaseOpen {
		return nil
	}
	m.attempts = 0
	m.retry = nil
	if m.phase == phaseDialing {
		return nil
	}
	m.log.Info("resumed while disconnected, reconnecting now")
	m.setState(Connecting, nil)
	return m.dial()
}

// ManualRetry is the user asking to reconnect, typically after GivenUp.
func (m *Manager) ManualRetry() []Action {
	return m.Resume()
}

// Stop cancels the retry timer and closes any socket. Later events are
// ignored.
func (m *Manager) Stop() []Action {
	if m.stopped {
		return nil
	}
	m.stopped = true
	m.retry = nil

	var actions []Action
	if m.phase != phaseIdle {
		actions = append(actions, CloseSocket{Conn: m.current})
	}
	m.phase = phaseIdle
	m.setState(Disconnected, nil)
	return actions
}

func (m *Manager) dial() []Action {
	if m.phase != phaseIdle {
		return nil
	}
	m.nextConn++
	m.current = m.nextConn
	m.phase = phaseDialing
	return []Action{Dial{Conn: m.current, Attempt: m.attempts}}
}

func (m *Manager) startRetry() []Action {
	if m.retry != nil {
		return nil
	}
	m.nextTimer++
	id := m.nextTimer
	m.retry = &id
	return []Action{ScheduleRetry{Timer: id, Delay: m.policy.Delay}}
}

func (m *Manager) setState(to State, err error) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	if m.onChange != nil {
		m.onChange(from, to, err)
	}
}

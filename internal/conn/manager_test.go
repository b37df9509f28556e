package conn

import (
	"fmt"
	"testing"
	"time"

	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = fmt.Errorf("connection refused")

type transition struct {
	from, to State
	err      error
}

func newTestManager(t *testing.T, p Policy) (*Manager, *[]transition) {
	t.Helper()
	var changes []transition
	m := NewManager(p,
		WithLogger(logger.Noop()),
		OnStateChange(func(from, to State, err error) {
			changes = append(changes, transition{from, to, err})
		}),
	)
	return m, &changes
}

func onlyDial(t *testing.T, actions []Action) Dial {
	t.Helper()
	for _, a := range actions {
		if d, ok := a.(Dial); ok {
			return d
		}
	}
	require.FailNow(t, "expected a Dial action", "%v", actions)
	return Dial{}
}

func findDial(actions []Action) (Dial, bool) {
	for _, a := range actions {
		if d, ok := a.(Dial); ok {
			return d, true
		}
	}
	return Dial{}, false
}

func findRetry(actions []Action) (ScheduleRetry, bool) {
	for _, a := range actions {
		if r, ok := a.(ScheduleRetry); ok {
			return r, true
		}
	}
	return ScheduleRetry{}, false
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Policy{MaxAttempts: -1}, WithLogger(logger.Noop()))

	assert.Equal(t, DefaultDelay, m.Policy().Delay)
	assert.Equal(t, DefaultMaxAttempts, m.Policy().MaxAttempts)
	assert.Equal(t, Disconnected, m.State())
	assert.False(t, m.RetryPending())
}

func TestManager_StartAndOpen(t *testing.T) {
	m, changes := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})

	d := onlyDial(t, m.Start())
	assert.Equal(t, ID(1), d.Conn)
	assert.Equal(t, 0, d.Attempt)
	assert.Equal(t, Connecting, m.State())
	assert.Equal(t, ID(1), m.Current())

	assert.Empty(t, m.Opened(d.Conn))
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, []transition{
		{Disconnected, Connecting, nil},
		{Connecting, Connected, nil},
	}, *changes)
}

func TestManager_CloseStartsSingleRetryTimer(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: 2 * time.Second, MaxAttempts: 10})
	d := onlyDial(t, m.Start())
	m.Opened(d.Conn)

	actions := m.Closed(d.Conn, errRefused)
	require.Len(t, actions, 1)
	r, ok := findRetry(actions)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, r.Delay)
	assert.Equal(t, Reconnecting, m.State())
	assert.True(t, m.RetryPending())

	// A duplicate close for the same socket does nothing.
	assert.Empty(t, m.Closed(d.Conn, errRefused))

	// The tick dials and re-arms the same timer.
	actions = m.RetryTick(r.Timer)
	d2 := onlyDial(t, actions)
	assert.Equal(t, 1, d2.Attempt)
	r2, ok := findRetry(actions)
	require.True(t, ok)
	assert.Equal(t, r.Timer, r2.Timer)

	// The failed retry's close does not start a second timer.
	assert.Empty(t, m.Closed(d2.Conn, errRefused))
}

func TestManager_GivesUpAfterBudget(t *testing.T) {
	m, changes := newTestManager(t, Policy{Delay: 2 * time.Second, MaxAttempts: 10})

	d := onlyDial(t, m.Start())
	dials := 1
	r, ok := findRetry(m.Closed(d.Conn, errRefused))
	require.True(t, ok)

	for i := 0; i < 50; i++ {
		actions := m.RetryTick(r.Timer)
		next, ok := findDial(actions)
		if !ok {
			break
		}
		dials++
		m.Closed(next.Conn, errRefused)
	}

	assert.Equal(t, 11, dials, "initial dial plus exactly ten retries")
	assert.Equal(t, 10, m.Attempts())
	assert.Equal(t, GivenUp, m.State())
	assert.False(t, m.RetryPending())

	last := (*changes)[len(*changes)-1]
	assert.Equal(t, GivenUp, last.to)
	assert.True(t, errors.IsCode(last.err, errors.ErrRetry))

	// Further ticks from the old timer are ignored.
	assert.Empty(t, m.RetryTick(r.Timer))
}

func TestManager_OpenResetsAttempts(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 10})

	d := onlyDial(t, m.Start())
	r, _ := findRetry(m.Closed(d.Conn, errRefused))

	for i := 0; i < 9; i++ {
		next := onlyDial(t, m.RetryTick(r.Timer))
		m.Closed(next.Conn, errRefused)
	}
	require.Equal(t, 9, m.Attempts())

	next := onlyDial(t, m.RetryTick(r.Timer))
	m.Opened(next.Conn)

	assert.Equal(t, 0, m.Attempts())
	assert.False(t, m.RetryPending(), "open cancels the retry timer")
	assert.Empty(t, m.RetryTick(r.Timer), "stale tick after open is ignored")

	// A fresh budget: the next close gets a new timer.
	r2, ok := findRetry(m.Closed(next.Conn, errRefused))
	require.True(t, ok)
	assert.NotEqual(t, r.Timer, r2.Timer)
}

func TestManager_TickWhileDialingDoesNotCountAttempt(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})

	d := onlyDial(t, m.Start())
	r, _ := findRetry(m.Closed(d.Conn, errRefused))
	onlyDial(t, m.RetryTick(r.Timer))
	require.Equal(t, 1, m.Attempts())

	// The handshake is still pending when the timer fires again.
	actions := m.RetryTick(r.Timer)
	_, dialed := findDial(actions)
	assert.False(t, dialed)
	_, rearmed := findRetry(actions)
	assert.True(t, rearmed)
	assert.Equal(t, 1, m.Attempts())
}

func TestManager_ResumeBypassesBackoff(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Manager) ID
	}{
		{
			name: "while reconnecting",
			setup: func(m *Manager) ID {
				d, _ := findDial(m.Start())
				m.Closed(d.Conn, errRefused)
				return d.Conn
			},
		},
		{
			name: "after giving up",
			setup: func(m *Manager) ID {
				d, _ := findDial(m.Start())
				r, _ := findRetry(m.Closed(d.Conn, errRefused))
				m.RetryTick(r.Timer) // budget of 0: gives up immediately
				return d.Conn
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, Policy{Delay: time.Minute, MaxAttempts: 0})
			prev := tt.setup(m)

			d := onlyDial(t, m.Resume())
			assert.NotEqual(t, prev, d.Conn)
			assert.Equal(t, Connecting, m.State())
			assert.Equal(t, 0, m.Attempts())
			assert.False(t, m.RetryPending())
		})
	}
}

func TestManager_ResumeWhenConnectedOrDialing(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})

	d := onlyDial(t, m.Start())
	assert.Empty(t, m.Resume(), "a dial is already in flight")

	m.Opened(d.Conn)
	assert.Empty(t, m.Resume(), "already connected")
	assert.Empty(t, m.ManualRetry())
	assert.Equal(t, Connected, m.State())
}

func TestManager_StaleSocketEventsIgnored(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})

	d1 := onlyDial(t, m.Start())
	m.Closed(d1.Conn, errRefused)
	d2 := onlyDial(t, m.Resume())

	assert.Empty(t, m.Opened(d1.Conn))
	assert.Equal(t, Connecting, m.State())
	assert.Empty(t, m.Closed(d1.Conn, errRefused))

	m.Opened(d2.Conn)
	assert.Equal(t, Connected, m.State())
}

func TestManager_Stop(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})

	d := onlyDial(t, m.Start())
	m.Opened(d.Conn)

	actions := m.Stop()
	assert.Equal(t, []Action{CloseSocket{Conn: d.Conn}}, actions)
	assert.Equal(t, Disconnected, m.State())

	assert.Empty(t, m.Closed(d.Conn, nil))
	assert.Empty(t, m.Resume())
	assert.Empty(t, m.Start())
	assert.Empty(t, m.Stop())
}

func TestManager_OpenAfterStopClosesSocket(t *testing.T) {
	m, _ := newTestManager(t, Policy{Delay: time.Second, MaxAttempts: 3})
	d := onlyDial(t, m.Start())

	m.Stop()
	assert.Equal(t, []Action{CloseSocket{Conn: d.Conn}}, m.Opened(d.Conn))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "reconnecting", Reconnecting.String())
	assert.Equal(t, "given up", GivenUp.String())
	assert.Equal(t, "unknown", State(99).String())
}

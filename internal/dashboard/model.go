package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/gpuhot/gpuhot/internal/scheduler"
)

// Layout constants
const (
	headerHeight = 2
	footerHeight = 2
)

// DefaultFrameInterval is the delay between a frame request and its flush.
const DefaultFrameInterval = 16 * time.Millisecond

// Transport is the socket the model drives. Dial and CloseConn must not
// block; results arrive on Events.
type Transport interface {
	Events() <-chan scheduler.Event
	Dial(id conn.ID)
	CloseConn(id conn.ID)
	Close() error
}

// Options configures the dashboard.
type Options struct {
	// Server is shown in the header.
	Server        string
	Scheduler     scheduler.Config
	FrameInterval time.Duration
	Thresholds    Thresholds
	// ExportDir receives HTML chart exports.
	ExportDir string
	Logger    logger.Logger
	Observers []scheduler.Observer
}

// eventMsg carries one transport event into Update.
type eventMsg struct {
	event scheduler.Event
}

// exportedMsg reports the result of a chart export.
type exportedMsg struct {
	path string
	err  error
}

// renderKey identifies the content currently in the viewport.
type renderKey struct {
	version  uint64
	width    int
	selected string
	mode     ViewMode
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	sched     *scheduler.Scheduler
	display   *Display
	transport Transport
	opts      Options
	log       logger.Logger

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	width    int
	height   int
	ready    bool
	selected string
	viewMode ViewMode
	quitting bool
	spinning bool

	// autoDetailDone is set after the first flush that produced cards.
	autoDetailDone bool
	lastMessage    time.Time
	notice         string
	rendered       renderKey
}

// New creates the dashboard model. The scheduler is built here so the
// model's Display is its renderer.
func New(t Transport, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	log := logger.OrDefault(opts.Logger)

	display := NewDisplay()
	schedOpts := []scheduler.Option{scheduler.WithLogger(log)}
	for _, o := range opts.Observers {
		schedOpts = append(schedOpts, scheduler.WithObserver(o))
	}

	return Model{
		sched:     scheduler.New(opts.Scheduler, display, schedOpts...),
		display:   display,
		transport: t,
		opts:      opts,
		log:       log,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(StatusPendingStyle),
		),
		viewport: viewport.New(0, 0),
	}
}

// Init makes the first connection attempt and starts listening for
// transport events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.sched.Init()), m.waitForEvent())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		if _, ok := msg.event.(scheduler.MessageReceived); ok {
			m.lastMessage = time.Now()
		}
		cmds = append(cmds, m.dispatch(msg.event), m.waitForEvent())

	case scheduler.FrameTick:
		cmds = append(cmds, m.dispatch(msg))

	case scheduler.RetryTick:
		cmds = append(cmds, m.dispatch(msg))

	case scheduler.ScrollSettled:
		cmds = append(cmds, m.dispatch(msg))

	case tea.FocusMsg:
		cmds = append(cmds, m.dispatch(scheduler.FocusGained{}))

	case tea.ResumeMsg:
		cmds = append(cmds, m.dispatch(scheduler.VisibilityRegained{}))

	case tea.MouseMsg:
		if isWheel(msg) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd, m.dispatch(scheduler.Scrolled{At: time.Now()}))
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.connecting() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			m.spinning = false
		}

	case exportedMsg:
		if msg.err != nil {
			m.notice = errors.Summary(msg.err)
			m.log.Warn("export failed: %v", msg.err)
		} else {
			m.notice = "Exported " + msg.path
		}
	}

	m.syncSelection()
	m.refresh()
	return m, tea.Batch(cmds...)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.help.ShowAll {
		return m.renderHelp()
	}
	return m.renderHeader() + "\n" + m.viewport.View() + "\n" + m.renderFooter()
}

// Display returns the renderer the scheduler draws into.
func (m Model) Display() *Display { return m.display }

// Scheduler returns the model's scheduler.
func (m Model) Scheduler() *scheduler.Scheduler { return m.sched }

// Selected returns the key of the selected GPU.
func (m Model) Selected() string { return m.selected }

// Mode returns the current view mode.
func (m Model) Mode() ViewMode { return m.viewMode }

// waitForEvent receives the next transport event.
func (m Model) waitForEvent() tea.Cmd {
	events := m.transport.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

func (m *Model) dispatch(ev scheduler.Event) tea.Cmd {
	return m.run(m.sched.Dispatch(ev))
}

// run performs scheduler effects. Socket effects go straight to the
// transport, timers become ticks that come back as scheduler events.
func (m *Model) run(effects []scheduler.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range effects {
		switch e := e.(type) {
		case scheduler.Dial:
			m.transport.Dial(e.Conn)
		case scheduler.CloseSocket:
			m.transport.CloseConn(e.Conn)
		case scheduler.RequestFrame:
			cmds = append(cmds, tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg {
				return scheduler.FrameTick{Frame: e.Frame, At: t}
			}))
		case scheduler.ScheduleRetry:
			cmds = append(cmds, tea.Tick(e.Delay, func(t time.Time) tea.Msg {
				return scheduler.RetryTick{Timer: e.Timer, At: t}
			}))
		case scheduler.ScheduleScrollCheck:
			cmds = append(cmds, tea.Tick(e.Delay, func(t time.Time) tea.Msg {
				return scheduler.ScrollSettled{Timer: e.Timer, At: t}
			}))
		}
	}

	if m.connecting() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) connecting() bool {
	switch m.sched.ConnectionState() {
	case conn.Connecting, conn.Reconnecting:
		return true
	}
	return false
}

// syncSelection keeps the selection on a GPU that still has a card, and
// opens the detail view when the first flush brings exactly one GPU.
func (m *Model) syncSelection() {
	keys := m.display.Keys()
	if len(keys) == 0 {
		m.selected = ""
		if m.viewMode == ViewDetail {
			m.viewMode = ViewList
		}
		return
	}

	if _, ok := m.display.Card(m.selected); !ok {
		m.selected = keys[0]
	}

	if !m.autoDetailDone {
		m.autoDetailDone = true
		if len(keys) == 1 {
			m.viewMode = ViewDetail
			m.viewport.GotoTop()
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	vh := max(height-headerHeight-footerHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(width, vh)
		m.viewport.YPosition = headerHeight
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vh
	}
	m.rendered = renderKey{}
}

// refresh rebuilds the viewport content when the display or layout has
// changed since the last build.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	key := renderKey{
		version:  m.display.Version(),
		width:    m.width,
		selected: m.selected,
		mode:     m.viewMode,
	}
	if key == m.rendered {
		return
	}
	m.rendered = key

	if m.viewMode == ViewDetail {
		m.viewport.SetContent(m.renderDetail())
	} else {
		m.viewport.SetContent(m.renderList())
	}
}

func isWheel(msg tea.MouseMsg) bool {
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		return true
	}
	return false
}

package dashboard

import (
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gpuhot/gpuhot/internal/export"
	"github.com/gpuhot/gpuhot/internal/scheduler"
)

// ViewMode is the dashboard's current screen.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// KeyMap holds the dashboard's key bindings. It implements help.KeyMap.
type KeyMap struct {
	Quit     key.Binding
	Retry    key.Binding
	Up       key.Binding
	Down     key.Binding
	First    key.Binding
	Last     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Export   key.Binding
	Help     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous GPU"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next GPU"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home", "first GPU"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end", "last GPU"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d", " "),
			key.WithHelp("pgdn", "scroll down"),
		),
		Expand: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export charts"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp is shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Up, k.Down, k.Expand, k.Help}
}

// FullHelp is shown when help is toggled on.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.First, k.Last},
		{k.PageUp, k.PageDown, k.Expand, k.Collapse},
		{k.Export, k.Retry, k.Help, k.Quit},
	}
}

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Help toggle takes priority
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}
	if m.help.ShowAll && key.Matches(msg, m.keys.Collapse) {
		m.help.ShowAll = false
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Retry):
		m.notice = ""
		return m.dispatch(scheduler.ManualRetry{})

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return tea.Batch(cmd, m.dispatch(scheduler.Scrolled{At: time.Now()}))

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.First):
		if keys := m.display.Keys(); len(keys) > 0 {
			m.selected = keys[0]
		}
	case key.Matches(msg, m.keys.Last):
		if keys := m.display.Keys(); len(keys) > 0 {
			m.selected = keys[len(keys)-1]
		}

	case key.Matches(msg, m.keys.Expand):
		if m.viewMode == ViewList && m.selected != "" {
			m.viewMode = ViewDetail
			m.viewport.GotoTop()
		}
	case key.Matches(msg, m.keys.Collapse):
		if m.viewMode == ViewDetail {
			m.viewMode = ViewList
			m.viewport.GotoTop()
		}

	case key.Matches(msg, m.keys.Export):
		if m.viewMode == ViewDetail {
			return m.exportCmd()
		}
	}
	return nil
}

// move shifts the selection by delta within the display order.
func (m *Model) move(delta int) {
	keys := m.display.Keys()
	if len(keys) == 0 {
		return
	}
	i := slices.Index(keys, m.selected)
	if i < 0 {
		m.selected = keys[0]
		return
	}
	i = max(0, min(len(keys)-1, i+delta))
	m.selected = keys[i]
}

// quit stops the scheduler, closes the transport and exits.
func (m *Model) quit() tea.Cmd {
	m.run(m.sched.Shutdown())
	if err := m.transport.Close(); err != nil {
		m.log.Debug("closing transport: %v", err)
	}
	m.quitting = true
	return tea.Quit
}

// exportCmd writes the selected GPU's history to HTML off the event loop.
func (m *Model) exportCmd() tea.Cmd {
	card, ok := m.display.Card(m.selected)
	if !ok {
		return nil
	}
	store := m.sched.Store()
	key, name, dir := card.Key, card.Name(), m.opts.ExportDir
	m.notice = "Exporting charts..."
	return func() tea.Msg {
		path, err := export.Entity(store, key, name, dir, time.Now())
		return exportedMsg{path: path, err: err}
	}
}

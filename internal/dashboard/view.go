package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// renderHeader renders the title line and the connection status line.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("gpuhot")

	parts := []string{fmt.Sprintf("%d GPUs", m.display.Len())}
	if sys := m.display.System(); sys != nil && sys.Cluster != nil {
		c := sys.Cluster
		parts = append(parts, fmt.Sprintf("%d/%d nodes online", c.OnlineNodes, c.TotalNodes))
	}
	parts = append(parts, "last update "+m.sinceUpdate())

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	return HeaderStyle.Render(title+stats) + "\n" + m.renderStatus()
}

func (m Model) sinceUpdate() string {
	if m.lastMessage.IsZero() {
		return "never"
	}
	switch s := int(time.Since(m.lastMessage).Seconds()); s {
	case 0:
		return "just now"
	default:
		return fmt.Sprintf("%ds ago", s)
	}
}

// StatusText describes the connection for the status line.
func StatusText(state conn.State, attempts, maxAttempts int, server string) string {
	switch state {
	case conn.Connecting:
		return "Connecting to " + server
	case conn.Connected:
		return "Connected to " + server
	case conn.Reconnecting:
		return fmt.Sprintf("Reconnecting (attempt %d/%d)", attempts, maxAttempts)
	case conn.GivenUp:
		return "Disconnected - press r to retry"
	default:
		return "Disconnected"
	}
}

// renderStatus renders the connection status line.
func (m Model) renderStatus() string {
	state, _ := m.display.State()
	text := StatusText(state, m.sched.ReconnectAttempts(), m.opts.Scheduler.Reconnect.MaxAttempts, m.opts.Server)

	var line string
	switch state {
	case conn.Connected:
		line = StatusConnectedStyle.Render(GlyphOnline + " " + text)
	case conn.Connecting, conn.Reconnecting:
		line = m.spinner.View() + " " + StatusPendingStyle.Render(text)
	default:
		line = StatusDownStyle.Render(GlyphOffline + " " + text)
	}

	if m.sched.Suppressed() {
		line += MutedStyle.Render(" | paused while scrolling")
	}
	return " " + line
}

// renderFooter renders the key hints and the latest notice.
func (m Model) renderFooter() string {
	footer := FooterStyle.Render(m.help.View(m.keys))
	if m.notice != "" {
		footer = LabelStyle.Render(" "+m.notice) + "\n" + footer
	}
	return footer
}

// renderHelp renders the full key help centered on screen.
func (m Model) renderHelp() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(1, 2).
		Render(lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("Keyboard Shortcuts") +
			"\n\n" + m.help.View(m.keys) +
			"\n\n" + LabelStyle.Render("Press ? to close"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderList renders the system panel and the card grid.
func (m Model) renderList() string {
	var b strings.Builder

	if sys := m.display.System(); sys != nil {
		b.WriteString(m.renderSystem(*sys, m.contentWidth()))
		b.WriteString("\n")
	}

	if m.display.Len() == 0 {
		b.WriteString(LabelStyle.Render("  Waiting for GPU data..."))
		return b.String()
	}

	cardWidth := m.cardWidth()
	nodes := m.display.Nodes()
	grouped := len(nodes) > 1 || (len(nodes) == 1 && m.isHub())

	for _, node := range nodes {
		var cards []string
		for _, key := range m.display.Keys() {
			c, _ := m.display.Card(key)
			if c.Node != node {
				continue
			}
			cards = append(cards, m.renderCard(c, cardWidth, key == m.selected))
		}
		if grouped {
			b.WriteString(m.renderNodeHeader(node, len(cards)))
			b.WriteString("\n")
		}
		b.WriteString(m.layoutCards(cards, cardWidth))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) isHub() bool {
	sys := m.display.System()
	return sys != nil && sys.Hub
}

func (m Model) renderNodeHeader(node string, gpus int) string {
	return " " + StatusConnectedStyle.Render(GlyphOnline) + " " +
		NameStyle.Render(node) +
		MutedStyle.Render(fmt.Sprintf("  online | %d GPUs", gpus))
}

func (m Model) contentWidth() int {
	return max(m.width-2, 40)
}

// cardWidth fits two or three cards per row on wide terminals.
func (m Model) cardWidth() int {
	if m.width == 0 {
		return 40
	}
	if m.width >= 80 {
		return 38
	}
	return m.width - 4
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string, cardWidth int) string {
	if len(cards) == 0 {
		return ""
	}

	perRow := 1
	if m.width > 0 {
		perRow = max(m.width/(cardWidth+3), 1)
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderSystem renders host metrics, cluster stats and the process table.
func (m Model) renderSystem(sys telemetry.SystemUpdate, width int) string {
	title := "System"
	if sys.Node != "" {
		title = "System | " + sys.Node
	}

	var lines []string
	lines = append(lines, SectionHeader(title, ProcessCount(len(sys.Processes)), width))

	if sys.System != nil {
		cpu := m.opts.Thresholds.Style(sys.System.CPUPercent).Render(fmt.Sprintf("%.1f%%", sys.System.CPUPercent))
		mem := m.opts.Thresholds.Style(sys.System.MemoryPercent).Render(fmt.Sprintf("%.1f%%", sys.System.MemoryPercent))
		lines = append(lines, SectionLine(LabelStyle.Render("CPU ")+cpu+LabelStyle.Render("   RAM ")+mem, width))
	}
	if c := sys.Cluster; c != nil {
		lines = append(lines, SectionLine(LabelStyle.Render(fmt.Sprintf(
			"Cluster: %d/%d nodes online, %d GPUs", c.OnlineNodes, c.TotalNodes, c.TotalGPUs)), width))
	}

	if len(sys.Processes) == 0 {
		lines = append(lines, SectionLine(MutedStyle.Render("No active GPU processes"), width))
	} else {
		for _, row := range strings.Split(processTable(sys.Processes, width-4).View(), "\n") {
			lines = append(lines, SectionLine(row, width))
		}
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// maxProcessRows caps the process table height.
const maxProcessRows = 8

// processTable builds a read-only table of GPU processes.
func processTable(procs []telemetry.Process, width int) table.Model {
	pidW, gpuW, memW := 8, 5, 10
	nameW := max(width-pidW-gpuW-memW-8, 10)

	rows := make([]table.Row, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, table.Row{
			string(p.PID),
			p.Name,
			string(p.GPUID),
			FormatMemory(p.Memory),
		})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "PID", Width: pidW},
			{Title: "Name", Width: nameW},
			{Title: "GPU", Width: gpuW},
			{Title: "VRAM", Width: memW},
		}),
		table.WithRows(rows),
		table.WithHeight(min(len(rows), maxProcessRows)+1),
		table.WithFocused(false),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(ColorTextSecondary).Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return t
}

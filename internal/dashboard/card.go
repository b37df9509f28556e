package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

const (
	cardGraphHeight = 2
	cardMinBarWidth = 10
)

var cardDividerStyle = lipgloss.NewStyle().
	Foreground(ColorBorder).
	Background(ColorSurfaceBg)

func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// renderCardLine renders a line with the card background across its full width.
func renderCardLine(content string, width int) string {
	padding := ""
	if w := lipgloss.Width(content); width > w {
		padding = strings.Repeat(" ", width-w)
	}
	return lipgloss.NewStyle().Background(ColorSurfaceBg).Render(content + padding)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// renderCard renders one GPU card. Text comes from the card's last text
// snapshot; the graph reads the series store, so it keeps moving while
// text updates are throttled.
func (m Model) renderCard(c *Card, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}
	inner := width - 4
	s := c.Text
	t := m.opts.Thresholds

	var lines []string

	name := StatusConnectedStyle.Render(GlyphOnline) + " " + NameStyle.Render(truncate(c.Name(), inner-10))
	lines = append(lines, renderCardLine(justify(name, MutedStyle.Render("GPU "+c.LocalID), inner), inner))
	lines = append(lines, renderCardDivider(inner))

	util := Percent(s, telemetry.MetricUtilization)
	utilStyle := ValueStyle
	if v, ok := s.Float(telemetry.MetricUtilization); ok {
		utilStyle = t.Style(v)
	}
	lines = append(lines, renderCardLine(justify(LabelStyle.Render("UTIL"), utilStyle.Render(util), inner), inner))

	graphWidth := max(inner, cardMinBarWidth)
	history := m.sched.Store().Values(c.Key, series.Utilization, 0)
	if len(history) > 0 {
		g := Graph{Percent: true, Thresholds: t}
		for _, gl := range strings.Split(g.Braille(history, graphWidth, cardGraphHeight), "\n") {
			lines = append(lines, renderCardLine(gl, inner))
		}
	} else {
		lines = append(lines, renderCardLine(ProgressBar(graphWidth, s.FloatOr(telemetry.MetricUtilization, 0), t), inner))
	}

	lines = append(lines, renderCardDivider(inner))

	temp := Celsius(s, telemetry.MetricTemperature)
	if v, ok := s.Float(telemetry.MetricTemperature); ok {
		temp += " " + MutedStyle.Render(TemperatureStatus(v))
	}
	lines = append(lines, renderCardLine(justify(LabelStyle.Render("TEMP"), ValueStyle.Render(temp), inner), inner))

	mem := Memory(s, telemetry.MetricMemoryUsed)
	if mem != NA {
		if s.Has(telemetry.MetricMemoryTotal) {
			mem += " / " + Memory(s, telemetry.MetricMemoryTotal)
		}
		mem = t.Style(MemoryPercent(s)).Render(mem)
	}
	lines = append(lines, renderCardLine(justify(LabelStyle.Render("MEM"), mem, inner), inner))

	power := Watts(s, telemetry.MetricPowerDraw)
	if power != NA && s.Has(telemetry.MetricPowerLimit) {
		power += " / " + Watts(s, telemetry.MetricPowerLimit)
	}
	lines = append(lines, renderCardLine(justify(LabelStyle.Render("POWER"), ValueStyle.Render(power), inner), inner))

	if s.Has(telemetry.MetricFanSpeed) {
		lines = append(lines, renderCardLine(justify(LabelStyle.Render("FAN"), ValueStyle.Render(Percent(s, telemetry.MetricFanSpeed)), inner), inner))
	}

	return style.Render(strings.Join(lines, "\n"))
}

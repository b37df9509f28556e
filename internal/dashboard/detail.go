package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

const detailGraphHeight = 4

var detailContainerStyle = lipgloss.NewStyle().Padding(0, 1)

// renderDetail renders the selected GPU. Other GPUs keep updating their
// cards and series but are not drawn here.
func (m Model) renderDetail() string {
	c, ok := m.display.Card(m.selected)
	if !ok {
		return LabelStyle.Render("  No GPU selected")
	}

	width := m.contentWidth() - 2
	s := c.Text

	var sections []string
	sections = append(sections, m.renderDetailHeader(c))

	sections = append(sections,
		m.renderGraphSection("Utilization", Percent(s, telemetry.MetricUtilization), c.Key, series.Utilization,
			Graph{Percent: true, Thresholds: m.opts.Thresholds}, width),
		m.renderGraphSection("Temperature", temperatureValue(s), c.Key, series.Temperature,
			Graph{Color: ColorWarning}, width),
		m.renderGraphSection("Memory", memoryValue(s), c.Key, series.Memory,
			Graph{Percent: true, Thresholds: m.opts.Thresholds}, width),
		m.renderGraphSection("Power", Watts(s, telemetry.MetricPowerDraw), c.Key, series.Power,
			Graph{Color: ColorGraph}, width),
	)

	sections = append(sections, renderKV("Clocks & PCIe", clockRows(s), width))
	if rows := extendedRows(s); len(rows) > 0 {
		sections = append(sections, renderKV("Details", rows, width))
	}
	if sys := m.display.System(); sys != nil {
		sections = append(sections, m.renderSystem(*sys, width))
	}

	return detailContainerStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderDetailHeader(c *Card) string {
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(c.Name())
	parts := []string{"GPU " + c.LocalID}
	if c.Node != "" {
		parts = append(parts, "node "+c.Node)
	}
	if uuid, ok := c.Text.Text(telemetry.MetricUUID); ok {
		parts = append(parts, uuid)
	}
	return title + "  " + MutedStyle.Render(strings.Join(parts, " | ")) + "\n"
}

func temperatureValue(s telemetry.Snapshot) string {
	v, ok := s.Float(telemetry.MetricTemperature)
	if !ok {
		return NA
	}
	return Celsius(s, telemetry.MetricTemperature) + " " + TemperatureStatus(v)
}

func memoryValue(s telemetry.Snapshot) string {
	used := Memory(s, telemetry.MetricMemoryUsed)
	if used == NA {
		return NA
	}
	return fmt.Sprintf("%s / %s (%.0f%%)", used, Memory(s, telemetry.MetricMemoryTotal), MemoryPercent(s))
}

// renderGraphSection renders a braille graph of one series with its
// min, average and max over the retained window.
func (m Model) renderGraphSection(title, value, key string, metric series.Metric, g Graph, width int) string {
	var lines []string
	lines = append(lines, SectionHeader(title, value, width))

	inner := width - 4
	data := m.sched.Store().Values(key, metric, 0)
	if len(data) == 0 {
		lines = append(lines, SectionLine(MutedStyle.Render("collecting..."), width))
	} else {
		for _, gl := range strings.Split(g.Braille(data, inner, detailGraphHeight), "\n") {
			lines = append(lines, SectionLine(gl, width))
		}
	}

	if st, ok := m.sched.Store().Stats(key, metric); ok {
		stats := fmt.Sprintf("min %.1f  avg %.1f  max %.1f  (%d samples)", st.Min, st.Avg, st.Max, st.Count)
		lines = append(lines, SectionLine(MutedStyle.Render(stats), width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

type kv struct {
	label string
	value string
}

// clockRows lists clocks when reported and PCIe throughput always.
func clockRows(s telemetry.Snapshot) []kv {
	var rows []kv
	clocks := []struct {
		label, name string
	}{
		{"Graphics clock", telemetry.MetricClockGraphics},
		{"SM clock", telemetry.MetricClockSM},
		{"Memory clock", telemetry.MetricClockMemory},
		{"Video clock", telemetry.MetricClockVideo},
	}
	for _, c := range clocks {
		if v, ok := s.Float(c.name); ok {
			rows = append(rows, kv{c.label, fmt.Sprintf("%.0f MHz", v)})
		}
	}
	rows = append(rows,
		kv{"PCIe RX", Throughput(s, telemetry.MetricPCIeRX)},
		kv{"PCIe TX", Throughput(s, telemetry.MetricPCIeTX)},
	)
	return rows
}

// extendedRows lists the optional metrics the GPU reported. Absent ones
// are left out.
func extendedRows(s telemetry.Snapshot) []kv {
	var rows []kv
	text := func(label, name string) {
		if v, ok := s.Text(name); ok {
			rows = append(rows, kv{label, v})
		}
	}

	text("Performance state", telemetry.MetricPerformanceState)
	if gen, ok := s.Text(telemetry.MetricPCIeGen); ok {
		link := "Gen " + gen
		if maxGen, ok := s.Text(telemetry.MetricPCIeGenMax); ok {
			link += " (max " + maxGen + ")"
		}
		if w, ok := s.Text(telemetry.MetricPCIeWidth); ok {
			link += " x" + w
		}
		rows = append(rows, kv{"PCIe link", link})
	}
	if s.Has(telemetry.MetricMemoryFree) {
		rows = append(rows, kv{"Memory free", Memory(s, telemetry.MetricMemoryFree)})
	}
	if s.Has(telemetry.MetricTemperatureMemory) {
		rows = append(rows, kv{"Memory temperature", Celsius(s, telemetry.MetricTemperatureMemory)})
	}
	if s.Has(telemetry.MetricBar1MemoryUsed) {
		rows = append(rows, kv{"BAR1 memory", Memory(s, telemetry.MetricBar1MemoryUsed)})
	}
	if v, ok := s.Float(telemetry.MetricEnergyWh); ok {
		rows = append(rows, kv{"Energy", FormatEnergy(v)})
	}
	if s.Has(telemetry.MetricThrottleReasons) {
		rows = append(rows, kv{"Throttle", ThrottleText(s)})
	}
	if s.Has(telemetry.MetricResetRequired) {
		rows = append(rows, kv{"Health", HealthText(s)})
	}
	text("Encoder sessions", telemetry.MetricEncoderSessions)
	text("Decoder sessions", telemetry.MetricDecoderSessions)
	if s.Has(telemetry.MetricComputeProcesses) || s.Has(telemetry.MetricGraphicsProcesses) {
		rows = append(rows, kv{"Processes", fmt.Sprintf("C:%.0f G:%.0f",
			s.FloatOr(telemetry.MetricComputeProcesses, 0),
			s.FloatOr(telemetry.MetricGraphicsProcesses, 0))})
	}
	text("NVLink active", telemetry.MetricNVLinkActive)
	text("Compute mode", telemetry.MetricComputeMode)
	text("Persistence mode", telemetry.MetricPersistenceMode)
	text("Architecture", telemetry.MetricArchitecture)
	text("Brand", telemetry.MetricBrand)
	text("Driver", telemetry.MetricDriverVersion)
	return rows
}

func renderKV(title string, rows []kv, width int) string {
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(r.label))
	}
	label := LabelStyle.Width(labelWidth + 2)

	lines := []string{SectionHeader(title, "", width)}
	for _, r := range rows {
		lines = append(lines, SectionLine(label.Render(r.label)+ValueStyle.Render(r.value), width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

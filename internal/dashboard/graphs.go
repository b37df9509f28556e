package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 and sets one bit per dot.

const brailleBase = '\u2800'

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps [row][col] to the bit for that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// Graph describes how a series is drawn.
type Graph struct {
	// Percent fixes the vertical range to 0-100 and colors columns by
	// threshold. Otherwise the range follows the data and Color is used.
	Percent    bool
	Thresholds Thresholds
	Color      lipgloss.Color
}

func (g Graph) bounds(data []float64) (lo, hi float64) {
	if g.Percent {
		return 0, 100
	}
	lo, hi = data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

func (g Graph) colorFor(v float64) lipgloss.Color {
	if g.Percent {
		return g.Thresholds.Color(v)
	}
	return g.Color
}

func normalize(val, lo, hi float64) float64 {
	if hi > lo {
		return (val - lo) / (hi - lo)
	}
	return 0.5
}

func clampInt(val, hi int) int {
	if val < 0 {
		return 0
	}
	if val > hi {
		return hi
	}
	return val
}

// Braille renders data as a braille area graph, width characters wide and
// height rows tall. Each character holds two samples; short series are
// right-aligned so the newest sample is always at the right edge.
func (g Graph) Braille(data []float64, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	lo, hi := g.bounds(data)
	totalDots := height * 4
	targetPoints := width * 2

	points := data
	if len(data) > targetPoints {
		points = resample(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	colMax := make([]float64, width)
	offset := max(targetPoints-len(points), 0)

	for i, val := range points {
		dots := clampInt(int(normalize(val, lo, hi)*float64(totalDots)), totalDots)

		col := (i + offset) / 2
		if col >= width {
			continue
		}
		if val > colMax[col] {
			colMax[col] = val
		}

		sub := (i + offset) % 2
		for dot := 0; dot < dots; dot++ {
			row := height - 1 - (dot / 4)
			if row < 0 {
				continue
			}
			grid[row][col] |= rune(1 << brailleDots[3-(dot%4)][sub])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, ch := range row {
			style := lipgloss.NewStyle().Foreground(g.colorFor(colMax[col])).Background(ColorSurfaceBg)
			b.WriteString(style.Render(string(ch)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// Spark renders a single-row block sparkline colored by the newest value.
func (g Graph) Spark(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	lo, hi := g.bounds(data)
	var b strings.Builder
	for _, val := range resample(data, width) {
		idx := clampInt(int(normalize(val, lo, hi)*float64(len(sparkBlocks)-1)), len(sparkBlocks)-1)
		b.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(g.colorFor(data[len(data)-1])).Render(b.String())
}

// resample resizes data to n points. Downsampling keeps the max of each
// bucket so spikes survive; upsampling interpolates linearly.
func resample(data []float64, n int) []float64 {
	if len(data) == 0 || n <= 0 {
		return nil
	}
	if len(data) == n {
		return data
	}

	out := make([]float64, n)
	if len(data) == 1 {
		for i := range out {
			out[i] = data[0]
		}
		return out
	}

	if len(data) > n {
		bucket := float64(len(data)) / float64(n)
		for i := 0; i < n; i++ {
			start := int(float64(i) * bucket)
			end := min(int(float64(i+1)*bucket), len(data))
			if start >= end {
				start = max(end-1, 0)
			}
			peak := data[start]
			for j := start + 1; j < end; j++ {
				peak = max(peak, data[j])
			}
			out[i] = peak
		}
		return out
	}

	scale := float64(len(data)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		pos := float64(i) * scale
		idx := int(pos)
		frac := pos - float64(idx)
		if idx >= len(data)-1 {
			out[i] = data[len(data)-1]
		} else {
			out[i] = data[idx]*(1-frac) + data[idx+1]*frac
		}
	}
	return out
}

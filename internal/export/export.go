// Package export renders a GPU's retained history as a standalone HTML page.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/series"
)

// Units for each chart series, used in axis names.
var units = map[series.Metric]string{
	series.Utilization:   "%",
	series.Temperature:   "°C",
	series.Memory:        "%",
	series.Power:         "W",
	series.FanSpeed:      "%",
	series.Efficiency:    "%/W",
	series.ClockGraphics: "MHz",
	series.ClockSM:       "MHz",
	series.ClockMemory:   "MHz",
	series.PCIeRX:        "KB/s",
	series.PCIeTX:        "KB/s",
}

var titles = map[series.Metric]string{
	series.Utilization:   "GPU Utilization",
	series.Temperature:   "Temperature",
	series.Memory:        "Memory Usage",
	series.Power:         "Power Draw",
	series.FanSpeed:      "Fan Speed",
	series.Efficiency:    "Efficiency",
	series.ClockGraphics: "Graphics Clock",
	series.ClockSM:       "SM Clock",
	series.ClockMemory:   "Memory Clock",
	series.PCIeRX:        "PCIe RX",
	series.PCIeTX:        "PCIe TX",
}

// FileName returns the export file name for an entity at a given time.
func FileName(key string, at time.Time) string {
	return fmt.Sprintf("gpuhot-%s-%s.html", sanitize(key), at.Format("20060102-150405"))
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}

// Entity writes one line chart per non-empty series of key into dir and
// returns the written path.
func Entity(store *series.Store, key, name, dir string, at time.Time) (string, error) {
	snap := store.Snapshot(key)
	if len(snap) == 0 {
		return "", errors.New(errors.ErrExport,
			fmt.Sprintf("No history recorded for GPU %s", key),
			"Wait for a few updates before exporting")
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("gpuhot - %s", displayName(key, name))

	added := 0
	for _, m := range series.Metrics {
		samples := snap[m]
		if len(samples) == 0 {
			continue
		}
		page.AddCharts(lineChart(m, samples))
		added++
	}
	if added == 0 {
		return "", errors.New(errors.ErrExport,
			fmt.Sprintf("No history recorded for GPU %s", key),
			"Wait for a few updates before exporting")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			"Cannot create export directory "+dir,
			"Check the export.dir setting and directory permissions")
	}

	path := filepath.Join(dir, FileName(key, at))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			"Cannot create export file "+path,
			"Check the export.dir setting and directory permissions")
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			"Failed to render charts",
			"Try exporting again")
	}
	return path, nil
}

func displayName(key, name string) string {
	if name == "" {
		return "GPU " + key
	}
	return fmt.Sprintf("%s (GPU %s)", name, key)
}

func lineChart(m series.Metric, samples []series.Sample) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    titles[m],
			Subtitle: fmt.Sprintf("%d samples", len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time",
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: units[m],
			Type: "value",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "360px",
		}),
	)

	labels := make([]string, len(samples))
	data := make([]opts.LineData, len(samples))
	for i, s := range samples {
		labels[i] = s.Time.Format("15:04:05")
		data[i] = opts.LineData{Value: s.Value}
	}

	line.SetXAxis(labels).
		AddSeries(titles[m], data).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(true),
			ShowSymbol: opts.Bool(false),
		}))
	return line
}

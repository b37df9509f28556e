package scheduler

import (
	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// ChartValues maps a snapshot to chart samples. Missing inputs chart as 0
// so every series keeps advancing; PCIe series are only fed by GPUs that
// report PCIe throughput at all.
func ChartValues(s telemetry.Snapshot) map[series.Metric]float64 {
	util := s.FloatOr(telemetry.MetricUtilization, 0)
	power := s.FloatOr(telemetry.MetricPowerDraw, 0)

	total := s.FloatOr(telemetry.MetricMemoryTotal, 0)
	if total <= 0 {
		total = 1
	}
	memPercent := s.FloatOr(telemetry.MetricMemoryUsed, 0) / total * 100

	efficiency := 0.0
	if power > 0 {
		efficiency = util / power
	}

	values := map[series.Metric]float64{
		series.Utilization:   util,
		series.Temperature:   s.FloatOr(telemetry.MetricTemperature, 0),
		series.Memory:        memPercent,
		series.Power:         power,
		series.FanSpeed:      s.FloatOr(telemetry.MetricFanSpeed, 0),
		series.Efficiency:    efficiency,
		series.ClockGraphics: s.FloatOr(telemetry.MetricClockGraphics, 0),
		series.ClockSM:       s.FloatOr(telemetry.MetricClockSM, 0),
		series.ClockMemory:   s.FloatOr(telemetry.MetricClockMemory, 0),
	}

	if s.Has(telemetry.MetricPCIeRX) || s.Has(telemetry.MetricPCIeTX) {
		values[series.PCIeRX] = s.FloatOr(telemetry.MetricPCIeRX, 0)
		values[series.PCIeTX] = s.FloatOr(telemetry.MetricPCIeTX, 0)
	}
	return values
}

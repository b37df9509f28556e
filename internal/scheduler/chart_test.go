package scheduler

import (
	"testing"

	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/gpuhot/gpuhot/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestChartValues(t *testing.T) {
	snap := telemetry.Snapshot{
		telemetry.MetricUtilization:   telemetry.Number(80),
		telemetry.MetricTemperature:   telemetry.Number(65),
		telemetry.MetricMemoryUsed:    telemetry.Number(2048),
		telemetry.MetricMemoryTotal:   telemetry.Number(8192),
		telemetry.MetricPowerDraw:     telemetry.Number(200),
		telemetry.MetricFanSpeed:      telemetry.String("N/A"),
		telemetry.MetricClockGraphics: telemetry.Number(1800),
		telemetry.MetricPCIeRX:        telemetry.Number(1024),
	}

	v := ChartValues(snap)

	assert.Equal(t, 80.0, v[series.Utilization])
	assert.Equal(t, 65.0, v[series.Temperature])
	assert.Equal(t, 25.0, v[series.Memory])
	assert.Equal(t, 200.0, v[series.Power])
	assert.Equal(t, 0.0, v[series.FanSpeed], "unavailable values chart as 0")
	assert.Equal(t, 0.4, v[series.Efficiency])
	assert.Equal(t, 1800.0, v[series.ClockGraphics])
	assert.Equal(t, 0.0, v[series.ClockSM])
	assert.Equal(t, 1024.0, v[series.PCIeRX])
	assert.Equal(t, 0.0, v[series.PCIeTX])
}

func TestChartValues_EmptySnapshot(t *testing.T) {
	v := ChartValues(telemetry.Snapshot{})

	assert.Equal(t, 0.0, v[series.Memory], "missing memory total does not divide by zero")
	assert.Equal(t, 0.0, v[series.Efficiency])
	_, hasPCIe := v[series.PCIeRX]
	assert.False(t, hasPCIe, "GPUs without PCIe throughput get no PCIe series")
	assert.Len(t, v, 9)
}

package dashboard

import (
	"testing"

	"github.com/gpuhot/gpuhot/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestFormatMemory(t *testing.T) {
	tests := []struct {
		mb   float64
		want string
	}{
		{0, "0MB"},
		{512.4, "512MB"},
		{1023, "1023MB"},
		{1024, "1.0GB"},
		{24576, "24.0GB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMemory(tt.mb))
		})
	}
}

func TestFormatEnergy(t *testing.T) {
	assert.Equal(t, "12.50Wh", FormatEnergy(12.5))
	assert.Equal(t, "999.99Wh", FormatEnergy(999.99))
	assert.Equal(t, "1.50kWh", FormatEnergy(1500))
}

func TestTemperatureStatus(t *testing.T) {
	tests := []struct {
		c    float64
		want string
	}{
		{35, "Cool"},
		{59.9, "Cool"},
		{60, "Normal"},
		{74, "Normal"},
		{75, "Warm"},
		{92, "Warm"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TemperatureStatus(tt.c), "%v°C", tt.c)
	}
}

func TestProcessCount(t *testing.T) {
	assert.Equal(t, "No processes", ProcessCount(0))
	assert.Equal(t, "1 process", ProcessCount(1))
	assert.Equal(t, "7 processes", ProcessCount(7))
}

func TestCoreMetricsShowNA(t *testing.T) {
	s := telemetry.Snapshot{
		telemetry.MetricUtilization: telemetry.Number(30),
		telemetry.MetricTemperature: telemetry.String("N/A"),
	}

	assert.Equal(t, "30%", Percent(s, telemetry.MetricUtilization))
	assert.Equal(t, NA, Celsius(s, telemetry.MetricTemperature))
	assert.Equal(t, NA, Watts(s, telemetry.MetricPowerDraw))
	assert.Equal(t, NA, Memory(s, telemetry.MetricMemoryUsed))
}

func TestThroughput(t *testing.T) {
	s := telemetry.Snapshot{
		telemetry.MetricPCIeRX: telemetry.Number(2048),
		telemetry.MetricPCIeTX: telemetry.Number(0),
	}

	assert.Equal(t, "2.0 MB/s", Throughput(s, telemetry.MetricPCIeRX))
	assert.Equal(t, "0 KB/s", Throughput(s, telemetry.MetricPCIeTX), "a reported zero is a real value")
	assert.Equal(t, NA, Throughput(telemetry.Snapshot{}, telemetry.MetricPCIeRX))
}

func TestClockRowsShowAbsentPCIeAsNA(t *testing.T) {
	rows := clockRows(telemetry.Snapshot{telemetry.MetricUtilization: telemetry.Number(10)})

	assert.Equal(t, []kv{{"PCIe RX", NA}, {"PCIe TX", NA}}, rows)

	rows = clockRows(telemetry.Snapshot{
		telemetry.MetricClockSM: telemetry.Number(1410),
		telemetry.MetricPCIeTX:  telemetry.Number(512),
	})
	assert.Equal(t, []kv{{"SM clock", "1410 MHz"}, {"PCIe RX", NA}, {"PCIe TX", "512 KB/s"}}, rows)
}

func TestMemoryPercent(t *testing.T) {
	s := telemetry.Snapshot{
		telemetry.MetricMemoryUsed:  telemetry.Number(6144),
		telemetry.MetricMemoryTotal: telemetry.Number(24576),
	}
	assert.InDelta(t, 25.0, MemoryPercent(s), 0.001)

	// Missing total does not divide by zero
	assert.Equal(t, 500.0, MemoryPercent(telemetry.Snapshot{telemetry.MetricMemoryUsed: telemetry.Number(5)}))
}

func TestThrottleAndHealthText(t *testing.T) {
	assert.Equal(t, "None", ThrottleText(telemetry.Snapshot{}))
	assert.Equal(t, "None", ThrottleText(telemetry.Snapshot{telemetry.MetricThrottleReasons: telemetry.String("None")}))
	assert.Equal(t, "SW Power Cap", ThrottleText(telemetry.Snapshot{telemetry.MetricThrottleReasons: telemetry.String("SW Power Cap")}))

	assert.Equal(t, "Healthy", HealthText(telemetry.Snapshot{telemetry.MetricResetRequired: telemetry.Bool(false)}))
	assert.Equal(t, "Reset Required!", HealthText(telemetry.Snapshot{telemetry.MetricResetRequired: telemetry.Bool(true)}))
}

func TestExtendedRowsOmitAbsent(t *testing.T) {
	s := telemetry.Snapshot{
		telemetry.MetricPerformanceState: telemetry.String("P2"),
		telemetry.MetricEnergyWh:         telemetry.Number(1500),
		telemetry.MetricComputeMode:      telemetry.String("N/A"),
	}

	rows := extendedRows(s)
	assert.Equal(t, []kv{
		{"Performance state", "P2"},
		{"Energy", "1.50kWh"},
	}, rows)
}

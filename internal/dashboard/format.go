package dashboard

import (
	"fmt"
	"strconv"

	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// NA is shown for a core metric the GPU did not report.
const NA = "N/A"

// FormatMemory formats a size in MB, switching to GB from 1024 MB.
func FormatMemory(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1fGB", mb/1024)
	}
	return fmt.Sprintf("%.0fMB", mb)
}

// FormatEnergy formats an energy total in Wh, switching to kWh from 1000 Wh.
func FormatEnergy(wh float64) string {
	if wh >= 1000 {
		return fmt.Sprintf("%.2fkWh", wh/1000)
	}
	return fmt.Sprintf("%.2fWh", wh)
}

// TemperatureStatus describes a GPU temperature in °C.
func TemperatureStatus(c float64) string {
	switch {
	case c < 60:
		return "Cool"
	case c < 75:
		return "Normal"
	default:
		return "Warm"
	}
}

// ProcessCount is the heading for the process list.
func ProcessCount(n int) string {
	switch n {
	case 0:
		return "No processes"
	case 1:
		return "1 process"
	default:
		return fmt.Sprintf("%d processes", n)
	}
}

// formatNumber drops the fraction from whole numbers so "30" stays "30".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Percent formats a percentage metric, or N/A when absent.
func Percent(s telemetry.Snapshot, name string) string {
	v, ok := s.Float(name)
	if !ok {
		return NA
	}
	return formatNumber(v) + "%"
}

// Celsius formats a temperature metric, or N/A when absent.
func Celsius(s telemetry.Snapshot, name string) string {
	v, ok := s.Float(name)
	if !ok {
		return NA
	}
	return formatNumber(v) + "°C"
}

// Watts formats a power metric, or N/A when absent.
func Watts(s telemetry.Snapshot, name string) string {
	v, ok := s.Float(name)
	if !ok {
		return NA
	}
	return fmt.Sprintf("%.1fW", v)
}

// Memory formats a memory metric in MB, or N/A when absent.
func Memory(s telemetry.Snapshot, name string) string {
	v, ok := s.Float(name)
	if !ok {
		return NA
	}
	return FormatMemory(v)
}

// Throughput formats a PCIe throughput reported in KB/s, or N/A when absent.
func Throughput(s telemetry.Snapshot, name string) string {
	kb, ok := s.Float(name)
	if !ok {
		return NA
	}
	switch {
	case kb >= 1024*1024:
		return fmt.Sprintf("%.1f GB/s", kb/(1024*1024))
	case kb >= 1024:
		return fmt.Sprintf("%.1f MB/s", kb/1024)
	default:
		return fmt.Sprintf("%.0f KB/s", kb)
	}
}

// MemoryPercent returns used/total as a percentage; total defaults to 1.
func MemoryPercent(s telemetry.Snapshot) float64 {
	total := s.FloatOr(telemetry.MetricMemoryTotal, 0)
	if total <= 0 {
		total = 1
	}
	return s.FloatOr(telemetry.MetricMemoryUsed, 0) / total * 100
}

// ThrottleText reports the active throttle reasons, or "None".
func ThrottleText(s telemetry.Snapshot) string {
	reasons, ok := s.Text(telemetry.MetricThrottleReasons)
	if !ok || reasons == "None" {
		return "None"
	}
	return reasons
}

// HealthText reports whether the GPU needs a reset.
func HealthText(s telemetry.Snapshot) string {
	if v, ok := s[telemetry.MetricResetRequired]; ok && v.Truthy() {
		return "Reset Required!"
	}
	return "Healthy"
}

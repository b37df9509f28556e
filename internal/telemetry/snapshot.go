package telemetry

// Metric names used by the server. Only the ones the dashboard reads are
// listed; a Snapshot keeps every field it was sent.
const (
	MetricName               = "name"
	MetricUUID               = "uuid"
	MetricDriverVersion      = "driver_version"
	MetricBrand              = "brand"
	MetricArchitecture       = "architecture"
	MetricUtilization        = "utilization"
	MetricMemoryUtilization  = "memory_utilization"
	MetricTemperature        = "temperature"
	MetricTemperatureMemory  = "temperature_memory"
	MetricMemoryUsed         = "memory_used"
	MetricMemoryTotal        = "memory_total"
	MetricMemoryFree         = "memory_free"
	MetricPowerDraw          = "power_draw"
	MetricPowerLimit         = "power_limit"
	MetricPowerLimitMin      = "power_limit_min"
	MetricPowerLimitMax      = "power_limit_max"
	MetricFanSpeed           = "fan_speed"
	MetricClockGraphics      = "clock_graphics"
	MetricClockSM            = "clock_sm"
	MetricClockMemory        = "clock_memory"
	MetricClockVideo         = "clock_video"
	MetricClockGraphicsApp   = "clock_graphics_app"
	MetricClockMemoryApp     = "clock_memory_app"
	MetricPCIeRX             = "pcie_rx_throughput"
	MetricPCIeTX             = "pcie_tx_throughput"
	MetricPCIeGen            = "pcie_gen"
	MetricPCIeGenMax         = "pcie_gen_max"
	MetricPCIeWidth          = "pcie_width"
	MetricPerformanceState   = "performance_state"
	MetricComputeMode        = "compute_mode"
	MetricThrottleReasons    = "throttle_reasons"
	MetricEnergyWh           = "energy_consumption_wh"
	MetricEncoderSessions    = "encoder_sessions"
	MetricDecoderSessions    = "decoder_sessions"
	MetricBar1MemoryUsed     = "bar1_memory_used"
	MetricPersistenceMode    = "persistence_mode"
	MetricResetRequired      = "reset_required"
	MetricNVLinkActive       = "nvlink_active_count"
	MetricComputeProcesses   = "compute_processes_count"
	MetricGraphicsProcesses  = "graphics_processes_count"
	MetricFallbackMode       = "_fallback_mode"
)

// Snapshot is one GPU's metrics at one point in time.
type Snapshot map[string]Value

// Has reports whether the named metric is present and not a placeholder.
func (s Snapshot) Has(name string) bool {
	v, ok := s[name]
	return ok && v.Available()
}

// Float returns the named metric as a number when it is available.
func (s Snapshot) Float(name string) (float64, bool) {
	v, ok := s[name]
	if !ok || !v.Available() {
		return 0, false
	}
	return v.Float()
}

// FloatOr returns the named metric, or def when it is missing or not numeric.
func (s Snapshot) FloatOr(name string, def float64) float64 {
	if f, ok := s.Float(name); ok {
		return f
	}
	return def
}

// Text returns the display form of the named metric when it is available.
func (s Snapshot) Text(name string) (string, bool) {
	v, ok := s[name]
	if !ok || !v.Available() {
		return "", false
	}
	return v.Text(), true
}

// TextOr returns the display form of the named metric, or def.
func (s Snapshot) TextOr(name, def string) string {
	if t, ok := s.Text(name); ok {
		return t
	}
	return def
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

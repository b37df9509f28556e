package config

import "time"

// CurrentConfigVersion is the config schema version this build understands.
const CurrentConfigVersion = 1

// Config is the gpuhot configuration, loaded from .gpuhot.yaml.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Server    string          `yaml:"server" mapstructure:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect" mapstructure:"reconnect"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Record    RecordConfig    `yaml:"record" mapstructure:"record"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// ReconnectConfig controls the fixed-interval reconnect policy.
type ReconnectConfig struct {
	// Delay between automatic reconnect attempts.
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
	// MaxAttempts before the client gives up and waits for a manual retry.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// DialTimeout bounds a single websocket handshake.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// DashboardConfig controls update scheduling and display.
type DashboardConfig struct {
	// ThrottleInterval is the minimum time between text refreshes of one GPU.
	ThrottleInterval time.Duration `yaml:"throttle_interval" mapstructure:"throttle_interval"`
	// ScrollPause is how long scrolling must stop before updates resume.
	ScrollPause time.Duration `yaml:"scroll_pause" mapstructure:"scroll_pause"`
	// FrameInterval is the delay between a queued update and its flush.
	FrameInterval time.Duration `yaml:"frame_interval" mapstructure:"frame_interval"`
	// HistorySize is the number of samples kept per chart series.
	HistorySize int              `yaml:"history_size" mapstructure:"history_size"`
	Thresholds  ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdsConfig holds percentage levels for warning/critical coloring.
type ThresholdsConfig struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// RecordConfig enables Parquet recording of accepted snapshots.
type RecordConfig struct {
	// Path of the Parquet file. Empty disables recording.
	Path      string `yaml:"path" mapstructure:"path"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ExportConfig controls HTML chart export.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	// Addr to listen on, e.g. ":9101". Empty disables the endpoint.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server:  "ws://localhost:1312/socket.io/",
		Reconnect: ReconnectConfig{
			Delay:       2 * time.Second,
			MaxAttempts: 10,
			DialTimeout: 5 * time.Second,
		},
		Dashboard: DashboardConfig{
			ThrottleInterval: time.Second,
			ScrollPause:      100 * time.Millisecond,
			FrameInterval:    16 * time.Millisecond,
			HistorySize:      120,
			Thresholds: ThresholdsConfig{
				Warning:  70,
				Critical: 90,
			},
		},
		Record: RecordConfig{
			BatchSize: 64,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

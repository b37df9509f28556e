package config

import (
	"os"

	"github.com/gpuhot/gpuhot/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations as strings, so written files
// read "2s" instead of nanosecond integers.
type fileConfig struct {
	Version   int    `yaml:"version"`
	Server    string `yaml:"server"`
	Reconnect struct {
		Delay       string `yaml:"delay"`
		MaxAttempts int    `yaml:"max_attempts"`
		DialTimeout string `yaml:"dial_timeout"`
	} `yaml:"reconnect"`
	Dashboard struct {
		ThrottleInterval string           `yaml:"throttle_interval"`
		ScrollPause      string           `yaml:"scroll_pause"`
		FrameInterval    string           `yaml:"frame_interval"`
		HistorySize      int              `yaml:"history_size"`
		Thresholds       ThresholdsConfig `yaml:"thresholds"`
	} `yaml:"dashboard"`
	Record  RecordConfig  `yaml:"record"`
	Export  ExportConfig  `yaml:"export"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Marshal renders cfg as YAML in the same layout Load reads.
func Marshal(cfg *Config) ([]byte, error) {
	var fc fileConfig
	fc.Version = cfg.Version
	fc.Server = cfg.Server
	fc.Reconnect.Delay = cfg.Reconnect.Delay.String()
	fc.Reconnect.MaxAttempts = cfg.Reconnect.MaxAttempts
	fc.Reconnect.DialTimeout = cfg.Reconnect.DialTimeout.String()
	fc.Dashboard.ThrottleInterval = cfg.Dashboard.ThrottleInterval.String()
	fc.Dashboard.ScrollPause = cfg.Dashboard.ScrollPause.String()
	fc.Dashboard.FrameInterval = cfg.Dashboard.FrameInterval.String()
	fc.Dashboard.HistorySize = cfg.Dashboard.HistorySize
	fc.Dashboard.Thresholds = cfg.Dashboard.Thresholds
	fc.Record = cfg.Record
	fc.Export = cfg.Export
	fc.Metrics = cfg.Metrics

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config",
			"This is a bug; please report it")
	}
	return data, nil
}

// WriteFile writes cfg to path as YAML.
func WriteFile(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check write permissions for the directory")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".gpuhot.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/gpuhot"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. GPUHOT_SERVER.
	EnvPrefix = "GPUHOT"
)

// Load reads config from the specified path. An empty path loads defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'gpuhot init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .gpuhot.yaml in current directory
// 3. .gpuhot.yaml in parent directories (stops at git root or home)
// 4. ~/.config/gpuhot/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		source := path
		if source == "" {
			source = "your GPUHOT_* environment variables"
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+source)
	}

	cfg.Record.Path = ExpandPath(cfg.Record.Path)
	cfg.Export.Dir = ExpandPath(cfg.Export.Dir)

	return cfg, nil
}

// setDefaults registers every key with viper. AutomaticEnv only applies to
// keys viper already knows about, so this also enables GPUHOT_* overrides.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("server", d.Server)
	v.SetDefault("reconnect.delay", d.Reconnect.Delay.String())
	v.SetDefault("reconnect.max_attempts", d.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.dial_timeout", d.Reconnect.DialTimeout.String())
	v.SetDefault("dashboard.throttle_interval", d.Dashboard.ThrottleInterval.String())
	v.SetDefault("dashboard.scroll_pause", d.Dashboard.ScrollPause.String())
	v.SetDefault("dashboard.frame_interval", d.Dashboard.FrameInterval.String())
	v.SetDefault("dashboard.history_size", d.Dashboard.HistorySize)
	v.SetDefault("dashboard.thresholds.warning", d.Dashboard.Thresholds.Warning)
	v.SetDefault("dashboard.thresholds.critical", d.Dashboard.Thresholds.Critical)
	v.SetDefault("record.path", d.Record.Path)
	v.SetDefault("record.batch_size", d.Record.BatchSize)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

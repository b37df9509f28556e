package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gpuhot/gpuhot/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but gpuhot only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade gpuhot, or lower the version in .gpuhot.yaml")
	}

	if _, err := NormalizeServerURL(cfg.Server); err != nil {
		return err
	}

	if err := validateReconnect(cfg.Reconnect); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'reconnect' section in your .gpuhot.yaml.")
	}

	if err := validateDashboard(cfg.Dashboard); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'dashboard' section in your .gpuhot.yaml.")
	}

	if cfg.Record.Path != "" && cfg.Record.BatchSize < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("record.batch_size must be at least 1, got %d", cfg.Record.BatchSize),
			"Set record.batch_size to a positive number, like 64.")
	}

	return nil
}

func validateReconnect(r ReconnectConfig) error {
	if r.Delay <= 0 {
		return fmt.Errorf("reconnect.delay must be positive, got %s", r.Delay)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts can't be negative, got %d", r.MaxAttempts)
	}
	if r.DialTimeout <= 0 {
		return fmt.Errorf("reconnect.dial_timeout must be positive, got %s", r.DialTimeout)
	}
	return nil
}

func validateDashboard(d DashboardConfig) error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"dashboard.throttle_interval", d.ThrottleInterval},
		{"dashboard.scroll_pause", d.ScrollPause},
		{"dashboard.frame_interval", d.FrameInterval},
	}
	for _, dur := range durations {
		if dur.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", dur.name, dur.value)
		}
	}

	if d.HistorySize < 2 {
		return fmt.Errorf("dashboard.history_size must be at least 2, got %d", d.HistorySize)
	}

	t := d.Thresholds
	if t.Warning < 0 || t.Warning > 100 || t.Critical < 0 || t.Critical > 100 {
		return fmt.Errorf("dashboard.thresholds must be between 0 and 100 (warning %d, critical %d)", t.Warning, t.Critical)
	}
	if t.Warning >= t.Critical {
		return fmt.Errorf("dashboard.thresholds.warning (%d) must be below critical (%d)", t.Warning, t.Critical)
	}
	return nil
}

// NormalizeServerURL turns a user-supplied server address into a websocket
// URL. http(s) URLs and bare host:port map to ws(s) on the /socket.io/ path
// the telemetry server listens on; explicit ws(s) URLs keep their path.
func NormalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New(errors.ErrConfig,
			"No telemetry server configured",
			"Pass a server URL to 'gpuhot watch', or set 'server' in .gpuhot.yaml")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid server URL %q", raw),
			"Use a URL like http://gpu-box:1312 or ws://gpu-box:1312/socket.io/")
	}

	switch u.Scheme {
	case "ws", "wss":
		if u.Path == "" {
			u.Path = "/socket.io/"
		}
	case "http":
		u.Scheme = "ws"
		u.Path = "/socket.io/"
	case "https":
		u.Scheme = "wss"
		u.Path = "/socket.io/"
	default:
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Unsupported server URL scheme %q", u.Scheme),
			"Use http, https, ws or wss")
	}

	return u.String(), nil
}

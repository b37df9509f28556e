package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gpuhot/gpuhot/internal/config"
	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/dashboard"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/gpuhot/gpuhot/internal/metrics"
	"github.com/gpuhot/gpuhot/internal/record"
	"github.com/gpuhot/gpuhot/internal/scheduler"
	"github.com/gpuhot/gpuhot/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const debugLogFile = "gpuhot-debug.log"

// WatchOptions holds per-run overrides for the watch command. Zero values
// leave the config untouched.
type WatchOptions struct {
	Server      string
	Throttle    time.Duration
	Record      string
	MetricsAddr string
	ExportDir   string
}

var watchOpts WatchOptions

var watchCmd = &cobra.Command{
	Use:   "watch [server]",
	Short: "Show the live GPU dashboard",
	Long: `Connect to a GPU telemetry server and show a live dashboard.

The server can be a bare host:port, an http(s) URL or a ws(s) URL. Without
an argument the 'server' key from .gpuhot.yaml is used.

Keys: arrows/jk move, enter opens the detail view, e exports the selected
GPU's charts to HTML, r retries after the connection gives up, q quits.

Examples:
  gpuhot watch
  gpuhot watch gpu-box:1312
  gpuhot watch --record runs/today.parquet
  gpuhot watch --metrics-addr :9101`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := watchOpts
		if len(args) == 1 {
			opts.Server = args[0]
		}
		return watchCommand(opts)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchOpts.Throttle, "throttle", 0, "minimum time between text refreshes of one GPU (e.g. 500ms)")
	watchCmd.Flags().StringVar(&watchOpts.Record, "record", "", "record accepted snapshots to this Parquet file")
	watchCmd.Flags().StringVar(&watchOpts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9101)")
	watchCmd.Flags().StringVar(&watchOpts.ExportDir, "export-dir", "", "directory for HTML chart exports")
}

// applyWatchOptions merges flag overrides into cfg, validates the result and
// returns the websocket URL to dial.
func applyWatchOptions(cfg *config.Config, opts WatchOptions) (string, error) {
	if opts.Server != "" {
		cfg.Server = opts.Server
	}
	if opts.Throttle != 0 {
		cfg.Dashboard.ThrottleInterval = opts.Throttle
	}
	if opts.Record != "" {
		cfg.Record.Path = config.ExpandPath(opts.Record)
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if opts.ExportDir != "" {
		cfg.Export.Dir = config.ExpandPath(opts.ExportDir)
	}

	if err := config.Validate(cfg); err != nil {
		return "", err
	}
	return config.NormalizeServerURL(cfg.Server)
}

// dashboardOptions translates config into dashboard options.
func dashboardOptions(cfg *config.Config, server string, log logger.Logger) dashboard.Options {
	return dashboard.Options{
		Server: server,
		Scheduler: scheduler.Config{
			ThrottleInterval: cfg.Dashboard.ThrottleInterval,
			ScrollPause:      cfg.Dashboard.ScrollPause,
			HistorySize:      cfg.Dashboard.HistorySize,
			Reconnect: conn.Policy{
				Delay:       cfg.Reconnect.Delay,
				MaxAttempts: cfg.Reconnect.MaxAttempts,
			},
		},
		FrameInterval: cfg.Dashboard.FrameInterval,
		Thresholds: dashboard.Thresholds{
			Warning:  cfg.Dashboard.Thresholds.Warning,
			Critical: cfg.Dashboard.Thresholds.Critical,
		},
		ExportDir: cfg.Export.Dir,
		Logger:    log,
	}
}

// watchCommand runs the dashboard until the user quits.
func watchCommand(opts WatchOptions) error {
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}

	server, err := applyWatchOptions(cfg, opts)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrConfig,
			"gpuhot watch needs an interactive terminal",
			"Run it directly in a terminal; use --record to capture telemetry unattended.")
	}

	// The dashboard owns the terminal, so log lines go to a file or nowhere.
	if debugFlag {
		_ = os.Setenv(logger.DebugEnv, "1")
		f, err := tea.LogToFile(debugLogFile, "gpuhot")
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to open "+debugLogFile,
				"Check write permissions for the current directory")
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	lg := logger.NewEnvLogger("[gpuhot]")
	logger.SetDefault(lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsDone <-chan error
	if cfg.Metrics.Addr != "" {
		metricsDone, err = metrics.Serve(ctx, cfg.Metrics.Addr, lg)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Can't serve metrics on "+cfg.Metrics.Addr,
				"Pick a free address with --metrics-addr, e.g. :9101")
		}
	}

	dopts := dashboardOptions(cfg, server, lg)

	var rec *record.Recorder
	if cfg.Record.Path != "" {
		rec, err = record.New(cfg.Record.Path, cfg.Record.BatchSize, record.WithLogger(lg))
		if err != nil {
			return err
		}
		dopts.Observers = append(dopts.Observers, rec)
	}

	client := transport.New(server,
		transport.WithDialTimeout(cfg.Reconnect.DialTimeout),
		transport.WithLogger(lg))

	model := dashboard.New(client, dopts)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus())
	_, runErr := p.Run()

	_ = client.Close()
	cancel()
	if metricsDone != nil {
		if err := <-metricsDone; err != nil {
			lg.Warn("metrics server: %v", err)
		}
	}

	if rec != nil {
		if err := rec.Close(); err != nil && runErr == nil {
			return err
		}
		fmt.Printf("Recorded %d snapshots to %s (session %s)\n", rec.Written(), rec.Path(), rec.Session())
	}

	if runErr != nil {
		return errors.WrapWithCode(runErr, errors.ErrConfig,
			"The dashboard stopped unexpectedly",
			"Run with --debug and check "+debugLogFile)
	}
	return nil
}

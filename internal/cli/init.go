package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/gpuhot/gpuhot/internal/config"
	"github.com/gpuhot/gpuhot/internal/dashboard"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/spf13/cobra"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Server         string // Pre-specified telemetry server
	Dir            string // Directory to write the config into; defaults to "."
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
}

var (
	initServerFlag         string
	initForce              bool
	initNonInteractiveFlag bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .gpuhot.yaml configuration",
	Long: `Create a .gpuhot.yaml file in the current directory.

Prompts for the telemetry server and optional recording and metrics
settings. In CI, or with --non-interactive, defaults are used and the
server comes from --server or GPUHOT_SERVER.

Examples:
  gpuhot init
  gpuhot init --server http://gpu-box:1312 --non-interactive
  gpuhot init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := getInitDefaults()
		opts := InitOptions{
			Server:         initServerFlag,
			Overwrite:      initForce,
			NonInteractive: initNonInteractiveFlag || defaults.NonInteractive,
		}
		if opts.Server == "" {
			opts.Server = defaults.Server
		}
		return Init(opts)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initServerFlag, "server", "", "telemetry server URL")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&initNonInteractiveFlag, "non-interactive", false, "skip prompts and use defaults")
}

// initDefaults holds values picked up from the environment.
type initDefaults struct {
	Server         string
	NonInteractive bool
}

func getInitDefaults() initDefaults {
	return initDefaults{
		Server:         os.Getenv(config.EnvPrefix + "_SERVER"),
		NonInteractive: os.Getenv(config.EnvPrefix+"_NON_INTERACTIVE") == "true" || os.Getenv("CI") != "",
	}
}

// Init creates a new .gpuhot.yaml configuration file.
func Init(opts InitOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if opts.Server != "" {
		cfg.Server = opts.Server
	}

	if !opts.NonInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	server, err := config.NormalizeServerURL(cfg.Server)
	if err != nil {
		return err
	}
	cfg.Server = server

	if err := config.Validate(cfg); err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	header := `# gpuhot configuration
# Run 'gpuhot watch' to open the dashboard.

`
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	check := dashboard.StatusConnectedStyle.Render(dashboard.GlyphOnline)
	fmt.Printf("%s Created %s\n\n", check, configPath)
	fmt.Println("Next steps:")
	fmt.Println("  gpuhot watch           - Open the dashboard")
	fmt.Println("  gpuhot watch --record  - Record snapshots while watching")

	return nil
}

// promptConfig asks for the settings most users change.
func promptConfig(cfg *config.Config) error {
	server := cfg.Server
	var recordPath, metricsAddr string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telemetry server").
				Description("host:port, http(s) URL, or ws(s) URL of the GPU telemetry server").
				Placeholder("http://gpu-box:1312").
				Value(&server).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("server is required")
					}
					_, err := config.NormalizeServerURL(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Record snapshots to (optional)").
				Description("Parquet file that every accepted snapshot is appended to").
				Placeholder("~/gpuhot/run.parquet (leave empty to skip)").
				Value(&recordPath),
			huh.NewInput().
				Title("Prometheus metrics address (optional)").
				Placeholder(":9101 (leave empty to skip)").
				Value(&metricsAddr),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}

	cfg.Server = strings.TrimSpace(server)
	cfg.Record.Path = strings.TrimSpace(recordPath)
	cfg.Metrics.Addr = strings.TrimSpace(metricsAddr)
	return nil
}

package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile   string
	debugFlag bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "gpuhot",
	Short: "Live GPU telemetry in your terminal",
	Long: `gpuhot connects to a GPU telemetry server and shows utilization,
temperature, memory and power for every GPU it reports, in a terminal
dashboard that keeps up without burning CPU on redraws.

Examples:
  gpuhot watch
  gpuhot watch http://gpu-box:1312
  gpuhot init`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode(noColor || os.Getenv("NO_COLOR") != "")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gpuhot.yaml, searched upward)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "write debug logs to "+debugLogFile)
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if isUnknownCommandError(err) {
			if name := extractUnknownCommand(err); looksLikeServer(name) {
				fmt.Fprintf(os.Stderr, "\nDid you mean 'gpuhot watch %s'?\n", name)
			} else {
				fmt.Fprintf(os.Stderr, "\nRun 'gpuhot --help' to see available commands.\n")
			}
		}
		os.Exit(1)
	}
}

// applyColorMode forces plain output when color is disabled.
func applyColorMode(disabled bool) {
	if disabled {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var unknownCommandRe = regexp.MustCompile(`unknown command "([^"]+)"`)

// isUnknownCommandError reports whether err is cobra's unknown command or
// flag error.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand returns the command name from cobra's unknown
// command error, or "" if err is some other error.
func extractUnknownCommand(err error) string {
	m := unknownCommandRe.FindStringSubmatch(err.Error())
	if m == nil {
		return ""
	}
	return m[1]
}

// looksLikeServer reports whether a mistyped command is really a server
// address, as in "gpuhot gpu-box:1312".
func looksLikeServer(s string) bool {
	return strings.Contains(s, "://") || strings.Contains(s, ":")
}

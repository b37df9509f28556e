// Package cli implements the gpuhot command-line interface.
//
// Each Cobra command is a thin wrapper that parses flags and hands off to a
// command function, which loads config, wires components together and
// returns structured errors from internal/errors.
//
// # Command Structure
//
//	gpuhot watch [server]   - Live GPU dashboard
//	gpuhot init             - Create .gpuhot.yaml config
//	gpuhot version          - Print build information
//	gpuhot completion       - Generate shell completion scripts
//
// # Flag Handling
//
// Global flags (--config, --debug, --no-color) live on the root command.
// Command flags override the matching config keys for a single run; they
// never write back to the config file.
package cli

// Package flags defines canonical CLI flag names shared across the CLI and
// batch engine. Keeping these as constants helps avoid drift between Cobra
// flag wiring and other code paths that need to reference flags (e.g. error
// messages pointing the user at a flag).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Paths.Input, flags.FlagInput, "", "...")
//	arg := "--" + flags.FlagInput
package flags

const (
	// Paths
	FlagInput  = "input"
	FlagOutput = "output"
	FlagLogDir = "log-dir"

	// Run scope
	FlagDate  = "date"
	FlagLimit = "limit"
	FlagStock = "stock"
	FlagName  = "name"

	// Provider
	FlagToken   = "token"
	FlagBaseURL = "base-url"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagWorkers = "workers"
	FlagPause   = "pause"
	FlagTimeout = "timeout"
)

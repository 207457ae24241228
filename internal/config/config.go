package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect run
	// behavior, keep the CLI flags in internal/cli in sync.
	Paths    Paths
	Run      Run
	Provider Provider
	Output   Output
	Runtime  Runtime
}

type Paths struct {
	// Input is the directory of per-stock seed CSV files (see --input).
	Input string

	// Output is the directory enriched CSVs are written to (see --output).
	Output string

	// LogDir is where the failure ledger and failure summary are written
	// (see --log-dir).
	LogDir string
}

type Run struct {
	// Date is the dataset end date in YYYYMMDD form (see --date).
	// Empty means today.
	Date string

	// Limit truncates the discovered stock list to the first N entries
	// (see --limit). 0 means unlimited.
	Limit int

	// Stock is the provider-format stock code for single mode (see --stock).
	Stock string

	// StockName is the display name for single mode (see --name).
	StockName string
}

type Provider struct {
	// Token is the data provider API token (see --token).
	// If empty, FACTORPIPE_PROVIDER_TOKEN is consulted.
	Token string

	// BaseURL is the data provider API base URL (see --base-url).
	// If empty, FACTORPIPE_PROVIDER_BASE_URL is consulted.
	BaseURL string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see
	// --console-format). Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Out writes a structured event stream to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out
	// file extension.
	OutFormat string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Workers bounds concurrently in-flight stock processing (see --workers).
	// Must be >= 1. Retry mode ignores it and is always serial.
	Workers int

	// Pause is the fixed delay between consecutive units during a retry run
	// (see --pause). Must be >= 0.
	Pause time.Duration

	// Timeout is the global run timeout (see --timeout). Must be > 0.
	Timeout time.Duration

	// Verbose enables detailed diagnostics (prints every provider API call).
	Verbose bool
}

// providerEnv mirrors Provider for environment-variable overlay.
// envconfig keys are prefixed FACTORPIPE_PROVIDER_.
type providerEnv struct {
	Token   string `envconfig:"TOKEN"`
	BaseURL string `envconfig:"BASE_URL"`
}

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Workers: 4,
			Pause:   time.Second,
			Timeout: 2 * time.Hour,
		},
	}
}

// Validate normalizes the config in place and reports the first problem.
// Values not set on the command line are backfilled from the environment
// (provider credentials) or derived defaults (date = today).
func (c *Config) Validate() error {
	// Environment overlay: flags win, environment fills the gaps.
	var env providerEnv
	if err := envconfig.Process("factorpipe_provider", &env); err != nil {
		return fmt.Errorf("read provider environment: %w", err)
	}
	if c.Provider.Token == "" {
		c.Provider.Token = strings.TrimSpace(env.Token)
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = strings.TrimSpace(env.BaseURL)
	}

	// Date validation
	c.Run.Date = strings.TrimSpace(c.Run.Date)
	if c.Run.Date == "" {
		c.Run.Date = time.Now().Format("20060102")
	}
	if _, err := time.Parse("20060102", c.Run.Date); err != nil {
		return fmt.Errorf("invalid --date %q: expected YYYYMMDD", c.Run.Date)
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat != "" && c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported --out-format: %s (must be one of: json, ndjson)", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Run.Limit < 0 {
		return errors.New("--limit must be >= 0")
	}
	if c.Runtime.Workers <= 0 {
		return errors.New("--workers must be >= 1")
	}
	if c.Runtime.Pause < 0 {
		return errors.New("--pause must be >= 0")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

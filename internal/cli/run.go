package cli

import (
	"context"
	"fmt"
	"os"

	"factorpipe/internal/batch"
	"factorpipe/internal/config"
	"factorpipe/internal/flags"
	"factorpipe/internal/ledger"
	"factorpipe/internal/output"
	"factorpipe/internal/processor"
	"factorpipe/internal/provider"
	"factorpipe/internal/source"

	"github.com/spf13/cobra"
)

var cfg = config.New()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every stock discovered in the seed directory",
	Long: `Run the full batch: scan the seed directory, process every discovered
stock concurrently, write one enriched CSV per stock, and record failures in
the day-scoped failure ledger for later retry.

A fresh run clears previously generated artifacts from the output directory
and resets today's failure ledger before dispatching any work.

Output:
	Console output is controlled by --console-format (default: text).
	A structured event stream can additionally be written via --out (json or
	ndjson, inferred from the file extension unless --out-format is given).
	NDJSON mode emits one JSON object per line with a "type" field
	(run.started, unit.finished, run.finished).

Exit codes:
	0 = every stock succeeded
	1 = run completed but some stocks failed (see the failure ledger)
	3 = fatal setup error (run did not dispatch)

Examples:
  export FACTORPIPE_PROVIDER_TOKEN="<your_token>"
  export FACTORPIPE_PROVIDER_BASE_URL="https://data.example.com"
  factorpipe run --input ./raw --output ./enhanced --log-dir ./log

  # Small smoke run
  factorpipe run --input ./raw --output ./enhanced --limit 10 --workers 2

  # Machine-readable event stream
  factorpipe run --input ./raw --output ./enhanced --no-console --out events.ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		if cfg.Paths.Input == "" {
			fmt.Fprintf(os.Stderr, "Error: --%s is required\n", flags.FlagInput)
			os.Exit(3)
		}
		if cfg.Paths.Output == "" {
			fmt.Fprintf(os.Stderr, "Error: --%s is required\n", flags.FlagOutput)
			os.Exit(3)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		session := mustSession(ctx)
		outMgr, summary := mustOutputManager()

		eng := &batch.Engine{
			Proc: &processor.StockProcessor{
				Data:    session,
				OutDir:  cfg.Paths.Output,
				EndDate: cfg.Run.Date,
			},
			Source:      source.New(cfg.Paths.Input),
			Ledger:      ledger.New(cfg.Paths.LogDir),
			Out:         outMgr,
			Workers:     cfg.Runtime.Workers,
			Limit:       cfg.Run.Limit,
			OutputDir:   cfg.Paths.Output,
			SummaryPath: summary.Path(),
		}
		code := eng.RunBatch(ctx)
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output sinks: %v\n", err)
		}
		os.Exit(code)
	},
}

// mustSession builds the provider session and verifies it before any work is
// dispatched: an unreachable or unauthenticated provider aborts the run with
// the previous ledger and output directory untouched.
func mustSession(ctx context.Context) *provider.Session {
	if cfg.Provider.BaseURL == "" {
		fmt.Fprintf(os.Stderr, "Error: provider base URL is required (set --%s or FACTORPIPE_PROVIDER_BASE_URL)\n", flags.FlagBaseURL)
		os.Exit(3)
	}
	session, err := provider.NewSession(ctx, cfg.Provider.BaseURL, cfg.Provider.Token,
		provider.WithVerbose(cfg.Runtime.Verbose, nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create provider session: %v\n", err)
		os.Exit(3)
	}
	if err := session.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: provider is unreachable or rejected credentials: %v\n", err)
		os.Exit(3)
	}
	return session
}

func mustOutputManager() (*output.Manager, *output.SummarySink) {
	outMgr := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat)); err != nil {
			fatalSinks(outMgr, err)
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			fatalSinks(outMgr, err)
		}
		if err := outMgr.AddSink(fs); err != nil {
			fatalSinks(outMgr, err)
		}
	}

	summary := output.NewSummarySink(cfg.Paths.LogDir)
	if err := outMgr.AddSink(summary); err != nil {
		fatalSinks(outMgr, err)
	}

	return outMgr, summary
}

func fatalSinks(outMgr *output.Manager, err error) {
	outMgr.Close()
	fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
	os.Exit(3)
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Paths
	runCmd.Flags().StringVar(&cfg.Paths.Input, flags.FlagInput, "", "Directory of per-stock seed CSV files")
	runCmd.Flags().StringVar(&cfg.Paths.Output, flags.FlagOutput, "", "Directory enriched CSVs are written to")
	runCmd.Flags().StringVar(&cfg.Paths.LogDir, flags.FlagLogDir, "log", "Directory for the failure ledger and failure summary")

	// Run scope
	runCmd.Flags().StringVar(&cfg.Run.Date, flags.FlagDate, "", "Dataset end date as YYYYMMDD (default: today)")
	runCmd.Flags().IntVar(&cfg.Run.Limit, flags.FlagLimit, 0, "Process only the first N discovered stocks (0 = unlimited)")

	// Provider
	runCmd.Flags().StringVar(&cfg.Provider.Token, flags.FlagToken, "", "Provider API token (default: FACTORPIPE_PROVIDER_TOKEN)")
	runCmd.Flags().StringVar(&cfg.Provider.BaseURL, flags.FlagBaseURL, "", "Provider API base URL (default: FACTORPIPE_PROVIDER_BASE_URL)")

	// Output
	runCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	runCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write a structured event stream to this path")
	runCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	runCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")

	// Runtime
	runCmd.Flags().IntVar(&cfg.Runtime.Workers, flags.FlagWorkers, 4, "Concurrent workers (default: 4)")
	runCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 2h)")
}

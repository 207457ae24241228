package cli

import (
	"context"
	"fmt"
	"os"

	"factorpipe/internal/batch"
	"factorpipe/internal/flags"
	"factorpipe/internal/ledger"
	"factorpipe/internal/processor"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Serially re-process the stocks in today's failure ledger",
	Long: `Re-process exactly the stocks recorded in today's failure ledger, one at
a time, with a fixed pause between stocks.

Retry is deliberately serial: most recorded failures come from provider rate
limiting, so the retry pass removes concurrency instead of repeating it. The
ledger is reset at the start and rewritten at the end with whatever still
fails, so it always reflects only the latest attempt.

The output directory is NOT cleared: retry only adds or overwrites artifacts
for previously failing stocks.

Exit codes:
	0 = ledger empty, or every retried stock succeeded
	1 = some stocks still failed (ledger rewritten)
	3 = fatal setup error

Examples:
  factorpipe retry --output ./enhanced --log-dir ./log
  factorpipe retry --output ./enhanced --log-dir ./log --pause 2s
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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
			Ledger:      ledger.New(cfg.Paths.LogDir),
			Out:         outMgr,
			Pause:       cfg.Runtime.Pause,
			SummaryPath: summary.Path(),
		}
		code := eng.RunRetry(ctx)
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output sinks: %v\n", err)
		}
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)

	retryCmd.Flags().StringVar(&cfg.Paths.Output, flags.FlagOutput, "", "Directory enriched CSVs are written to")
	retryCmd.Flags().StringVar(&cfg.Paths.LogDir, flags.FlagLogDir, "log", "Directory for the failure ledger and failure summary")
	retryCmd.Flags().StringVar(&cfg.Run.Date, flags.FlagDate, "", "Dataset end date as YYYYMMDD (default: today)")
	retryCmd.Flags().StringVar(&cfg.Provider.Token, flags.FlagToken, "", "Provider API token (default: FACTORPIPE_PROVIDER_TOKEN)")
	retryCmd.Flags().StringVar(&cfg.Provider.BaseURL, flags.FlagBaseURL, "", "Provider API base URL (default: FACTORPIPE_PROVIDER_BASE_URL)")
	retryCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	retryCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write a structured event stream to this path")
	retryCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	retryCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")
	retryCmd.Flags().DurationVar(&cfg.Runtime.Pause, flags.FlagPause, cfg.Runtime.Pause, "Pause between consecutive stocks (default: 1s)")
	retryCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 2h)")
}

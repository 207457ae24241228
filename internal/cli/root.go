package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "factorpipe",
	Short: "Enrich per-stock seed CSVs with daily and quarterly market-data factors",
	Long: `factorpipe reads a directory of per-stock seed CSV files, fetches factor
data for each stock from the market-data provider, and writes one enriched
CSV per stock into an output directory.

Failures never abort a run: each failing stock is recorded in a day-scoped
failure ledger, and a later retry run re-processes exactly the ledger's
contents, serially, without rescanning the input.

Examples:
	# Show available commands and global flags
	factorpipe --help

	# Full batch run over a seed directory
	factorpipe run --input ./raw --output ./enhanced --log-dir ./log

	# Serial retry of everything in today's failure ledger
	factorpipe retry --output ./enhanced --log-dir ./log

	# Process a single stock
	factorpipe single --stock 000001.XSHE --name "Ping An Bank" --output ./enhanced

Authentication:
	The provider token is read from --token or FACTORPIPE_PROVIDER_TOKEN; the
	API base URL from --base-url or FACTORPIPE_PROVIDER_BASE_URL.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every provider API call and full error details)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"factorpipe/internal/ledger"
	"factorpipe/internal/output"
	"factorpipe/internal/processor"
	"factorpipe/internal/source"
)

func exitCodeForRun(fatal, failures bool) int {
	// Exit code contract:
	// 0 = clean run, every unit succeeded
	// 1 = run completed but some units failed (recorded in the ledger)
	// 3 = fatal setup error (run did not dispatch)
	if fatal {
		return 3
	}
	if failures {
		return 1
	}
	return 0
}

// Engine wires the unit source, the failure ledger, the processor, and the
// output sinks into full batch and retry runs.
type Engine struct {
	Proc      Processor
	Source    *source.Source
	Ledger    *ledger.Ledger
	Out       *output.Manager
	Workers   int
	Pause     time.Duration
	Limit     int
	OutputDir string

	// SummaryPath, when set, is referenced in the final tally if the run
	// recorded failures (the summary sink writes it on close).
	SummaryPath string
}

// RunBatch performs a full run: scan the seed directory, clear previous
// artifacts, reset the ledger, process everything concurrently, persist
// failures, report. Returns the process exit code.
func (e *Engine) RunBatch(ctx context.Context) int {
	units, err := e.Source.ListAll(e.Limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving stock list: %v\n", err)
		return exitCodeForRun(true, false)
	}
	if len(units) == 0 {
		fmt.Fprintln(os.Stderr, "No seed CSV files found; nothing to do.")
		return exitCodeForRun(false, false)
	}

	// Setup failures abort before any worker is dispatched, leaving the
	// previous ledger and output directory untouched.
	exec, err := NewExecutor(e.Proc, e.Workers, e.Out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating executor: %v\n", err)
		return exitCodeForRun(true, false)
	}
	if err := processor.ClearOutputs(e.OutputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing output directory: %v\n", err)
		return exitCodeForRun(true, false)
	}
	if err := e.Ledger.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error resetting failure ledger: %v\n", err)
		return exitCodeForRun(true, false)
	}

	_ = e.Out.Write(output.Event{Type: "run.started", Mode: "batch", Units: len(units), Workers: e.Workers})

	res := exec.Run(ctx, units)

	// Persist failures before any reporting: the ledger is the durable
	// source of truth for the next retry run.
	if res.FailedCount() > 0 {
		if err := e.Ledger.Write(res.Failed); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing failure ledger: %v\n", err)
			return exitCodeForRun(true, false)
		}
	}

	e.finish(res, "batch")
	return exitCodeForRun(false, res.FailedCount() > 0)
}

// RunRetry performs a serial retry pass over the current ledger contents.
// Returns the process exit code.
func (e *Engine) RunRetry(ctx context.Context) int {
	runner, err := NewRetryRunner(e.Proc, e.Ledger, e.Pause, e.Out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating retry runner: %v\n", err)
		return exitCodeForRun(true, false)
	}

	// Peek first so an empty ledger reports a clean no-op without resetting
	// anything.
	pending, err := source.ListFailed(e.Ledger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading failure ledger: %v\n", err)
		return exitCodeForRun(true, false)
	}
	if len(pending) == 0 {
		fmt.Fprintln(os.Stderr, "Failure ledger is empty; nothing to retry.")
		return exitCodeForRun(false, false)
	}

	_ = e.Out.Write(output.Event{Type: "run.started", Mode: "retry", Units: len(pending), Workers: 1})

	res, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during retry run: %v\n", err)
		return exitCodeForRun(true, false)
	}

	e.finish(res, "retry")
	return exitCodeForRun(false, res.FailedCount() > 0)
}

// finish emits the final tally. State is already durable at this point;
// a sink failure cannot corrupt the run.
func (e *Engine) finish(res Result, mode string) {
	ev := output.Event{
		Type:      "run.finished",
		Mode:      mode,
		Units:     res.Total,
		Succeeded: res.Succeeded,
		Failed:    res.FailedCount(),
		ExitCode:  exitCodeForRun(false, res.FailedCount() > 0),
	}
	if res.FailedCount() > 0 {
		ev.LedgerPath = e.Ledger.Path()
		ev.SummaryPath = e.SummaryPath
	}
	_ = e.Out.Write(ev)
}

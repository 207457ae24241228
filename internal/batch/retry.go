package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factorpipe/internal/ledger"
	"factorpipe/internal/output"
	"factorpipe/internal/source"
)

// RetryRunner re-executes exactly the units currently in the failure ledger,
// one at a time. Retry is deliberately non-parallel: most recorded failures
// come from provider rate limiting, so the retry pass removes concurrency
// and inserts a fixed pause between units instead.
type RetryRunner struct {
	proc  Processor
	led   *ledger.Ledger
	pause time.Duration
	out   *output.Manager
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryRunner(proc Processor, led *ledger.Ledger, pause time.Duration, out *output.Manager) (*RetryRunner, error) {
	if proc == nil {
		return nil, errors.New("processor is nil")
	}
	if led == nil {
		return nil, errors.New("ledger is nil")
	}
	if pause < 0 {
		return nil, fmt.Errorf("pause must be >= 0, got %s", pause)
	}
	return &RetryRunner{
		proc:  proc,
		led:   led,
		pause: pause,
		out:   out,
		now:   time.Now,
		sleep: sleepCtx,
	}, nil
}

// Run reads the ledger, resets it, re-processes each recorded unit serially
// with the configured pause between consecutive units, and writes whatever
// still fails back as the ledger's new content. An empty ledger is a no-op
// success. The returned error is reserved for infrastructure faults (ledger
// I/O); per-unit failures are data in the Result.
func (r *RetryRunner) Run(ctx context.Context) (Result, error) {
	units, err := source.ListFailed(r.led)
	if err != nil {
		return Result{}, err
	}
	res := Result{Total: len(units)}
	if len(units) == 0 {
		return res, nil
	}

	// Reset before re-running so the ledger always reflects only this
	// attempt's outcome, never a union with historical failures.
	if err := r.led.Reset(); err != nil {
		return res, err
	}

	completed := 0
	for i, unit := range units {
		if i > 0 && r.pause > 0 {
			if err := r.sleep(ctx, r.pause); err != nil {
				// Canceled mid-pause: resolve the remaining units as failed
				// so the run still covers the full input.
				for _, left := range units[i:] {
					completed++
					res = r.record(res, left, fmt.Errorf("not started: %w", err), completed)
				}
				break
			}
		}
		completed++
		res = r.record(res, unit, r.safeProcess(ctx, unit), completed)
	}

	if len(res.Failed) > 0 {
		if err := r.led.Write(res.Failed); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *RetryRunner) safeProcess(ctx context.Context, unit source.StockRef) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.proc.Process(ctx, unit)
}

func (r *RetryRunner) record(res Result, unit source.StockRef, err error, completed int) Result {
	ur := output.UnitResult{Unit: unit.Code, Name: unit.Name, Status: output.StatusOK}
	if err != nil {
		ur.Status = output.StatusFailed
		ur.Reason = err.Error()
		res.Failed = append(res.Failed, ledger.Record{
			Code:   unit.Code,
			Name:   unit.Name,
			Reason: err.Error(),
			At:     r.now(),
		})
	} else {
		res.Succeeded++
	}
	if r.out != nil {
		_ = r.out.Write(output.Event{
			Type:       "unit.finished",
			UnitResult: &ur,
			Completed:  completed,
			Units:      res.Total,
		})
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		time.Sleep(d)
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Package batch runs per-stock processing over an arbitrary unit list:
// concurrently with bounded parallelism for a full run, serially with pacing
// for a retry run. It owns all aggregate state for a run and guarantees
// every submitted unit resolves to exactly one success or failure.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"factorpipe/internal/ledger"
	"factorpipe/internal/output"
	"factorpipe/internal/source"
)

// Processor executes one unit of work. A nil return means the unit's output
// artifact is fully written; a non-nil error is the unit's failure reason.
// Implementations must not panic; the executor still contains a panic as a
// failure outcome rather than crashing the batch.
type Processor interface {
	Process(ctx context.Context, unit source.StockRef) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, unit source.StockRef) error

func (f ProcessorFunc) Process(ctx context.Context, unit source.StockRef) error {
	return f(ctx, unit)
}

// unitOutcome is the single message a worker sends for its unit. Workers
// never touch aggregate state; only the draining goroutine does.
type unitOutcome struct {
	unit source.StockRef
	err  error
}

type Executor struct {
	proc    Processor
	workers int
	out     *output.Manager
	now     func() time.Time
}

func NewExecutor(proc Processor, workers int, out *output.Manager) (*Executor, error) {
	if proc == nil {
		return nil, errors.New("processor is nil")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", workers)
	}
	return &Executor{proc: proc, workers: workers, out: out, now: time.Now}, nil
}

// Run executes every unit and blocks until all of them have resolved.
//
// Semantics:
//   - Submission order is input order; completion order is unconstrained.
//   - At most `workers` units are in flight at once.
//   - Exactly one outcome is recorded per unit, including units whose
//     processing panics and units never dispatched because the context was
//     canceled (those fail with the cancellation cause).
//   - Aggregate counters and the failure list are mutated only here, on the
//     goroutine draining worker outcomes.
func (e *Executor) Run(ctx context.Context, units []source.StockRef) Result {
	res := Result{Total: len(units)}
	if len(units) == 0 {
		return res
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes := make(chan unitOutcome)

	go func() {
		defer close(outcomes)

		// Limit in-flight units (favor unit completion).
		sem := make(chan struct{}, e.workers)
		var wg sync.WaitGroup

	scheduleLoop:
		for i, unit := range units {
			select {
			case sem <- struct{}{}:
				// acquired
			case <-ctx.Done():
				// Resolve every unscheduled unit so the run still covers
				// the full input exactly once.
				for _, left := range units[i:] {
					outcomes <- unitOutcome{unit: left, err: fmt.Errorf("not started: %w", context.Cause(ctx))}
				}
				break scheduleLoop
			}

			wg.Add(1)
			go func(unit source.StockRef) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes <- unitOutcome{unit: unit, err: e.safeProcess(ctx, unit)}
			}(unit)
		}

		wg.Wait()
	}()

	completed := 0
	for oc := range outcomes {
		completed++
		res = e.record(res, oc, completed)
	}
	return res
}

// safeProcess is the last containment layer: the processor boundary already
// converts faults to errors, but a panic escaping it must still resolve the
// unit instead of killing the batch.
func (e *Executor) safeProcess(ctx context.Context, unit source.StockRef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.proc.Process(ctx, unit)
}

// record folds one outcome into the aggregate and emits the progress event.
func (e *Executor) record(res Result, oc unitOutcome, completed int) Result {
	ur := output.UnitResult{Unit: oc.unit.Code, Name: oc.unit.Name, Status: output.StatusOK}
	if oc.err != nil {
		ur.Status = output.StatusFailed
		ur.Reason = oc.err.Error()
		res.Failed = append(res.Failed, ledger.Record{
			Code:   oc.unit.Code,
			Name:   oc.unit.Name,
			Reason: oc.err.Error(),
			At:     e.now(),
		})
	} else {
		res.Succeeded++
	}

	if e.out != nil {
		_ = e.out.Write(output.Event{
			Type:       "unit.finished",
			UnitResult: &ur,
			Completed:  completed,
			Units:      res.Total,
		})
	}
	return res
}

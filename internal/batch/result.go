package batch

import "factorpipe/internal/ledger"

// Result is the aggregate outcome of one batch or retry run.
//
// Invariant: Succeeded + len(Failed) == Total, for every input list and
// every worker count. Failed is ordered by completion; the ledger write
// deduplicates by stock code, so duplicate input units resolve to one record
// (last write wins).
type Result struct {
	Total     int
	Succeeded int
	Failed    []ledger.Record
}

func (r Result) FailedCount() int {
	return len(r.Failed)
}

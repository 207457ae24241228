package output

// Status classifies one unit's outcome.
type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAILED"
)

// UnitResult is the outcome record for one stock.
type UnitResult struct {
	Unit   string `json:"unit"`
	Name   string `json:"name,omitempty"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Event is a lifecycle record for the structured output streams.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - unit.finished
// - run.finished
//
// JSON mode remains an aggregate of UnitResult values.
type Event struct {
	Type string `json:"type"`
	*UnitResult
	Mode        string `json:"mode,omitempty"`
	Units       int    `json:"units,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	Completed   int    `json:"completed,omitempty"`
	Succeeded   int    `json:"succeeded,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	ExitCode    int    `json:"exit_code,omitempty"`
	LedgerPath  string `json:"ledger_path,omitempty"`
	SummaryPath string `json:"summary_path,omitempty"`
}

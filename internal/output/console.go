package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink renders run progress and the final tally for humans.
type ConsoleSink struct {
	writer io.Writer
	format string // "text", "json", "ndjson"
	mu     sync.Mutex
	// headerOnce guards the run header so repeated run.started events (e.g.
	// several runs sharing one sink in-process) print it once per sink
	// instance, not once per process.
	headerOnce sync.Once
	results    []UnitResult // For JSON array output
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if e.Type == "unit.finished" && e.UnitResult != nil {
			s.results = append(s.results, *e.UnitResult)
		}
		return nil
	case "ndjson":
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flushIfBuffered(s.writer)
	case "text":
		return s.writeText(e)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) writeText(e Event) error {
	var err error
	switch e.Type {
	case "run.started":
		s.headerOnce.Do(func() {
			if e.Mode == "retry" {
				_, err = fmt.Fprintf(s.writer, "retrying %d failed stocks serially\n", e.Units)
			} else {
				_, err = fmt.Fprintf(s.writer, "processing %d stocks with %d workers\n", e.Units, e.Workers)
			}
		})
	case "unit.finished":
		if e.UnitResult == nil {
			return nil
		}
		if e.Status == StatusOK {
			_, err = fmt.Fprintf(s.writer, "progress: %d/%d - %s: %s (%s)\n",
				e.Completed, e.Units, color.GreenString("ok"), e.Unit, e.Name)
		} else {
			_, err = fmt.Fprintf(s.writer, "progress: %d/%d - %s: %s (%s) - %s\n",
				e.Completed, e.Units, color.RedString("failed"), e.Unit, e.Name, e.Reason)
		}
	case "run.finished":
		err = s.writeTally(e)
	}
	if err != nil {
		return err
	}
	return flushIfBuffered(s.writer)
}

func (s *ConsoleSink) writeTally(e Event) error {
	printf := func(format string, args ...any) error {
		_, err := fmt.Fprintf(s.writer, format, args...)
		return err
	}

	if err := printf("\ndone: %d stocks\n", e.Units); err != nil {
		return err
	}
	if err := printf("  %s %d (%s)\n", color.GreenString("succeeded:"), e.Succeeded, percent(e.Succeeded, e.Units)); err != nil {
		return err
	}
	if err := printf("  %s    %d (%s)\n", color.RedString("failed:"), e.Failed, percent(e.Failed, e.Units)); err != nil {
		return err
	}
	if e.Failed > 0 && e.LedgerPath != "" {
		if err := printf("  failure ledger: %s\n", e.LedgerPath); err != nil {
			return err
		}
	}
	if e.Failed > 0 && e.SummaryPath != "" {
		if err := printf("  failure summary: %s\n", e.SummaryPath); err != nil {
			return err
		}
	}
	return nil
}

func percent(n, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.results); err != nil {
			return err
		}
		return flushIfBuffered(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

// flushIfBuffered pushes pending bytes through writers that buffer (the
// console writer may be wrapped in a bufio.Writer when output is piped).
func flushIfBuffered(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

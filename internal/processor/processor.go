// Package processor is the per-stock unit-of-work boundary. Whatever happens
// inside a unit — provider errors, empty data, a panic in the factor math, a
// failed artifact write — Process reports it as an error value and never lets
// a fault escape into the batch engine.
package processor

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"factorpipe/internal/factor"
	"factorpipe/internal/source"
)

// StockProcessor generates the enriched factor CSV for one stock.
// The same worker that computes the result writes the artifact, so the write
// path never serializes on a coordinating goroutine.
type StockProcessor struct {
	Data    factor.MarketData
	OutDir  string
	EndDate string
}

// Process runs one stock end to end. A nil return means the output artifact
// exists and is complete; any non-nil error is the unit's failure reason.
func (p *StockProcessor) Process(ctx context.Context, unit source.StockRef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// An escaped fault is an infrastructure failure: record it with
			// the panic value so the summary can distinguish it from domain
			// failures.
			err = fmt.Errorf("panic while processing %s: %v", unit.Code, r)
		}
	}()

	frame, err := factor.Generate(ctx, p.Data, unit.Code, p.EndDate)
	if err != nil {
		return err
	}
	if frame.Empty() {
		return fmt.Errorf("factor generation produced no rows for %s", unit.Code)
	}

	path := filepath.Join(p.OutDir, OutputFilename(unit, p.EndDate))
	if err := writeCSV(path, frame); err != nil {
		return fmt.Errorf("output write failed: %w", err)
	}
	return nil
}

// OutputFilename is the enriched artifact name for one unit:
// {code}-{name}-{label}-{endDate}.csv.
func OutputFilename(unit source.StockRef, endDate string) string {
	return fmt.Sprintf("%s-%s-%s-%s.csv", unit.Code, unit.Name, source.Label, endDate)
}

// writeCSV writes the frame to a temp file in the target directory and
// renames it into place, so a unit's artifact is either fully present or
// absent — never partial, even with many workers writing concurrently.
func writeCSV(path string, frame *factor.Frame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(frame.Header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(frame.Rows); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ClearOutputs removes previously generated artifacts (label-matching CSVs)
// from dir. A fresh batch run calls it before dispatch; retry runs do not,
// since retry only adds or overwrites artifacts for previously failing
// units. A missing directory is fine — it is created on first write.
func ClearOutputs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if !strings.Contains(name, "-"+source.Label+"-") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove stale artifact %s: %w", name, err)
		}
	}
	return nil
}

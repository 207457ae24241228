// Package ledger persists the set of stocks that failed processing so a
// later retry run can be driven from the file alone, without rescanning the
// input directory.
//
// The ledger is scoped to a calendar day. Each line is
//
//	code|name|reason|timestamp
//
// with a literal '|' as the field separator. Reads use a bare split, so the
// reason text is sanitized on write to guarantee it can never contain the
// separator or a newline.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Record is one currently-failing stock. Code and Name are required for
// replay; Reason and At are informational.
type Record struct {
	Code   string
	Name   string
	Reason string
	At     time.Time
}

type Ledger struct {
	// Dir is the log directory the day-scoped ledger file lives in.
	Dir string

	// Now is a test seam for the current time. Nil means time.Now.
	Now func() time.Time

	// Logf receives warnings about malformed lines encountered on read.
	// Nil means warnings go to stderr.
	Logf func(format string, args ...any)
}

func New(dir string) *Ledger {
	return &Ledger{Dir: dir}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Ledger) logf(format string, args ...any) {
	if l.Logf != nil {
		l.Logf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Path returns the ledger file path for the current day.
func (l *Ledger) Path() string {
	return filepath.Join(l.Dir, fmt.Sprintf("failed_stocks_%s.txt", l.now().Format("20060102")))
}

// Reset removes the current day's ledger file. A missing file is not an
// error: a fresh run starts from an empty ledger either way.
func (l *Ledger) Reset() error {
	if err := os.Remove(l.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset failure ledger: %w", err)
	}
	return nil
}

// Write replaces the ledger's entire content with the given records.
// Records are deduplicated by stock code; the last occurrence wins.
// The file is written to a temp path and renamed so a crash mid-write never
// leaves a truncated ledger behind.
func (l *Ledger) Write(records []Record) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	// Dedupe by code, last write wins, preserving first-seen order.
	order := make([]string, 0, len(records))
	byCode := make(map[string]Record, len(records))
	for _, r := range records {
		if _, seen := byCode[r.Code]; !seen {
			order = append(order, r.Code)
		}
		byCode[r.Code] = r
	}

	path := l.Path()
	tmp, err := os.CreateTemp(l.Dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, code := range order {
		r := byCode[code]
		at := r.At
		if at.IsZero() {
			at = l.now()
		}
		line := strings.Join([]string{
			sanitizeField(r.Code),
			sanitizeField(r.Name),
			sanitizeField(r.Reason),
			at.Format(timestampLayout),
		}, "|")
		if _, err := fmt.Fprintln(w, line); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger line: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Read parses the current day's ledger. A missing file yields an empty set.
// Malformed lines (fewer than two fields) are skipped with a warning; the
// read never fails on content, only on I/O.
func (l *Ledger) Read() ([]Record, error) {
	f, err := os.Open(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open failure ledger: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 || parts[0] == "" {
			l.logf("ledger: skipping malformed line %d in %s", lineNo, l.Path())
			continue
		}
		rec := Record{Code: parts[0], Name: parts[1]}
		if len(parts) >= 3 {
			rec.Reason = parts[2]
		}
		if len(parts) >= 4 {
			if at, err := time.Parse(timestampLayout, parts[3]); err == nil {
				rec.At = at
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read failure ledger: %w", err)
	}
	return records, nil
}

// sanitizeField makes a value safe for the pipe-delimited line format:
// newlines become spaces and literal '|' becomes '/', so a bare split on
// read-back can never misalign fields.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", "/")
	return strings.TrimSpace(s)
}

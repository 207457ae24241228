package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSink_FormatInference(t *testing.T) {
	tests := []struct {
		path   string
		format string
		ok     bool
	}{
		{"out.json", "", true},
		{"out.ndjson", "", true},
		{"out.jsonl", "", true},
		{"out.txt", "", false},
		{"out.txt", "ndjson", true},
		{"out.dat", "json", true},
		{"out.json", "xml", false},
		{"", "", false},
	}
	for _, tt := range tests {
		path := tt.path
		if path != "" {
			path = filepath.Join(t.TempDir(), path)
		}
		s, err := NewFileSink(path, tt.format)
		if tt.ok && err != nil {
			t.Errorf("NewFileSink(%q, %q): %v", tt.path, tt.format, err)
			continue
		}
		if !tt.ok && err == nil {
			t.Errorf("NewFileSink(%q, %q): want error", tt.path, tt.format)
		}
		if s != nil {
			s.Close()
		}
	}
}

func TestFileSink_NDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatal(err)
	}
	events := batchEvents()
	for _, e := range events {
		if err := s.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != len(events) {
		t.Fatalf("lines = %d, want %d", len(lines), len(events))
	}
	var last Event
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Type != "run.finished" || last.LedgerPath == "" {
		t.Errorf("last event = %+v", last)
	}
}

func TestFileSink_JSONAggregate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "run.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range batchEvents() {
		if err := s.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var results []UnitResult
	if err := json.Unmarshal(raw, &results); err != nil {
		t.Fatalf("not a JSON array: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 unit results", results)
	}
}

type failingSink struct{ err error }

func (f *failingSink) Write(e Event) error { return f.err }
func (f *failingSink) Close() error        { return f.err }

type countingSink struct{ writes, closes int }

func (c *countingSink) Write(e Event) error { c.writes++; return nil }
func (c *countingSink) Close() error        { c.closes++; return nil }

func TestManager_FanOut(t *testing.T) {
	m := NewManager()
	a := &countingSink{}
	b := &countingSink{}
	for _, s := range []Sink{a, b} {
		if err := m.AddSink(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.AddSink(nil); err == nil {
		t.Error("AddSink(nil): want error")
	}

	if err := m.Write(Event{Type: "run.started"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.writes != 1 || b.writes != 1 || a.closes != 1 || b.closes != 1 {
		t.Errorf("fan-out counts: a=%+v b=%+v", a, b)
	}
}

func TestManager_BrokenSinkDoesNotStopOthers(t *testing.T) {
	m := NewManager()
	broken := errors.New("pipe closed")
	healthy := &countingSink{}
	if err := m.AddSink(&failingSink{err: broken}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSink(healthy); err != nil {
		t.Fatal(err)
	}

	err := m.Write(Event{Type: "run.started"})
	if !errors.Is(err, broken) {
		t.Fatalf("Write error = %v, want the sink's error", err)
	}
	if healthy.writes != 1 {
		t.Errorf("healthy sink writes = %d, want 1", healthy.writes)
	}

	if err := m.Close(); !errors.Is(err, broken) {
		t.Fatalf("Close error = %v, want the sink's error", err)
	}
	if healthy.closes != 1 {
		t.Errorf("healthy sink closes = %d, want 1", healthy.closes)
	}
}

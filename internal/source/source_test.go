package source

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"factorpipe/internal/ledger"
)

func TestParseSeedName(t *testing.T) {
	tests := []struct {
		filename string
		code     string
		name     string
		date     string
		ok       bool
	}{
		{"000001.SZ-Ping An Bank-daily-adjusted-factors-20250718.csv", "000001.SZ", "Ping An Bank", "20250718", true},
		{"600000.SH-SPD Bank-daily-adjusted-factors-20250718.csv", "600000.SH", "SPD Bank", "20250718", true},
		{"832000.BJ-Some Co-daily-adjusted-factors-20250101.csv", "832000.BJ", "Some Co", "20250101", true},
		// Hyphenated display names must not eat the label.
		{"000002.SZ-A-B-daily-adjusted-factors-20250718.csv", "000002.SZ", "A-B", "20250718", true},
		{"notes.txt", "", "", "", false},
		{"000001.SZ-Ping An Bank-20250718.csv", "", "", "", false},
		{"000001.SZ-Ping An Bank-daily-adjusted-factors-2025.csv", "", "", "", false},
		{"00001.SZ-Short Code-daily-adjusted-factors-20250718.csv", "", "", "", false},
	}
	for _, tt := range tests {
		code, name, date, ok := ParseSeedName(tt.filename)
		if ok != tt.ok || code != tt.code || name != tt.name || date != tt.date {
			t.Errorf("ParseSeedName(%q) = (%q, %q, %q, %v), want (%q, %q, %q, %v)",
				tt.filename, code, name, date, ok, tt.code, tt.name, tt.date, tt.ok)
		}
	}
}

func TestConvertCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"000001.SZ", "000001.XSHE"},
		{"600000.SH", "600000.XSHG"},
		{"832000.BJ", "832000.BJSE"},
		{"000001.XX", ""},
		{"000001", ""},
	}
	for _, tt := range tests {
		if got := ConvertCode(tt.in); got != tt.want {
			t.Errorf("ConvertCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func seedDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("seed\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSource_ListAll(t *testing.T) {
	dir := seedDir(t,
		"000001.SZ-Ping An Bank-daily-adjusted-factors-20250718.csv",
		"600000.SH-SPD Bank-daily-adjusted-factors-20250718.csv",
		"notes.txt",
		"000001.XX-Bad Suffix-daily-adjusted-factors-20250718.csv",
		"broken-name.csv",
	)
	// Subdirectories are skipped too.
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	refs, err := New(dir).ListAll(0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []StockRef{
		{Code: "000001.XSHE", Name: "Ping An Bank"},
		{Code: "600000.XSHG", Name: "SPD Bank"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("ListAll = %+v, want %+v", refs, want)
	}
}

func TestSource_ListAll_LimitIsStablePrefix(t *testing.T) {
	dir := seedDir(t,
		"000001.SZ-A-daily-adjusted-factors-20250718.csv",
		"000002.SZ-B-daily-adjusted-factors-20250718.csv",
		"600000.SH-C-daily-adjusted-factors-20250718.csv",
	)
	s := New(dir)

	all, err := s.ListAll(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll(0) = %d refs, want 3", len(all))
	}

	two, err := s.ListAll(2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(two, all[:2]) {
		t.Fatalf("ListAll(2) = %+v, want prefix %+v", two, all[:2])
	}

	// Limit larger than the directory is not an error.
	ten, err := s.ListAll(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ten) != 3 {
		t.Fatalf("ListAll(10) = %d refs, want 3", len(ten))
	}
}

func TestSource_ListAll_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope")).ListAll(0)
	if err == nil {
		t.Fatal("ListAll on missing directory: want error")
	}
}

func TestListFailed(t *testing.T) {
	led := ledger.New(t.TempDir())
	led.Now = func() time.Time { return time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC) }

	refs, err := ListFailed(led)
	if err != nil {
		t.Fatalf("ListFailed on empty ledger: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("ListFailed on empty ledger = %+v, want none", refs)
	}

	records := []ledger.Record{
		{Code: "000001.XSHE", Name: "Ping An Bank", Reason: "no data"},
		{Code: "600000.XSHG", Name: "SPD Bank", Reason: "timeout"},
	}
	if err := led.Write(records); err != nil {
		t.Fatal(err)
	}

	refs, err = ListFailed(led)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	want := []StockRef{
		{Code: "000001.XSHE", Name: "Ping An Bank"},
		{Code: "600000.XSHG", Name: "SPD Bank"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("ListFailed = %+v, want %+v", refs, want)
	}
}
